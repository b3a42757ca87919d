package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Intravision Core.
// It is read from YAML, then INTRAVISION_* environment variables win.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Broker    BrokerConfig    `yaml:"broker"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Entities  EntitiesConfig  `yaml:"entities"`
	Systems   []SystemConfig  `yaml:"systems"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Journal   JournalConfig   `yaml:"journal"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig identifies the installation.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// BrokerConfig contains the subscription broker's listener settings.
type BrokerConfig struct {
	// Host is the listen address. Empty means all interfaces.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// SendBuffer is the per-connection outbound message buffer size.
	SendBuffer int `yaml:"send_buffer"`

	Timeouts BrokerTimeoutConfig `yaml:"timeouts"`
}

// BrokerTimeoutConfig contains HTTP timeout settings in seconds.
type BrokerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket connection settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// EntitiesConfig contains settings shared by every entity.
type EntitiesConfig struct {
	// UpdateIntervalMS is the minimum time between two update
	// notifications from the same entity, in milliseconds.
	UpdateIntervalMS int `yaml:"update_interval_ms"`
}

// SystemConfig declares a system created at startup.
type SystemConfig struct {
	Name     string         `yaml:"name"`
	Devices  []MemberConfig `yaml:"devices"`
	Services []MemberConfig `yaml:"services"`
}

// MemberConfig declares one entity of a bootstrap system.
type MemberConfig struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`

	// Properties are initial values keyed by internal field name.
	Properties map[string]any `yaml:"properties,omitempty"`
}

// MQTTConfig is the optional state bus used for ingest.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig is where the state bus lives.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig holds bus credentials. Prefer the env overrides for these.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig is the reconnect backoff in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig is the optional telemetry sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// JournalConfig contains the event journal settings.
type JournalConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Database DatabaseConfig `yaml:"database"`

	// HistoryLimit caps the rows returned by one history query.
	HistoryLimit int `yaml:"history_limit"`

	// RetentionDays is how long journal rows are kept. Zero keeps them forever.
	RetentionDays int `yaml:"retention_days"`
}

// DatabaseConfig locates and tunes the SQLite file.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig selects level, format (json|text) and output (stdout|stderr).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds a Config in three layers: built-in defaults, then the YAML
// file at path, then INTRAVISION_* environment variables. The result is
// validated before it is returned.
//
// A missing file is an error wrapping fs.ErrNotExist; callers that want to
// run on defaults check for it and use Default.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. It is used when no config file exists.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Intravision",
			Timezone: "UTC",
		},
		Broker: BrokerConfig{
			Host:       "",
			Port:       50555,
			SendBuffer: 256,
			Timeouts: BrokerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Entities: EntitiesConfig{
			UpdateIntervalMS: 150,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "intravision-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Journal: JournalConfig{
			Database: DatabaseConfig{
				Path:        "./data/intravision.db",
				WALMode:     true,
				BusyTimeout: 5,
			},
			HistoryLimit:  100,
			RetentionDays: 7,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// envOverrides maps INTRAVISION_* variables onto config fields. Values that
// do not parse as the field's type are ignored.
var envOverrides = map[string]func(cfg *Config, v string){
	"INTRAVISION_BROKER_HOST": func(cfg *Config, v string) { cfg.Broker.Host = v },
	"INTRAVISION_BROKER_PORT": func(cfg *Config, v string) { setInt(&cfg.Broker.Port, v) },

	"INTRAVISION_MQTT_ENABLED":  func(cfg *Config, v string) { setBool(&cfg.MQTT.Enabled, v) },
	"INTRAVISION_MQTT_HOST":     func(cfg *Config, v string) { cfg.MQTT.Broker.Host = v },
	"INTRAVISION_MQTT_USERNAME": func(cfg *Config, v string) { cfg.MQTT.Auth.Username = v },
	"INTRAVISION_MQTT_PASSWORD": func(cfg *Config, v string) { cfg.MQTT.Auth.Password = v },

	"INTRAVISION_INFLUXDB_ENABLED": func(cfg *Config, v string) { setBool(&cfg.InfluxDB.Enabled, v) },
	"INTRAVISION_INFLUXDB_TOKEN":   func(cfg *Config, v string) { cfg.InfluxDB.Token = v },

	"INTRAVISION_JOURNAL_ENABLED": func(cfg *Config, v string) { setBool(&cfg.Journal.Enabled, v) },
	"INTRAVISION_JOURNAL_PATH":    func(cfg *Config, v string) { cfg.Journal.Database.Path = v },

	"INTRAVISION_LOG_LEVEL": func(cfg *Config, v string) { cfg.Logging.Level = v },
}

// applyEnvOverrides applies every set INTRAVISION_* variable to cfg.
func applyEnvOverrides(cfg *Config) {
	for key, apply := range envOverrides {
		if v := os.Getenv(key); v != "" {
			apply(cfg, v)
		}
	}
}

func setInt(dst *int, v string) {
	if n, err := cast.ToIntE(v); err == nil {
		*dst = n
	}
}

func setBool(dst *bool, v string) {
	if b, err := cast.ToBoolE(v); err == nil {
		*dst = b
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	check(c.Site.ID != "", "site.id is required")

	check(c.Broker.Port >= 1 && c.Broker.Port <= 65535, "broker.port must be between 1 and 65535")
	check(c.Broker.SendBuffer >= 1, "broker.send_buffer must be positive")

	check(c.WebSocket.MaxMessageSize >= 1, "websocket.max_message_size must be positive")
	check(c.WebSocket.PingInterval >= 1 && c.WebSocket.PongTimeout >= 1,
		"websocket.ping_interval and websocket.pong_timeout must be positive")

	check(c.Entities.UpdateIntervalMS >= 0, "entities.update_interval_ms must not be negative")
	errs = append(errs, c.validateSystems()...)

	check(c.MQTT.QoS >= 0 && c.MQTT.QoS <= 2, "mqtt.qos must be 0, 1, or 2")
	check(!c.InfluxDB.Enabled || c.InfluxDB.URL != "", "influxdb.url is required when influxdb is enabled")

	check(!c.Journal.Enabled || c.Journal.Database.Path != "",
		"journal.database.path is required when the journal is enabled")
	check(c.Journal.RetentionDays >= 0, "journal.retention_days must not be negative")

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateSystems checks bootstrap systems for missing and duplicate names.
func (c *Config) validateSystems() []string {
	var errs []string
	seen := make(map[string]struct{}, len(c.Systems))

	for i, s := range c.Systems {
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("systems[%d].name is required", i))
			continue
		}
		if _, dup := seen[s.Name]; dup {
			errs = append(errs, fmt.Sprintf("systems[%d].name %q is duplicated", i, s.Name))
		}
		seen[s.Name] = struct{}{}

		members := append(append([]MemberConfig{}, s.Devices...), s.Services...)
		for j, m := range members {
			if m.Type == "" || m.Name == "" {
				errs = append(errs, fmt.Sprintf("systems[%d] (%s) member %d needs a type and name", i, s.Name, j))
			}
		}
	}
	return errs
}

// UpdateInterval returns the entity debounce interval as a Duration.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Entities.UpdateIntervalMS) * time.Millisecond
}

// JournalRetention returns how long journal rows are kept, or zero to keep them.
func (c *Config) JournalRetention() time.Duration {
	return time.Duration(c.Journal.RetentionDays) * 24 * time.Hour
}

// GetReadTimeout returns the broker read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Broker.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the broker write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Broker.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the broker idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Broker.Timeouts.Idle) * time.Second
}
