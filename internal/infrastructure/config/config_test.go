package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
site:
  id: "test-site"
broker:
  host: "127.0.0.1"
  port: 50600
entities:
  update_interval_ms: 200
systems:
  - name: "Room1"
    devices:
      - type: "DeviceA"
        name: "Light1"
        properties:
          prop_a: "On"
    services:
      - type: "Heartbeat"
        name: "Pulse"
mqtt:
  enabled: true
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
journal:
  enabled: true
  database:
    path: "/tmp/test.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Broker.Host != "127.0.0.1" || cfg.Broker.Port != 50600 {
		t.Errorf("Broker = %s:%d, want 127.0.0.1:50600", cfg.Broker.Host, cfg.Broker.Port)
	}
	if cfg.UpdateInterval() != 200*time.Millisecond {
		t.Errorf("UpdateInterval() = %v, want 200ms", cfg.UpdateInterval())
	}
	if len(cfg.Systems) != 1 {
		t.Fatalf("len(Systems) = %d, want 1", len(cfg.Systems))
	}
	room := cfg.Systems[0]
	if room.Name != "Room1" || len(room.Devices) != 1 || len(room.Services) != 1 {
		t.Errorf("Systems[0] = %+v", room)
	}
	if room.Devices[0].Properties["prop_a"] != "On" {
		t.Errorf("Devices[0].Properties = %v", room.Devices[0].Properties)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.ClientID != "test-client" {
		t.Errorf("MQTT = %+v", cfg.MQTT)
	}
	if !cfg.Journal.Enabled || cfg.Journal.Database.Path != "/tmp/test.db" {
		t.Errorf("Journal = %+v", cfg.Journal)
	}
	// Unset keys keep their defaults.
	if cfg.Broker.SendBuffer != 256 {
		t.Errorf("Broker.SendBuffer = %d, want default 256", cfg.Broker.SendBuffer)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
site:
  id: ""
broker:
  port: 50555
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id",
		},
		{
			name:    "invalid port low",
			mutate:  func(c *Config) { c.Broker.Port = 0 },
			wantErr: "broker.port",
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.Broker.Port = 70000 },
			wantErr: "broker.port",
		},
		{
			name:    "zero send buffer",
			mutate:  func(c *Config) { c.Broker.SendBuffer = 0 },
			wantErr: "broker.send_buffer",
		},
		{
			name:    "negative update interval",
			mutate:  func(c *Config) { c.Entities.UpdateIntervalMS = -1 },
			wantErr: "entities.update_interval_ms",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "influxdb enabled without URL",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: "influxdb.url",
		},
		{
			name: "journal enabled without path",
			mutate: func(c *Config) {
				c.Journal.Enabled = true
				c.Journal.Database.Path = ""
			},
			wantErr: "journal.database.path",
		},
		{
			name:    "negative journal retention",
			mutate:  func(c *Config) { c.Journal.RetentionDays = -1 },
			wantErr: "journal.retention_days",
		},
		{
			name: "unnamed system",
			mutate: func(c *Config) {
				c.Systems = []SystemConfig{{Name: ""}}
			},
			wantErr: "systems[0].name",
		},
		{
			name: "duplicate system",
			mutate: func(c *Config) {
				c.Systems = []SystemConfig{{Name: "Room1"}, {Name: "Room1"}}
			},
			wantErr: "duplicated",
		},
		{
			name: "member without type",
			mutate: func(c *Config) {
				c.Systems = []SystemConfig{{Name: "Room1", Devices: []MemberConfig{{Name: "Light1"}}}}
			},
			wantErr: "needs a type and name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Site.ID = ""
	cfg.Broker.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	if !strings.Contains(err.Error(), "site.id") || !strings.Contains(err.Error(), "broker.port") {
		t.Errorf("Validate() error = %v, want both problems reported", err)
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		Broker: BrokerConfig{
			Timeouts: BrokerTimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("INTRAVISION_BROKER_HOST", "192.168.1.1")
	t.Setenv("INTRAVISION_BROKER_PORT", "50600")
	t.Setenv("INTRAVISION_MQTT_HOST", "mqtt.example.com")
	t.Setenv("INTRAVISION_MQTT_USERNAME", "testuser")
	t.Setenv("INTRAVISION_MQTT_PASSWORD", "testpass")
	t.Setenv("INTRAVISION_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("INTRAVISION_JOURNAL_PATH", "/custom/path.db")
	t.Setenv("INTRAVISION_LOG_LEVEL", "debug")

	applyEnvOverrides(cfg)

	if cfg.Broker.Host != "192.168.1.1" {
		t.Errorf("Broker.Host = %q, want %q", cfg.Broker.Host, "192.168.1.1")
	}
	if cfg.Broker.Port != 50600 {
		t.Errorf("Broker.Port = %d, want 50600", cfg.Broker.Port)
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
	if cfg.Journal.Database.Path != "/custom/path.db" {
		t.Errorf("Journal.Database.Path = %q, want %q", cfg.Journal.Database.Path, "/custom/path.db")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestApplyEnvOverrides_EnableFlags(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("INTRAVISION_MQTT_ENABLED", "true")
	t.Setenv("INTRAVISION_INFLUXDB_ENABLED", "1")
	t.Setenv("INTRAVISION_JOURNAL_ENABLED", "maybe")

	applyEnvOverrides(cfg)

	if !cfg.MQTT.Enabled || !cfg.InfluxDB.Enabled {
		t.Errorf("MQTT.Enabled = %v, InfluxDB.Enabled = %v, want both true", cfg.MQTT.Enabled, cfg.InfluxDB.Enabled)
	}
	if cfg.Journal.Enabled {
		t.Error("Journal.Enabled should ignore an unparseable value")
	}
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	cfg := defaultConfig()
	t.Setenv("INTRAVISION_BROKER_PORT", "not-a-port")

	applyEnvOverrides(cfg)

	if cfg.Broker.Port != 50555 {
		t.Errorf("Broker.Port = %d, want default 50555", cfg.Broker.Port)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Site.ID == "" {
		t.Error("defaultConfig should have non-empty Site.ID")
	}
	if cfg.Broker.Host != "" {
		t.Errorf("defaultConfig Broker.Host = %q, want all interfaces", cfg.Broker.Host)
	}
	if cfg.Broker.Port != 50555 {
		t.Errorf("defaultConfig Broker.Port = %d, want 50555", cfg.Broker.Port)
	}
	if cfg.UpdateInterval() != 150*time.Millisecond {
		t.Errorf("defaultConfig UpdateInterval() = %v, want 150ms", cfg.UpdateInterval())
	}
	if cfg.MQTT.Enabled || cfg.InfluxDB.Enabled || cfg.Journal.Enabled {
		t.Error("optional integrations should be disabled by default")
	}
	if cfg.JournalRetention() != 7*24*time.Hour {
		t.Errorf("defaultConfig JournalRetention() = %v, want 168h", cfg.JournalRetention())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig should validate, got %v", err)
	}
}
