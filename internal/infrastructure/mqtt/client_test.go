package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/intravision-core/internal/infrastructure/config"
)

// testConfig returns a configuration pointing at a local broker.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "intravision-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := Connect(cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 1

	_, err := Connect(cfg)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestBuildClientOptions(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.MQTTConfig)
		wantURL string
		wantTLS bool
		user    string
	}{
		{"plain", func(*config.MQTTConfig) {}, "tcp://127.0.0.1:1883", false, ""},
		{"tls", func(c *config.MQTTConfig) { c.Broker.TLS = true; c.Broker.Port = 8883 }, "ssl://127.0.0.1:8883", true, ""},
		{"auth", func(c *config.MQTTConfig) { c.Auth.Username = "core"; c.Auth.Password = "secret" }, "tcp://127.0.0.1:1883", false, "core"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			opts := buildClientOptions(cfg)

			if len(opts.Servers) != 1 || opts.Servers[0].String() != tt.wantURL {
				t.Errorf("Servers = %v, want %s", opts.Servers, tt.wantURL)
			}
			if opts.ClientID != "intravision-test" {
				t.Errorf("ClientID = %q", opts.ClientID)
			}
			if opts.Username != tt.user {
				t.Errorf("Username = %q, want %q", opts.Username, tt.user)
			}
			if (opts.TLSConfig != nil) != tt.wantTLS {
				t.Errorf("TLSConfig set = %v, want %v", opts.TLSConfig != nil, tt.wantTLS)
			}
			if !opts.AutoReconnect || !opts.CleanSession {
				t.Error("expected auto-reconnect and clean session")
			}
		})
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "intravision-test")

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatal("expected a retained will")
	}
	if opts.WillTopic != "intravision/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var msg StatusMessage
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if msg.Status != statusOffline || msg.Reason != reasonUnexpectedDisconnect || msg.ClientID != "intravision-test" {
		t.Errorf("will payload = %+v", msg)
	}
}

func TestBuildStatusPayload_OmitsEmptyReason(t *testing.T) {
	var raw map[string]any
	if err := json.Unmarshal(buildStatusPayload("core", statusOnline, ""), &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if raw["status"] != "online" {
		t.Errorf("status = %v, want online", raw["status"])
	}
	if _, ok := raw["reason"]; ok {
		t.Error("reason present for online status")
	}
	if raw["timestamp"] == "" {
		t.Error("timestamp missing")
	}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"EntityState", Topics{}.EntityState("abc"), "intravision/state/abc"},
		{"AllEntityStates", Topics{}.AllEntityStates(), "intravision/state/+"},
		{"EntityAck", Topics{}.EntityAck("abc"), "intravision/ack/abc"},
		{"SystemStatus", Topics{}.SystemStatus(), "intravision/system/status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestEntityIDFromState(t *testing.T) {
	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{"intravision/state/abc", "abc", true},
		{"intravision/state/", "", false},
		{"intravision/state/abc/extra", "", false},
		{"intravision/system/status", "", false},
		{"other/state/abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			id, ok := Topics{}.EntityIDFromState(tt.topic)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("EntityIDFromState(%q) = %q, %v; want %q, %v", tt.topic, id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := newClient(testConfig())
	noop := func(string, []byte) error { return nil }

	if c.IsConnected() {
		t.Error("IsConnected() = true for unconnected client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"publish empty topic", c.Publish("", nil, 0, false), ErrInvalidTopic},
		{"publish bad qos", c.Publish("t", nil, 3, false), ErrInvalidQoS},
		{"publish oversize", c.Publish("t", make([]byte, maxPayloadSize+1), 0, false), ErrPublishFailed},
		{"publish disconnected", c.Publish("t", []byte("x"), 0, false), ErrNotConnected},
		{"subscribe empty topic", c.Subscribe("", 0, noop), ErrInvalidTopic},
		{"subscribe bad qos", c.Subscribe("t", 3, noop), ErrInvalidQoS},
		{"subscribe nil handler", c.Subscribe("t", 0, nil), ErrSubscribeFailed},
		{"subscribe disconnected", c.Subscribe("t", 0, noop), ErrNotConnected},
		{"unsubscribe empty topic", c.Unsubscribe(""), ErrInvalidTopic},
		{"unsubscribe disconnected", c.Unsubscribe("t"), ErrNotConnected},
		{"health", c.HealthCheck(context.Background()), ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
}

func TestHealthCheck_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newClient(testConfig())
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestSetLogger_NilFallsBackToNoop(t *testing.T) {
	c := newClient(testConfig())
	c.SetLogger(nil)

	h := c.wrapHandler(func(string, []byte) error { return errors.New("ignored") })
	h(nil, fakeMessage{topic: "intravision/state/x"})
}

func TestWrapHandler_RecoversPanic(t *testing.T) {
	logger := &recordingLogger{}
	c := newClient(testConfig())
	c.SetLogger(logger)

	h := c.wrapHandler(func(string, []byte) error { panic("boom") })
	h(nil, fakeMessage{topic: "intravision/state/x"})

	if logger.errors != 1 {
		t.Errorf("errors logged = %d, want 1", logger.errors)
	}

	h = c.wrapHandler(func(string, []byte) error { return errors.New("bad payload") })
	h(nil, fakeMessage{topic: "intravision/state/x"})

	if logger.warns != 1 {
		t.Errorf("warnings logged = %d, want 1", logger.warns)
	}
}

type recordingLogger struct {
	errors int
	warns  int
}

func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(string, ...any)  { l.warns++ }
func (l *recordingLogger) Error(string, ...any) { l.errors++ }

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}
