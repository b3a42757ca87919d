//go:build integration

package mqtt

import (
	"encoding/json"
	"testing"
	"time"
)

// Integration tests need a broker at 127.0.0.1:1883.
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func connectForTest(t *testing.T, clientID string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID
	c, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestIntegration_StateRoundtrip(t *testing.T) {
	pub := connectForTest(t, "intravision-int-pub")
	sub := connectForTest(t, "intravision-int-sub")

	received := make(chan string, 1)
	err := sub.Subscribe(Topics{}.AllEntityStates(), 1, func(topic string, _ []byte) error {
		id, _ := Topics{}.EntityIDFromState(topic)
		received <- id
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !sub.HasSubscription(Topics{}.AllEntityStates()) {
		t.Error("subscription not tracked")
	}

	if err := pub.Publish(Topics{}.EntityState("light-1"), []byte(`{"PropA":"On"}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case id := <-received:
		if id != "light-1" {
			t.Errorf("entity id = %q, want light-1", id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}

	if err := sub.Unsubscribe(Topics{}.AllEntityStates()); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if sub.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", sub.SubscriptionCount())
	}
}

func TestIntegration_OnlineStatusRetained(t *testing.T) {
	connectForTest(t, "intravision-int-core")
	watcher := connectForTest(t, "intravision-int-watcher")

	statuses := make(chan StatusMessage, 4)
	err := watcher.Subscribe(Topics{}.SystemStatus(), 1, func(_ string, payload []byte) error {
		var msg StatusMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return err
		}
		statuses <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case msg := <-statuses:
		if msg.Status != statusOnline {
			t.Errorf("status = %q, want %q", msg.Status, statusOnline)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no retained status received")
	}
}
