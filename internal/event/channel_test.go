package event

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// recordingLogger captures Error calls for assertions.
type recordingLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func TestChannel_FireInSubscriptionOrder(t *testing.T) {
	ch := NewChannel[int]()

	var got []string
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("sub-%d", i)
		ch.Subscribe(func(_ any, _ int) error {
			got = append(got, name)
			return nil
		})
	}

	ch.Fire(nil, 1)

	want := []string{"sub-0", "sub-1", "sub-2", "sub-3", "sub-4"}
	if len(got) != len(want) {
		t.Fatalf("delivered %d times, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivery[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestChannel_UnsubscribeBeforeFire(t *testing.T) {
	ch := NewChannel[string]()

	calls := map[string]int{}
	a := ch.Subscribe(func(_ any, _ string) error { calls["a"]++; return nil })
	ch.Subscribe(func(_ any, _ string) error { calls["b"]++; return nil })
	ch.Subscribe(func(_ any, _ string) error { calls["c"]++; return nil })

	if err := ch.Unsubscribe(a); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	ch.Fire(nil, "x")

	if calls["a"] != 0 {
		t.Errorf("unsubscribed handler called %d times", calls["a"])
	}
	if calls["b"] != 1 || calls["c"] != 1 {
		t.Errorf("calls = %v, want b=1 c=1", calls)
	}
	if ch.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ch.Len())
	}
}

func TestChannel_UnsubscribeUnknown(t *testing.T) {
	ch := NewChannel[string]()
	id := ch.Subscribe(func(any, string) error { return nil })

	if err := ch.Unsubscribe(id); err != nil {
		t.Fatalf("first Unsubscribe() error = %v", err)
	}
	err := ch.Unsubscribe(id)
	if !errors.Is(err, ErrSubscriptionNotFound) {
		t.Errorf("second Unsubscribe() error = %v, want ErrSubscriptionNotFound", err)
	}
}

func TestChannel_DuplicateSubscriptionDeliversTwice(t *testing.T) {
	ch := NewChannel[int]()
	count := 0
	h := func(any, int) error { count++; return nil }
	ch.Subscribe(h)
	ch.Subscribe(h)

	ch.Fire(nil, 0)

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestChannel_SenderAndPayloadPassedThrough(t *testing.T) {
	ch := NewChannel[string]()
	sender := &struct{ name string }{"light"}

	var gotSender any
	var gotPayload string
	ch.Subscribe(func(s any, p string) error {
		gotSender, gotPayload = s, p
		return nil
	})
	ch.Fire(sender, "on")

	if gotSender != sender {
		t.Errorf("sender = %v, want %v", gotSender, sender)
	}
	if gotPayload != "on" {
		t.Errorf("payload = %q, want on", gotPayload)
	}
}

func TestChannel_LastValue(t *testing.T) {
	ch := NewChannel[int]()

	if v, ok := ch.LastValue(); ok || v != 0 {
		t.Errorf("LastValue() before fire = (%d, %v), want (0, false)", v, ok)
	}

	ch.Fire(nil, 7)
	ch.Fire(nil, 9)

	v, ok := ch.LastValue()
	if !ok || v != 9 {
		t.Errorf("LastValue() = (%d, %v), want (9, true)", v, ok)
	}
}

func TestChannel_FailingSubscriberIsolated(t *testing.T) {
	log := &recordingLogger{}
	ch := NewChannel[int]()
	ch.SetLogger(log)

	delivered := 0
	ch.Subscribe(func(any, int) error { return errors.New("boom") })
	ch.Subscribe(func(any, int) error { panic("kaboom") })
	ch.Subscribe(func(any, int) error { delivered++; return nil })

	ch.Fire(nil, 1)

	if delivered != 1 {
		t.Errorf("later subscriber delivered %d times, want 1", delivered)
	}
	if len(log.errors) != 2 {
		t.Errorf("logged %d errors, want 2", len(log.errors))
	}
}

func TestChannel_SnapshotDuringDelivery(t *testing.T) {
	ch := NewChannel[int]()

	lateCalls := 0
	var secondID SubscriptionID
	ch.Subscribe(func(any, int) error {
		// Mutations during delivery only affect the next Fire.
		ch.Subscribe(func(any, int) error { lateCalls++; return nil })
		_ = ch.Unsubscribe(secondID)
		return nil
	})
	secondCalls := 0
	secondID = ch.Subscribe(func(any, int) error { secondCalls++; return nil })

	ch.Fire(nil, 1)

	if secondCalls != 1 {
		t.Errorf("removed-in-flight subscriber called %d times, want 1", secondCalls)
	}
	if lateCalls != 0 {
		t.Errorf("added-in-flight subscriber called %d times, want 0", lateCalls)
	}

	ch.Fire(nil, 2)
	if secondCalls != 1 {
		t.Errorf("removed subscriber called again: %d", secondCalls)
	}
	if lateCalls != 1 {
		t.Errorf("late subscriber called %d times on second fire, want 1", lateCalls)
	}
}

func TestChannel_ConcurrentFireAndSubscribe(t *testing.T) {
	ch := NewChannel[int]()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			id := ch.Subscribe(func(any, int) error { return nil })
			_ = ch.Unsubscribe(id)
		}()
		go func(v int) {
			defer wg.Done()
			ch.Fire(nil, v)
		}(i)
	}
	wg.Wait()

	if ch.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ch.Len())
	}
}
