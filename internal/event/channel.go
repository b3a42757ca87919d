package event

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Logger defines the logging interface used by a Channel.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Handler is the callback signature for channel subscribers.
//
// Parameters:
//   - sender: The object that fired the event (entity, system, or nil)
//   - payload: The event payload
//
// Returns:
//   - error: Logged by the channel; does not affect delivery to other subscribers
type Handler[T any] func(sender any, payload T) error

// SubscriptionID identifies a single subscription on a Channel.
// IDs are unique across all channels in the process.
type SubscriptionID uint64

var nextID atomic.Uint64

// subscriber pairs a handler with the ID returned to the caller.
type subscriber[T any] struct {
	id      SubscriptionID
	handler Handler[T]
}

// Channel is a multi-subscriber notification primitive with last-value retention.
//
// The zero value is not usable; create channels with NewChannel.
type Channel[T any] struct {
	mu          sync.RWMutex
	subscribers []subscriber[T]
	last        T
	fired       bool
	logger      Logger
	name        string
}

// NewChannel creates an empty channel.
func NewChannel[T any]() *Channel[T] {
	return &Channel[T]{logger: noopLogger{}}
}

// SetLogger sets the logger used to report failing subscribers.
func (c *Channel[T]) SetLogger(logger Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// SetName sets a label included in log entries for this channel.
func (c *Channel[T]) SetName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

// Subscribe appends a handler to the channel.
//
// Subscribing the same handler twice results in two deliveries per Fire;
// callers are responsible for not double-subscribing.
//
// Returns:
//   - SubscriptionID: Handle to pass to Unsubscribe
func (c *Channel[T]) Subscribe(handler Handler[T]) SubscriptionID {
	id := SubscriptionID(nextID.Add(1))

	c.mu.Lock()
	c.subscribers = append(c.subscribers, subscriber[T]{id: id, handler: handler})
	c.mu.Unlock()

	return id
}

// Unsubscribe removes the subscription with the given ID.
// Returns ErrSubscriptionNotFound if it is not attached to this channel.
func (c *Channel[T]) Unsubscribe(id SubscriptionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, sub := range c.subscribers {
		if sub.id == id {
			// Copy-on-write so in-flight snapshots are never mutated.
			next := make([]subscriber[T], 0, len(c.subscribers)-1)
			next = append(next, c.subscribers[:i]...)
			next = append(next, c.subscribers[i+1:]...)
			c.subscribers = next
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrSubscriptionNotFound, id)
}

// Fire stores payload as the last value and synchronously invokes every
// current subscriber with (sender, payload), in subscription order.
func (c *Channel[T]) Fire(sender any, payload T) {
	c.mu.Lock()
	c.last = payload
	c.fired = true
	snapshot := c.subscribers
	logger := c.logger
	name := c.name
	c.mu.Unlock()

	for _, sub := range snapshot {
		c.deliver(sub, sender, payload, logger, name)
	}
}

// deliver invokes one subscriber, isolating errors and panics.
func (c *Channel[T]) deliver(sub subscriber[T], sender any, payload T, logger Logger, name string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event subscriber panicked",
				"channel", name,
				"subscription", uint64(sub.id),
				"panic", fmt.Sprint(r),
			)
		}
	}()

	if err := sub.handler(sender, payload); err != nil {
		logger.Error("event subscriber failed",
			"channel", name,
			"subscription", uint64(sub.id),
			"error", err,
		)
	}
}

// LastValue returns the most recently fired payload.
// The boolean is false (and the payload is the zero value) if the channel
// has never fired.
func (c *Channel[T]) LastValue() (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.fired
}

// Len returns the number of attached subscribers.
func (c *Channel[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers)
}
