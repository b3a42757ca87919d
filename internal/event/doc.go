// Package event provides the observer channel used for entity and system
// notifications in Intravision Core.
//
// A Channel is a multi-subscriber notification primitive that remembers the
// last payload it delivered. Entities fire their own channel when their
// debounced update triggers; systems fire theirs when membership changes are
// announced. The subscription broker subscribes to both kinds.
//
// # Delivery
//
// Fire invokes every subscriber synchronously, in subscription order, against
// a snapshot of the subscriber list taken before delivery starts. Subscribers
// added or removed during delivery only affect the next Fire.
//
// A subscriber that returns an error or panics is logged and skipped; the
// remaining subscribers still receive the event.
//
// # Usage
//
//	ch := event.NewChannel[string]()
//	id := ch.Subscribe(func(sender any, msg string) error {
//	    fmt.Println(msg)
//	    return nil
//	})
//	ch.Fire(nil, "hello")
//	_ = ch.Unsubscribe(id)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Handlers are called without the
// channel lock held, so a handler may subscribe or unsubscribe freely.
package event
