package entity

import (
	"time"

	"github.com/nerrad567/intravision-core/internal/event"
)

// Logger defines the logging interface used by entities.
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

// Entity is a device or service with identity, a type tag, and a debounced
// update channel. Concrete variants embed *Base to satisfy it.
type Entity interface {
	// ID returns the deterministic identifier derived from the name.
	ID() string

	// Name returns the entity's name.
	Name() string

	// Type returns the concrete variant's type tag.
	Type() string

	// Kind reports whether the entity is a device or a service.
	Kind() Kind

	// Schema returns the variant's static field table.
	Schema() *Schema

	// Updates returns the channel fired by the debounced update.
	Updates() *event.Channel[Entity]

	// IsExcluded reports whether a field is excluded from serialisation.
	IsExcluded(field string) bool

	// Property returns the current value of a stored or computed field.
	Property(name string) (any, bool)

	// UpdateProperty is the guarded setter. It rejects unknown names and
	// values whose type differs from the current value, and triggers a
	// debounced update when the value changes.
	UpdateProperty(name string, value any) error

	// SetField assigns a settable field directly, without type checking or
	// notification. It is the population path used when decoding payloads.
	SetField(name string, value any) error

	// RequestUpdate asks for a debounced update notification.
	RequestUpdate()

	// SetUpdateInterval changes the minimum time between notifications.
	SetUpdateInterval(interval time.Duration)
}

// SameEntity reports whether a and b refer to the same entity.
// Entities are compared by identifier, which is derived from the name.
func SameEntity(a, b Entity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID() == b.ID()
}
