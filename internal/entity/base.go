package entity

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/intravision-core/internal/event"
)

// Base implements Entity and is embedded by every concrete variant.
//
// Base stores the variant's field values keyed by schema name. The owner is
// the concrete variant value that embeds this Base; it is what subscribers
// receive as sender and payload when the entity fires.
type Base struct {
	owner  Entity
	id     string
	name   string
	schema *Schema

	updates  *event.Channel[Entity]
	debounce *debouncer

	mu       sync.RWMutex
	props    map[string]any
	excluded map[string]struct{}

	logMu  sync.RWMutex
	logger Logger
}

// NewBase creates the shared entity state for a variant.
//
// Parameters:
//   - owner: The concrete variant embedding the Base (nil to use the Base itself)
//   - name: Entity name; must not be empty
//   - schema: The variant's field table
//
// Returns:
//   - *Base: Initialised base with every stored field at its default
//   - error: ErrMissingName if name is empty
func NewBase(owner Entity, name string, schema *Schema) (*Base, error) {
	if schema == nil {
		return nil, fmt.Errorf("entity: schema is required")
	}
	if name == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingName, schema.Type())
	}

	b := &Base{
		owner:    owner,
		id:       NewID(name),
		name:     name,
		schema:   schema,
		updates:  event.NewChannel[Entity](),
		props:    make(map[string]any, len(schema.Fields())),
		excluded: make(map[string]struct{}),
		logger:   noopLogger{},
	}
	if b.owner == nil {
		b.owner = b
	}
	for _, f := range schema.Fields() {
		if !f.IsComputed() {
			b.props[f.Name] = f.Default
		}
	}

	b.updates.SetName(schema.Type() + ":" + name)
	b.debounce = newDebouncer(DefaultUpdateInterval, b.fire)

	return b, nil
}

// SetLogger sets the logger for the entity and its update channel.
func (b *Base) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.logMu.Lock()
	b.logger = logger
	b.logMu.Unlock()
	b.updates.SetLogger(logger)
}

func (b *Base) log() Logger {
	b.logMu.RLock()
	defer b.logMu.RUnlock()
	return b.logger
}

// ID returns the deterministic identifier.
func (b *Base) ID() string { return b.id }

// Name returns the entity name.
func (b *Base) Name() string { return b.name }

// Type returns the variant type tag.
func (b *Base) Type() string { return b.schema.Type() }

// Kind returns device or service.
func (b *Base) Kind() Kind { return b.schema.Kind() }

// Schema returns the variant's field table.
func (b *Base) Schema() *Schema { return b.schema }

// Updates returns the entity's update channel.
func (b *Base) Updates() *event.Channel[Entity] { return b.updates }

// Exclude marks fields to be omitted from serialisation for this instance.
func (b *Base) Exclude(fields ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, f := range fields {
		b.excluded[f] = struct{}{}
	}
}

// IsExcluded reports whether a field is excluded from serialisation.
func (b *Base) IsExcluded(field string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.excluded[field]
	return ok
}

// Excluded returns the instance's excluded field names, sorted.
func (b *Base) Excluded() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.excluded))
	for n := range b.excluded {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Property returns the value of a stored or computed field.
func (b *Base) Property(name string) (any, bool) {
	f, ok := b.schema.Field(name)
	if !ok {
		return nil, false
	}
	if f.IsComputed() {
		return f.Compute(b.owner), true
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.props[name]
	return v, ok
}

// UpdateProperty is the guarded setter.
//
// It logs and returns ErrUnknownProperty if the field does not exist or is
// read-only, and ErrTypeMismatch if the value's dynamic type differs from the
// current value's. Equal values are a no-op. Otherwise the value is stored
// (through Assign for a settable computed field) and a debounced update is
// requested.
func (b *Base) UpdateProperty(name string, value any) error {
	f, ok := b.schema.Field(name)
	if !ok || !f.Settable() {
		b.log().Error("entity does not contain property",
			"entity", b.name,
			"property", name,
		)
		return fmt.Errorf("%w: %s does not contain %s", ErrUnknownProperty, b.name, name)
	}

	if f.IsComputed() {
		current := f.Compute(b.owner)
		if err := b.checkType(name, current, value); err != nil {
			return err
		}
		if reflect.DeepEqual(current, value) {
			return nil
		}
		if err := f.Assign(b.owner, value); err != nil {
			return fmt.Errorf("%s.%s: %w", b.name, name, err)
		}
		b.RequestUpdate()
		return nil
	}

	return b.updateStored(name, func(any) any { return value })
}

// UpdatePropertyFunc replaces a stored field with fn(current) under the
// guarded setter's checks. The read and the write happen under one lock, so
// no concurrent UpdateProperty or SetField lands between them.
func (b *Base) UpdatePropertyFunc(name string, fn func(current any) any) error {
	f, ok := b.schema.Field(name)
	if !ok || f.IsComputed() {
		b.log().Error("entity does not contain stored property",
			"entity", b.name,
			"property", name,
		)
		return fmt.Errorf("%w: %s does not contain stored %s", ErrUnknownProperty, b.name, name)
	}
	return b.updateStored(name, fn)
}

func (b *Base) updateStored(name string, fn func(current any) any) error {
	b.mu.Lock()
	current := b.props[name]
	value := fn(current)
	if err := b.checkType(name, current, value); err != nil {
		b.mu.Unlock()
		return err
	}
	if reflect.DeepEqual(current, value) {
		b.mu.Unlock()
		return nil
	}
	b.props[name] = value
	b.mu.Unlock()

	b.RequestUpdate()
	return nil
}

// checkType logs and returns ErrTypeMismatch unless value has current's type.
func (b *Base) checkType(name string, current, value any) error {
	if reflect.TypeOf(current) == reflect.TypeOf(value) {
		return nil
	}
	b.log().Error("entity property type mismatch",
		"entity", b.name,
		"property", name,
		"current_type", fmt.Sprintf("%T", current),
		"value_type", fmt.Sprintf("%T", value),
	)
	return fmt.Errorf("%w: %s.%s is %T, got %T", ErrTypeMismatch, b.name, name, current, value)
}

// SetField assigns a field directly. No type check, no notification.
// Wire-decoded numbers are coerced to the field's current numeric type.
// Settable computed fields go through their Assign func.
func (b *Base) SetField(name string, value any) error {
	f, ok := b.schema.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	if !f.Settable() {
		return fmt.Errorf("%w: %s", ErrReadOnlyProperty, name)
	}
	if f.IsComputed() {
		return f.Assign(b.owner, Coerce(f.Compute(b.owner), value))
	}

	b.mu.Lock()
	b.props[name] = Coerce(b.props[name], value)
	b.mu.Unlock()
	return nil
}

// RequestUpdate asks for a debounced update notification.
func (b *Base) RequestUpdate() {
	b.debounce.trigger()
}

// SetUpdateInterval changes the minimum time between notifications.
func (b *Base) SetUpdateInterval(interval time.Duration) {
	b.debounce.setInterval(interval)
}

// UpdatePending reports whether a trailing notification is scheduled.
func (b *Base) UpdatePending() bool {
	return b.debounce.pending()
}

// Close cancels a scheduled trailing notification.
// Entities need no other teardown; Close is optional.
func (b *Base) Close() {
	b.debounce.stop()
}

// fire delivers the update to subscribers.
func (b *Base) fire() {
	b.updates.Fire(b.owner, b.owner)
}
