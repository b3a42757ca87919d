package entity

import (
	"fmt"

	"github.com/iancoleman/strcase"
)

// Kind distinguishes devices from services.
type Kind string

// Entity kinds.
const (
	KindDevice  Kind = "device"
	KindService Kind = "service"
)

// Field describes one attribute of an entity variant.
//
// Stored fields hold a value in the entity and start at Default. Computed
// fields have no storage; Compute is evaluated whenever the value is read
// (for example at serialisation time). A computed field with an Assign
// func is settable; without one it is read-only.
type Field struct {
	// Name is the internal snake_case attribute name (e.g. "prop_a").
	Name string

	// Serializable controls whether the field appears in wire payloads.
	Serializable bool

	// Default is the initial value for stored fields. Its dynamic type is
	// the type UpdateProperty enforces. Use immutable values (numbers,
	// strings, bools); reference types would be shared between instances.
	Default any

	// Compute returns the value of a computed field. Nil for stored fields.
	Compute func(Entity) any

	// Assign stores a value through a computed field, usually into a
	// hidden backing field. Nil for stored and read-only computed fields.
	Assign func(Entity, any) error

	// Wire is the PascalCase key used in payloads. Filled in by NewSchema.
	Wire string
}

// IsComputed reports whether the field is an accessor with no storage.
func (f Field) IsComputed() bool {
	return f.Compute != nil
}

// Settable reports whether the field accepts assignment.
func (f Field) Settable() bool {
	return !f.IsComputed() || f.Assign != nil
}

// Stored declares a serialisable stored field.
func Stored(name string, def any) Field {
	return Field{Name: name, Serializable: true, Default: def}
}

// Hidden declares a stored field that is never serialised.
func Hidden(name string, def any) Field {
	return Field{Name: name, Serializable: false, Default: def}
}

// Computed declares a serialisable read-only field evaluated on demand.
func Computed(name string, fn func(Entity) any) Field {
	return Field{Name: name, Serializable: true, Compute: fn}
}

// ComputedRW declares a serialisable computed field with a setter.
func ComputedRW(name string, get func(Entity) any, set func(Entity, any) error) Field {
	return Field{Name: name, Serializable: true, Compute: get, Assign: set}
}

// WireName converts an internal field name to its payload key
// (prop_a → PropA).
func WireName(field string) string {
	return strcase.ToCamel(field)
}

// Schema is the static field table for one concrete entity variant.
// It is built once per type and shared by all instances.
type Schema struct {
	typ    string
	kind   Kind
	fields []Field
	index  map[string]int
	wire   map[string]int
}

// NewSchema builds the field table for a variant.
//
// It panics if typ is empty or a field name is empty or repeated; schemas
// are declared at package level so these are programming errors.
func NewSchema(typ string, kind Kind, fields ...Field) *Schema {
	if typ == "" {
		panic("entity: schema type tag is required")
	}
	s := &Schema{
		typ:    typ,
		kind:   kind,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
		wire:   make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			panic(fmt.Sprintf("entity: %s schema has a field without a name", typ))
		}
		if _, dup := s.index[f.Name]; dup {
			panic(fmt.Sprintf("entity: %s schema declares %q twice", typ, f.Name))
		}
		f.Wire = WireName(f.Name)
		if _, dup := s.wire[f.Wire]; dup {
			panic(fmt.Sprintf("entity: %s schema has two fields named %q on the wire", typ, f.Wire))
		}
		s.index[f.Name] = len(s.fields)
		s.wire[f.Wire] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Type returns the variant's type tag.
func (s *Schema) Type() string { return s.typ }

// Kind returns whether the variant is a device or a service.
func (s *Schema) Kind() Kind { return s.kind }

// Fields returns the fields in declaration order.
// The returned slice must not be modified.
func (s *Schema) Fields() []Field { return s.fields }

// Field looks up a field by its snake_case name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// FieldByWire looks up a field by its payload key.
func (s *Schema) FieldByWire(key string) (Field, bool) {
	i, ok := s.wire[key]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}
