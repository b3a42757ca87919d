package entity

import "errors"

// Domain errors for the entity package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, entity.ErrTypeMismatch) {
//	    // value had the wrong dynamic type
//	}
var (
	// ErrMissingName is returned when an entity is constructed without a name.
	ErrMissingName = errors.New("entity: instantiated without a name")

	// ErrUnknownProperty is returned when a property name is not in the entity's schema.
	ErrUnknownProperty = errors.New("entity: unknown property")

	// ErrReadOnlyProperty is returned when assigning to a computed property.
	ErrReadOnlyProperty = errors.New("entity: property is read-only")

	// ErrTypeMismatch is returned when a new value's type differs from the current value's type.
	ErrTypeMismatch = errors.New("entity: type mismatch")

	// ErrUnknownType is returned when a type tag has no registered constructor.
	ErrUnknownType = errors.New("entity: unknown type")

	// ErrTypeRegistered is returned when registering a type tag twice.
	ErrTypeRegistered = errors.New("entity: type already registered")
)
