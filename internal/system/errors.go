package system

import "errors"

var (
	// ErrMissingName is returned when a system is created without a name.
	ErrMissingName = errors.New("system: instantiated without a name")

	// ErrAlreadyMember is returned when adding an entity that is already a member.
	ErrAlreadyMember = errors.New("system: entity already a member")

	// ErrNotMember is returned when removing an entity that is not a member.
	ErrNotMember = errors.New("system: entity not a member")

	// ErrWrongKind is returned when adding a service as a device or vice versa.
	ErrWrongKind = errors.New("system: entity has the wrong kind")
)
