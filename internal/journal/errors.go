package journal

import "errors"

// Domain errors for the journal package.
var (
	// ErrMissingEntityID is returned when an entry has no entity ID.
	ErrMissingEntityID = errors.New("journal: entity id is required")

	// ErrMissingEvent is returned when an entry has no event kind.
	ErrMissingEvent = errors.New("journal: event is required")
)
