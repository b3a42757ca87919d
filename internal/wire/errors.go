package wire

import (
	"errors"
	"fmt"

	"github.com/nerrad567/intravision-core/internal/entity"
)

// Domain errors for the wire package.
var (
	// ErrUnknownType is returned when a payload's Type has no registered
	// constructor. It also matches entity.ErrUnknownType.
	ErrUnknownType = fmt.Errorf("wire: %w", entity.ErrUnknownType)

	// ErrMalformedPayload is returned when a payload is not valid JSON or
	// lacks a required field.
	ErrMalformedPayload = errors.New("wire: malformed payload")
)
