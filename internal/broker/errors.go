package broker

import "errors"

// Domain errors for the broker package.
var (
	// ErrSystemNotRegistered is returned or logged when an operation names
	// a system the broker does not know.
	ErrSystemNotRegistered = errors.New("broker: system not registered")

	// ErrUnknownMessageKind is logged for inbound messages with an
	// unrecognised Event.
	ErrUnknownMessageKind = errors.New("broker: unknown message kind")

	// ErrDeliveryFailed is logged when a message cannot be queued for a
	// connection.
	ErrDeliveryFailed = errors.New("broker: delivery failed")

	// ErrAlreadyStarted is returned by Start when the broker is running.
	ErrAlreadyStarted = errors.New("broker: already started")
)
