package ingest

import "errors"

var (
	// ErrEntityNotFound is returned when no registered system contains the entity.
	ErrEntityNotFound = errors.New("ingest: entity not found")

	// ErrInvalidTopic is returned for a topic outside the state namespace.
	ErrInvalidTopic = errors.New("ingest: invalid state topic")

	// ErrInvalidPayload is returned when the payload is not a JSON object.
	ErrInvalidPayload = errors.New("ingest: invalid payload")
)
