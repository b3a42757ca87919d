package journal

import (
	"context"
	"encoding/json"
	"time"
)

// History limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// Entry is one published message.
//
// EntityID is the entity the message is about; for system snapshots it is
// the system's own ID.
type Entry struct {
	ID        int64           `json:"Id"`
	EntityID  string          `json:"EntityID"`
	SystemID  string          `json:"SystemID"`
	Event     string          `json:"Event"`
	Payload   json.RawMessage `json:"Payload"`
	CreatedAt time.Time       `json:"CreatedAt"`
}

// Repository stores and retrieves journal entries.
//
// Implementations must be thread-safe and use UTC timestamps.
type Repository interface {
	// Record appends an entry. CreatedAt defaults to now.
	Record(ctx context.Context, e Entry) error

	// History returns up to limit entries for an entity, newest first.
	// A non-positive limit means DefaultHistoryLimit; limits above
	// MaxHistoryLimit are clamped.
	History(ctx context.Context, entityID string, limit int) ([]Entry, error)

	// Prune deletes entries older than the given age and returns the count.
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// clampLimit applies the history limit bounds.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
