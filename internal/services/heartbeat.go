package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/intravision-core/internal/entity"
)

// TypeHeartbeat is the type tag for Heartbeat.
const TypeHeartbeat = "Heartbeat"

// defaultHeartbeatPeriod is used when the period property is zero or negative.
const defaultHeartbeatPeriod = time.Second

var heartbeatSchema = entity.NewSchema(TypeHeartbeat, entity.KindService,
	entity.Stored("beats", 0),
	entity.Stored("period_ms", int(defaultHeartbeatPeriod/time.Millisecond)),
	entity.Computed("last_beat", func(e entity.Entity) any {
		h, ok := e.(*Heartbeat)
		if !ok {
			return ""
		}
		return h.LastBeat()
	}),
)

// Heartbeat is a service that counts up at a fixed period while running.
// Observers use it to confirm the core is alive and pushing updates.
type Heartbeat struct {
	*entity.Base

	mu       sync.Mutex
	lastBeat time.Time
}

// NewHeartbeat creates a stopped heartbeat service.
func NewHeartbeat(name string) (*Heartbeat, error) {
	h := &Heartbeat{}
	base, err := entity.NewBase(h, name, heartbeatSchema)
	if err != nil {
		return nil, err
	}
	h.Base = base
	return h, nil
}

// Beats returns the current beat count.
func (h *Heartbeat) Beats() int {
	v, _ := h.Property("beats")
	n, _ := v.(int)
	return n
}

// Period returns the configured beat period.
func (h *Heartbeat) Period() time.Duration {
	v, _ := h.Property("period_ms")
	ms, _ := v.(int)
	if ms <= 0 {
		return defaultHeartbeatPeriod
	}
	return time.Duration(ms) * time.Millisecond
}

// LastBeat returns the RFC3339 time of the last beat, or "" before the first.
func (h *Heartbeat) LastBeat() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastBeat.IsZero() {
		return ""
	}
	return h.lastBeat.UTC().Format(time.RFC3339Nano)
}

// Beat increments the counter once. The increment is atomic with respect to
// other writers of beats, such as MQTT ingest.
func (h *Heartbeat) Beat() error {
	h.mu.Lock()
	h.lastBeat = time.Now()
	h.mu.Unlock()

	return h.UpdatePropertyFunc("beats", func(v any) any {
		n, _ := v.(int)
		return n + 1
	})
}

// Run beats every Period until ctx is cancelled.
// The period is re-read after each beat so updates to period_ms take effect.
func (h *Heartbeat) Run(ctx context.Context) error {
	timer := time.NewTimer(h.Period())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if err := h.Beat(); err != nil {
				return fmt.Errorf("heartbeat %s: %w", h.Name(), err)
			}
			timer.Reset(h.Period())
		}
	}
}
