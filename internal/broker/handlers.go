package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cast"

	"github.com/nerrad567/intravision-core/internal/entity"
	"github.com/nerrad567/intravision-core/internal/journal"
	"github.com/nerrad567/intravision-core/internal/system"
	"github.com/nerrad567/intravision-core/internal/wire"
)

// journalTimeout bounds one journal write from a fan-out round.
const journalTimeout = 2 * time.Second

// handleSystemUpdate subscribes to members added since the last fire, then
// pushes a fresh Initialisation snapshot to the system's subscribers.
func (b *Broker) handleSystemUpdate(_ any, sys *system.System) error {
	b.mu.Lock()
	if b.findSystemLocked(sys.ID()) == nil {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSystemNotRegistered, sys.Name())
	}
	added := b.subscribeMembersLocked(sys)
	targets := b.subscribersLocked(sys.ID())
	b.mu.Unlock()

	if added > 0 {
		b.logger.Debug("subscribed to new system members", "system", sys.Name(), "added", added)
	}

	msg := wire.NewInitialisation(sys)
	data, err := b.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding %s snapshot: %w", sys.Name(), err)
	}

	b.fanOut(targets, data, msg.Event)
	b.record(sys.ID(), sys.ID(), msg.Event, data)
	return nil
}

// handleEntityUpdate forwards an entity snapshot to every client subscribed
// to a registered system that contains the entity.
func (b *Broker) handleEntityUpdate(_ any, e entity.Entity) error {
	type route struct {
		sys     *system.System
		targets []*client
	}

	b.mu.RLock()
	var routes []route
	for _, s := range b.systems {
		if s.Contains(e) {
			routes = append(routes, route{sys: s, targets: b.subscribersLocked(s.ID())})
		}
	}
	b.mu.RUnlock()

	for _, r := range routes {
		msg := wire.NewEntityUpdate(e, r.sys.ID())
		data, err := b.codec.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encoding %s update: %w", e.Name(), err)
		}
		b.fanOut(r.targets, data, msg.Event)
		b.record(e.ID(), r.sys.ID(), msg.Event, data)
	}

	b.writeTelemetry(e)
	return nil
}

// fanOut queues data on each target. A failure is logged per client and
// does not stop the round.
func (b *Broker) fanOut(targets []*client, data []byte, event string) {
	for _, c := range targets {
		if err := c.trySend(data); err != nil {
			b.logger.Warn("websocket delivery failed",
				"event", event,
				"remote", c.remote,
				"error", err,
			)
		}
	}
	if len(targets) > 0 {
		b.logger.Debug("broadcast sent", "event", event, "recipients", len(targets))
	}
}

// handleMessage decodes an inbound frame and dispatches it by Event.
func (b *Broker) handleMessage(c *client, data []byte) {
	msg, err := b.codec.DecodeMessage(data)
	if err != nil {
		b.logger.Error("invalid websocket message", "remote", c.remote, "error", err)
		return
	}

	switch msg.Event {
	case wire.EventInitialise:
		b.initialise(c, msg.SystemID)
	default:
		b.logger.Error("unknown websocket message kind",
			"remote", c.remote,
			"event", msg.Event,
			"error", fmt.Errorf("%w: %s", ErrUnknownMessageKind, msg.Event),
		)
	}
}

// initialise queues a system snapshot for a client and then subscribes it.
//
// Both happen under b.mu, so any update broadcast for the system is either
// already reflected in the snapshot or queued after it.
func (b *Broker) initialise(c *client, systemID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sys := b.findSystemLocked(systemID)
	if sys == nil {
		b.logger.Error("initialise for unknown system",
			"remote", c.remote,
			"system_id", systemID,
			"error", ErrSystemNotRegistered,
		)
		return
	}
	if _, connected := b.clients[c]; !connected {
		return
	}

	data, err := b.codec.Marshal(wire.NewInitialisation(sys))
	if err != nil {
		b.logger.Error("encoding system snapshot failed", "system", sys.Name(), "error", err)
		return
	}
	if err := c.trySend(data); err != nil {
		b.logger.Warn("websocket delivery failed",
			"event", wire.EventInitialisation,
			"remote", c.remote,
			"error", err,
		)
	}
	c.systemID = systemID

	b.logger.Info("websocket client subscribed", "remote", c.remote, "system", sys.Name())
}

// record appends a published message to the journal, if one is configured.
func (b *Broker) record(entityID, systemID, event string, payload []byte) {
	if b.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
	defer cancel()

	err := b.journal.Record(ctx, journal.Entry{
		EntityID: entityID,
		SystemID: systemID,
		Event:    event,
		Payload:  payload,
	})
	if err != nil {
		b.logger.Debug("journal write failed", "entity_id", entityID, "error", err)
	}
}

// writeTelemetry sends every numeric or boolean serialisable field of e.
func (b *Broker) writeTelemetry(e entity.Entity) {
	if b.telemetry == nil {
		return
	}
	for _, f := range e.Schema().Fields() {
		if !f.Serializable || e.IsExcluded(f.Name) {
			continue
		}
		v, ok := e.Property(f.Name)
		if !ok {
			continue
		}
		if value, ok := metricValue(v); ok {
			b.telemetry.WriteEntityMetric(e.ID(), e.Type(), f.Name, value)
		}
	}
}

// metricValue converts numbers and booleans to float64. Booleans map to 0 or 1.
func metricValue(v any) (float64, bool) {
	switch v.(type) {
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	default:
		return 0, false
	}
}
