package broker

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/nerrad567/intravision-core/internal/entity"
	"github.com/nerrad567/intravision-core/internal/event"
	"github.com/nerrad567/intravision-core/internal/infrastructure/config"
	"github.com/nerrad567/intravision-core/internal/infrastructure/logging"
	"github.com/nerrad567/intravision-core/internal/journal"
	"github.com/nerrad567/intravision-core/internal/system"
	"github.com/nerrad567/intravision-core/internal/wire"
)

// Telemetry receives numeric entity values after each entity update.
// The InfluxDB client satisfies it.
type Telemetry interface {
	WriteEntityMetric(entityID, entityType, field string, value float64)
}

// Journal records published messages and serves them back.
// journal.SQLiteRepository satisfies it.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) error
	History(ctx context.Context, entityID string, limit int) ([]journal.Entry, error)
}

// Deps holds the dependencies required by the broker.
type Deps struct {
	Config config.BrokerConfig
	WS     config.WebSocketConfig
	Logger *logging.Logger
	Codec  *wire.Codec

	// Telemetry and Journal are optional.
	Telemetry    Telemetry
	Journal      Journal
	HistoryLimit int

	Version string
}

// entitySub is the broker's subscription to one entity's update channel.
type entitySub struct {
	entity entity.Entity
	id     event.SubscriptionID
}

// Broker tracks registered systems, connected clients, and the entities it
// listens to.
//
// One RWMutex guards systems, clients, entities, and each client's
// subscribed system. It is never held while a message is written; sends
// only enqueue onto a client's buffered channel.
type Broker struct {
	cfg          config.BrokerConfig
	wsCfg        config.WebSocketConfig
	logger       *logging.Logger
	codec        *wire.Codec
	telemetry    Telemetry
	journal      Journal
	historyLimit int
	version      string

	mu         sync.RWMutex
	systems    []*system.System
	systemSubs map[string]event.SubscriptionID
	clients    map[*client]struct{}
	entities   map[string]entitySub
	closing    bool

	// lifeMu serialises Start and Shutdown.
	lifeMu   sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
	pumps    sync.WaitGroup
}

// New creates a broker with the given dependencies.
//
// The broker does not listen until Start is called; systems may be
// registered before or after.
//
// Returns:
//   - *Broker: Configured broker ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Broker, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Codec == nil {
		return nil, fmt.Errorf("wire codec is required")
	}

	return &Broker{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		logger:       deps.Logger,
		codec:        deps.Codec,
		telemetry:    deps.Telemetry,
		journal:      deps.Journal,
		historyLimit: deps.HistoryLimit,
		version:      deps.Version,
		systemSubs:   make(map[string]event.SubscriptionID),
		clients:      make(map[*client]struct{}),
		entities:     make(map[string]entitySub),
	}, nil
}

// RegisterSystem adds a system and subscribes to its aggregate channel and
// to every current member. Registering a system twice is a no-op.
//
// Members added to the system later are picked up the next time the
// system fires its own update.
func (b *Broker) RegisterSystem(sys *system.System) error {
	if sys == nil {
		return fmt.Errorf("broker: nil system")
	}

	b.mu.Lock()
	if b.findSystemLocked(sys.ID()) != nil {
		b.mu.Unlock()
		b.logger.Debug("system already registered", "system", sys.Name())
		return nil
	}
	b.systems = append(b.systems, sys)
	b.systemSubs[sys.ID()] = sys.Updates().Subscribe(b.handleSystemUpdate)
	added := b.subscribeMembersLocked(sys)
	b.mu.Unlock()

	b.logger.Info("system registered",
		"system", sys.Name(),
		"system_id", sys.ID(),
		"entities_subscribed", added,
	)
	return nil
}

// UnregisterSystem removes a system and detaches from its aggregate
// channel. Entities no other registered system contains are detached too.
//
// Returns ErrSystemNotRegistered (also logged) if the system is unknown.
func (b *Broker) UnregisterSystem(sys *system.System) error {
	if sys == nil {
		return fmt.Errorf("broker: nil system")
	}

	b.mu.Lock()
	idx := -1
	for i, s := range b.systems {
		if s.ID() == sys.ID() {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.mu.Unlock()
		b.logger.Error("cannot unregister system",
			"system", sys.Name(),
			"error", ErrSystemNotRegistered,
		)
		return fmt.Errorf("%w: %s", ErrSystemNotRegistered, sys.Name())
	}

	registered := b.systems[idx]
	next := make([]*system.System, 0, len(b.systems)-1)
	next = append(next, b.systems[:idx]...)
	b.systems = append(next, b.systems[idx+1:]...)

	if id, ok := b.systemSubs[registered.ID()]; ok {
		_ = registered.Updates().Unsubscribe(id) //nolint:errcheck // Subscribed by RegisterSystem
		delete(b.systemSubs, registered.ID())
	}
	b.pruneEntitiesLocked()
	b.mu.Unlock()

	b.logger.Info("system unregistered", "system", sys.Name())
	return nil
}

// subscribeMembersLocked subscribes to members not yet tracked.
// Caller must hold b.mu for writing.
func (b *Broker) subscribeMembersLocked(sys *system.System) int {
	added := 0
	for _, m := range sys.Members() {
		if _, ok := b.entities[m.ID()]; ok {
			continue
		}
		b.entities[m.ID()] = entitySub{
			entity: m,
			id:     m.Updates().Subscribe(b.handleEntityUpdate),
		}
		added++
	}
	return added
}

// pruneEntitiesLocked detaches entities that no registered system contains.
// Caller must hold b.mu for writing.
func (b *Broker) pruneEntitiesLocked() {
	for id, sub := range b.entities {
		if b.ownerCountLocked(sub.entity) > 0 {
			continue
		}
		_ = sub.entity.Updates().Unsubscribe(sub.id) //nolint:errcheck // Subscribed by subscribeMembersLocked
		delete(b.entities, id)
	}
}

func (b *Broker) ownerCountLocked(e entity.Entity) int {
	n := 0
	for _, s := range b.systems {
		if s.Contains(e) {
			n++
		}
	}
	return n
}

func (b *Broker) findSystemLocked(id string) *system.System {
	for _, s := range b.systems {
		if s.ID() == id {
			return s
		}
	}
	return nil
}

// subscribersLocked returns the clients subscribed to a system.
// Caller must hold b.mu.
func (b *Broker) subscribersLocked(systemID string) []*client {
	var out []*client
	for c := range b.clients {
		if c.systemID == systemID {
			out = append(out, c)
		}
	}
	return out
}

// Systems returns the registered systems in registration order.
func (b *Broker) Systems() []*system.System {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*system.System, len(b.systems))
	copy(out, b.systems)
	return out
}

// System looks up a registered system by ID.
func (b *Broker) System(id string) (*system.System, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.findSystemLocked(id)
	return s, s != nil
}

// FindEntity returns a member of any registered system by entity ID.
func (b *Broker) FindEntity(id string) (entity.Entity, bool) {
	for _, s := range b.Systems() {
		for _, m := range s.Members() {
			if m.ID() == id {
				return m, true
			}
		}
	}
	return nil, false
}

// ClientCount returns the number of connected websocket clients.
func (b *Broker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// SubscribedEntityCount returns the number of entity channels the broker
// is attached to.
func (b *Broker) SubscribedEntityCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entities)
}
