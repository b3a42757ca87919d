package system

import (
	"fmt"
	"sync"

	"github.com/nerrad567/intravision-core/internal/entity"
	"github.com/nerrad567/intravision-core/internal/event"
)

// System owns an ordered set of devices and an ordered set of services.
//
// All methods are thread-safe. Devices and Services return snapshots.
type System struct {
	id   string
	name string

	mu       sync.RWMutex
	devices  []entity.Entity
	services []entity.Entity

	updates *event.Channel[*System]
}

// New creates an empty system.
// The identifier is derived from the name the same way entity IDs are.
func New(name string) (*System, error) {
	if name == "" {
		return nil, ErrMissingName
	}
	s := &System{
		id:      entity.NewID(name),
		name:    name,
		updates: event.NewChannel[*System](),
	}
	s.updates.SetName("system:" + name)
	return s, nil
}

// SetLogger sets the logger used by the system's update channel.
func (s *System) SetLogger(logger event.Logger) {
	s.updates.SetLogger(logger)
}

// ID returns the system identifier.
func (s *System) ID() string { return s.id }

// Name returns the system name.
func (s *System) Name() string { return s.name }

// Updates returns the aggregate-level update channel.
func (s *System) Updates() *event.Channel[*System] { return s.updates }

// AddDevice appends a device. Returns ErrAlreadyMember if it is already present.
func (s *System) AddDevice(e entity.Entity) error {
	return s.add(&s.devices, e, entity.KindDevice)
}

// AddService appends a service. Returns ErrAlreadyMember if it is already present.
func (s *System) AddService(e entity.Entity) error {
	return s.add(&s.services, e, entity.KindService)
}

// Add appends an entity to the device or service list according to its kind.
func (s *System) Add(e entity.Entity) error {
	if e == nil {
		return fmt.Errorf("system: nil entity")
	}
	if e.Kind() == entity.KindService {
		return s.AddService(e)
	}
	return s.AddDevice(e)
}

// RemoveDevice removes a device. Returns ErrNotMember if it is absent.
func (s *System) RemoveDevice(e entity.Entity) error {
	return s.remove(&s.devices, e)
}

// RemoveService removes a service. Returns ErrNotMember if it is absent.
func (s *System) RemoveService(e entity.Entity) error {
	return s.remove(&s.services, e)
}

func (s *System) add(list *[]entity.Entity, e entity.Entity, kind entity.Kind) error {
	if e == nil {
		return fmt.Errorf("system: nil entity")
	}
	if e.Kind() != kind {
		return fmt.Errorf("%w: %s is a %s", ErrWrongKind, e.Name(), e.Kind())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range *list {
		if entity.SameEntity(m, e) {
			return fmt.Errorf("%w: %s in %s", ErrAlreadyMember, e.Name(), s.name)
		}
	}
	*list = append(*list, e)
	return nil
}

func (s *System) remove(list *[]entity.Entity, e entity.Entity) error {
	if e == nil {
		return fmt.Errorf("system: nil entity")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range *list {
		if entity.SameEntity(m, e) {
			next := make([]entity.Entity, 0, len(*list)-1)
			next = append(next, (*list)[:i]...)
			next = append(next, (*list)[i+1:]...)
			*list = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s in %s", ErrNotMember, e.Name(), s.name)
}

// Devices returns a snapshot of the device members in insertion order.
func (s *System) Devices() []entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Entity, len(s.devices))
	copy(out, s.devices)
	return out
}

// Services returns a snapshot of the service members in insertion order.
func (s *System) Services() []entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Entity, len(s.services))
	copy(out, s.services)
	return out
}

// Members returns devices followed by services.
func (s *System) Members() []entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Entity, 0, len(s.devices)+len(s.services))
	out = append(out, s.devices...)
	out = append(out, s.services...)
	return out
}

// Contains reports whether e is a device or service member.
func (s *System) Contains(e entity.Entity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.devices {
		if entity.SameEntity(m, e) {
			return true
		}
	}
	for _, m := range s.services {
		if entity.SameEntity(m, e) {
			return true
		}
	}
	return false
}

// RequestUpdate fires the aggregate channel with the system as payload.
// There is no debounce; callers must not spam it.
func (s *System) RequestUpdate() {
	s.updates.Fire(s, s)
}
