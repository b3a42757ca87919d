package entity

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a new entity of one concrete variant from a name.
type Constructor func(name string) (Entity, error)

// Registry maps type tags to constructors.
//
// Every concrete variant registers itself at startup; the wire codec uses
// the registry to rebuild entities from payloads that carry a Type field.
//
// All methods are thread-safe.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds a constructor for a type tag.
// Returns ErrTypeRegistered if the tag already has a constructor.
func (r *Registry) Register(typ string, ctor Constructor) error {
	if typ == "" || ctor == nil {
		return fmt.Errorf("entity: register requires a type tag and constructor")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.ctors[typ]; exists {
		return fmt.Errorf("%w: %s", ErrTypeRegistered, typ)
	}
	r.ctors[typ] = ctor
	return nil
}

// New constructs an entity of the given type.
// Returns ErrUnknownType if the tag is not registered.
func (r *Registry) New(typ, name string) (Entity, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[typ]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	return ctor(name)
}

// Has reports whether a type tag is registered.
func (r *Registry) Has(typ string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[typ]
	return ok
}

// Types returns all registered type tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.ctors))
	for t := range r.ctors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
