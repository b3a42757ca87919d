// Package entity provides the base behaviour shared by every device and
// service in Intravision Core.
//
// An entity is a thin property bag with a stable identity, a type tag, and an
// observer channel that fires when the entity changes. Mutations go through a
// single guarded path (UpdateProperty) which triggers a debounced
// notification: the first change after a quiet period is announced
// immediately, and a burst of changes inside the cool-down window is
// coalesced into exactly one trailing announcement.
//
// # Key Types
//
//   - Entity: The interface every device and service variant satisfies
//   - Base: Embeddable implementation of Entity
//   - Schema: Static per-variant field table (name, serializable, accessor, wire key)
//   - Registry: Type tag → constructor lookup used to rebuild entities from wire payloads
//
// # Defining a Variant
//
//	var lampSchema = entity.NewSchema("Lamp", entity.KindDevice,
//	    entity.Stored("level", 0),
//	    entity.Hidden("driver_handle", ""),
//	    entity.Computed("is_on", func(e entity.Entity) any {
//	        v, _ := e.Property("level")
//	        return v.(int) > 0
//	    }),
//	    entity.ComputedRW("percent", getPercent, setPercent),
//	)
//
//	type Lamp struct{ *entity.Base }
//
//	func NewLamp(name string) (*Lamp, error) {
//	    l := &Lamp{}
//	    base, err := entity.NewBase(l, name, lampSchema)
//	    if err != nil {
//	        return nil, err
//	    }
//	    l.Base = base
//	    return l, nil
//	}
//
// # Identity
//
// Entity identifiers are name-based UUIDs (version 5, X.500 namespace), so the
// same name always yields the same identifier. Re-creating an entity with the
// same name is idempotent from the point of view of anything keyed by ID.
//
// # Thread Safety
//
// All Base methods are safe for concurrent use. The debounce check-and-set is
// performed under a per-entity mutex so concurrent RequestUpdate calls never
// schedule two trailing notifications and never lose one.
package entity
