package devices

import (
	"fmt"

	"github.com/nerrad567/intravision-core/internal/entity"
)

// Register adds every device variant in this package to the registry.
func Register(reg *entity.Registry) error {
	ctors := map[string]entity.Constructor{
		TypeDeviceA: func(name string) (entity.Entity, error) {
			d, err := NewDeviceA(name)
			if err != nil {
				return nil, err
			}
			return d, nil
		},
		TypeDeviceB: func(name string) (entity.Entity, error) {
			d, err := NewDeviceB(name)
			if err != nil {
				return nil, err
			}
			return d, nil
		},
	}
	for typ, ctor := range ctors {
		if err := reg.Register(typ, ctor); err != nil {
			return fmt.Errorf("registering device %s: %w", typ, err)
		}
	}
	return nil
}
