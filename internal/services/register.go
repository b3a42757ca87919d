package services

import (
	"fmt"

	"github.com/nerrad567/intravision-core/internal/entity"
)

// Register adds every service variant in this package to the registry.
func Register(reg *entity.Registry) error {
	err := reg.Register(TypeHeartbeat, func(name string) (entity.Entity, error) {
		h, err := NewHeartbeat(name)
		if err != nil {
			return nil, err
		}
		return h, nil
	})
	if err != nil {
		return fmt.Errorf("registering service %s: %w", TypeHeartbeat, err)
	}
	return nil
}
