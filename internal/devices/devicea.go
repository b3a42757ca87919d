package devices

import (
	"fmt"

	"github.com/nerrad567/intravision-core/internal/entity"
)

// TypeDeviceA is the type tag for DeviceA.
const TypeDeviceA = "DeviceA"

// deviceASchema: prop_a is public, test_value is hidden and read and
// written through the computed test field.
var deviceASchema = entity.NewSchema(TypeDeviceA, entity.KindDevice,
	entity.Stored("prop_a", "Test"),
	entity.Hidden("test_value", "value"),
	entity.ComputedRW("test", getTest, setTest),
)

func getTest(e entity.Entity) any {
	v, _ := e.Property("test_value")
	return v
}

func setTest(e entity.Entity, v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: test is string, got %T", entity.ErrTypeMismatch, v)
	}
	return e.SetField("test_value", s)
}

// DeviceA is a generic device with one string property.
type DeviceA struct {
	*entity.Base
}

// NewDeviceA creates a DeviceA. Returns entity.ErrMissingName for an empty name.
func NewDeviceA(name string) (*DeviceA, error) {
	d := &DeviceA{}
	base, err := entity.NewBase(d, name, deviceASchema)
	if err != nil {
		return nil, err
	}
	d.Base = base
	return d, nil
}

// PropA returns the prop_a value.
func (d *DeviceA) PropA() string {
	v, _ := d.Property("prop_a")
	s, _ := v.(string)
	return s
}

// SetPropA updates prop_a through the guarded setter.
func (d *DeviceA) SetPropA(v string) error {
	return d.UpdateProperty("prop_a", v)
}

// Test returns the hidden backing value exposed as the computed Test field.
func (d *DeviceA) Test() string {
	v, _ := d.Property("test")
	s, _ := v.(string)
	return s
}

// SetTest updates Test through the guarded setter.
func (d *DeviceA) SetTest(v string) error {
	return d.UpdateProperty("test", v)
}
