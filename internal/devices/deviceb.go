package devices

import "github.com/nerrad567/intravision-core/internal/entity"

// TypeDeviceB is the type tag for DeviceB.
const TypeDeviceB = "DeviceB"

var deviceBSchema = entity.NewSchema(TypeDeviceB, entity.KindDevice,
	entity.Stored("prop_b", "Test"),
)

// DeviceB is a device whose properties are kept off the wire.
// Only its identity fields are serialised.
type DeviceB struct {
	*entity.Base
}

// NewDeviceB creates a DeviceB. Returns entity.ErrMissingName for an empty name.
func NewDeviceB(name string) (*DeviceB, error) {
	d := &DeviceB{}
	base, err := entity.NewBase(d, name, deviceBSchema)
	if err != nil {
		return nil, err
	}
	d.Base = base
	d.Exclude("prop_a", "prop_b")
	return d, nil
}

// PropB returns the prop_b value.
func (d *DeviceB) PropB() string {
	v, _ := d.Property("prop_b")
	s, _ := v.(string)
	return s
}
