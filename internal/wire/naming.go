package wire

import "github.com/nerrad567/intravision-core/internal/entity"

// Reserved payload keys that are not schema fields.
const (
	KeyID   = "Id"
	KeyName = "Name"
	KeyType = "Type"
)

// ToWire converts an internal field name to its wire form (prop_a → PropA).
// Wire keys are mapped back to fields with Schema.FieldByWire; the case
// conversion is not reversible for names containing digits.
func ToWire(field string) string {
	return entity.WireName(field)
}

// IsIdentityKey reports whether key is one of the reserved identity keys.
func IsIdentityKey(key string) bool {
	return key == KeyID || key == KeyName || key == KeyType
}
