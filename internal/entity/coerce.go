package entity

import (
	"encoding/json"

	"github.com/spf13/cast"
)

// Coerce converts a wire-decoded number to the numeric type of current.
//
// JSON carries every number as float64, so a payload value for an int field
// would otherwise never match the field's type. Non-numeric values, and
// values that cannot be converted, are returned unchanged; strict type
// checking still applies to them.
func Coerce(current, value any) any {
	if !isNumber(value) {
		return value
	}

	var (
		out any
		err error
	)
	switch current.(type) {
	case int:
		out, err = cast.ToIntE(value)
	case int8:
		out, err = cast.ToInt8E(value)
	case int16:
		out, err = cast.ToInt16E(value)
	case int32:
		out, err = cast.ToInt32E(value)
	case int64:
		out, err = cast.ToInt64E(value)
	case uint:
		out, err = cast.ToUintE(value)
	case uint8:
		out, err = cast.ToUint8E(value)
	case uint16:
		out, err = cast.ToUint16E(value)
	case uint32:
		out, err = cast.ToUint32E(value)
	case uint64:
		out, err = cast.ToUint64E(value)
	case float32:
		out, err = cast.ToFloat32E(value)
	case float64:
		out, err = cast.ToFloat64E(value)
	default:
		return value
	}
	if err != nil {
		return value
	}
	return out
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return true
	default:
		return false
	}
}
