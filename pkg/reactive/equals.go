package reactive

import "reflect"

// defaultEquals provides type-appropriate equality checking.
// Comparable dynamic types use ==; incomparable types (slices, maps,
// funcs, structs containing them) never compare equal, so writes of such
// values always notify. Deep equality is deliberately not attempted.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	case nil:
		return any(b) == nil
	default:
		t := reflect.TypeOf(av)
		if t == nil || !t.Comparable() {
			return false
		}
		// Safe: interface comparison only panics when both dynamic types
		// are identical and incomparable, which the check above excludes.
		return any(a) == any(b)
	}
}
