package keyed

import (
	"math"
	"reflect"
)

// KeyFunc derives the identity key for an item. The index is provided for
// positional fallback keys on otherwise indistinguishable items.
type KeyFunc[T any] func(item T, index int) any

// nanKey is the canonical stand-in for float NaN keys. Go maps treat NaN
// keys as never equal to themselves; folding every NaN to this sentinel
// restores same-value-zero semantics (NaN matches NaN).
type nanKeyType struct{}

var nanKey nanKeyType

// positionKey is the per-update fallback for incomparable key values.
type positionKey struct{ index int }

// normalizeKey maps an arbitrary key value to a map-safe key with
// same-value-zero equality. Reports false when the value's type is
// incomparable and cannot key a map at all.
func normalizeKey(k any) (any, bool) {
	switch v := k.(type) {
	case float64:
		if math.IsNaN(v) {
			return nanKey, true
		}
		return v, true
	case float32:
		if math.IsNaN(float64(v)) {
			return nanKey, true
		}
		return v, true
	case nil:
		return nil, true
	default:
		if t := reflect.TypeOf(k); !t.Comparable() {
			return nil, false
		}
		return k, true
	}
}

// sameIdentity reports whether two items are the same for untracked-item
// reuse purposes: same-value-zero for comparable dynamic types (NaN keeps
// matching NaN across updates), never for incomparable ones.
func sameIdentity(a, b any) bool {
	na, ok := normalizeKey(a)
	if !ok {
		return false
	}
	nb, ok := normalizeKey(b)
	if !ok {
		return false
	}
	return na == nb
}
