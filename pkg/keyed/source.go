package keyed

import "github.com/elbywan/balises-sub000/pkg/reactive"

// Source produces the ordered sequence the reconciler consumes. It is
// pulled inside the reconciler's tracked evaluation, so a source may read
// other reactive state and the reconciler re-runs when that state changes.
type Source[T any] func() []T

// Slice adapts a literal slice. A literal source never changes, so the
// reconciler runs exactly once.
func Slice[T any](items []T) Source[T] {
	return func() []T { return items }
}

// FromCell adapts a cell holding a slice.
func FromCell[T any](c *reactive.Cell[[]T]) Source[T] {
	return c.Get
}

// FromDerived adapts a derived value producing a slice.
func FromDerived[T any](d *reactive.Derived[[]T]) Source[T] {
	return d.Get
}

// Func adapts a zero-argument pull function. The function is evaluated
// inside the tracked context, so it may itself read cells and derived
// values.
func Func[T any](fn func() []T) Source[T] {
	return fn
}
