package keyed

import "github.com/elbywan/balises-sub000/pkg/reactive"

// Item is the per-entry handle passed to EachTracked render callbacks.
// It exposes the entry's current item through a narrow cell: when the key
// survives an update, the new item is written into the cell instead of
// re-running the render callback, so only consumers of Value re-run.
type Item[T any] struct {
	cell *reactive.Cell[T]
}

// Value returns the current item and subscribes the current listener.
func (it *Item[T]) Value() T {
	return it.cell.Get()
}

// Peek returns the current item without subscribing.
func (it *Item[T]) Peek() T {
	return it.cell.Peek()
}
