package reactive

// Typed cell wrappers for the handful of value shapes the engine's own
// tests and benchmarks churn on. Each method is a plain Update under the
// hood, so the usual batching and equality rules apply.

// IntCell wraps Cell[int] with counter-style mutators.
type IntCell struct {
	*Cell[int]
}

// NewIntCell creates an IntCell with the given initial value.
func NewIntCell(initial int) *IntCell {
	return &IntCell{NewCell(initial)}
}

// Add shifts the value by delta. Negative deltas subtract.
func (c *IntCell) Add(delta int) {
	c.Update(func(v int) int { return v + delta })
}

// Inc increments the value by 1.
func (c *IntCell) Inc() { c.Add(1) }

// Dec decrements the value by 1.
func (c *IntCell) Dec() { c.Add(-1) }

// BoolCell wraps Cell[bool].
type BoolCell struct {
	*Cell[bool]
}

// NewBoolCell creates a BoolCell with the given initial value.
func NewBoolCell(initial bool) *BoolCell {
	return &BoolCell{NewCell(initial)}
}

// Toggle flips the value.
func (c *BoolCell) Toggle() {
	c.Update(func(v bool) bool { return !v })
}

// SliceCell wraps Cell[[]T]. Mutators operate on a fresh copy so earlier
// reads keep their snapshot, and every mutation notifies: slices are
// incomparable, so the default equality policy treats each write as a
// change.
type SliceCell[T any] struct {
	*Cell[[]T]
}

// NewSliceCell creates a SliceCell. A nil initial value becomes an empty
// slice so Len works uniformly.
func NewSliceCell[T any](initial []T) *SliceCell[T] {
	if initial == nil {
		initial = []T{}
	}
	return &SliceCell[T]{NewCell(initial)}
}

// mutate applies an in-place edit to a copy of the slice. Out-of-bounds
// indexes leave the cell untouched; the caller's index checks live in the
// edit function via the bound guard.
func (c *SliceCell[T]) mutate(bound func(n int) bool, edit func(items []T)) {
	c.Update(func(items []T) []T {
		if !bound(len(items)) {
			return items
		}
		next := make([]T, len(items))
		copy(next, items)
		edit(next)
		return next
	})
}

// Append adds an item at the end.
func (c *SliceCell[T]) Append(item T) {
	c.Update(func(items []T) []T {
		return append(items[:len(items):len(items)], item)
	})
}

// RemoveAt drops the item at index. Out-of-bounds indexes are ignored.
func (c *SliceCell[T]) RemoveAt(index int) {
	c.Update(func(items []T) []T {
		if index < 0 || index >= len(items) {
			return items
		}
		next := make([]T, 0, len(items)-1)
		next = append(next, items[:index]...)
		return append(next, items[index+1:]...)
	})
}

// SetAt replaces the item at index. Out-of-bounds indexes are ignored.
func (c *SliceCell[T]) SetAt(index int, item T) {
	c.mutate(
		func(n int) bool { return index >= 0 && index < n },
		func(items []T) { items[index] = item },
	)
}

// Swap exchanges the items at i and j. Out-of-bounds indexes are ignored.
func (c *SliceCell[T]) Swap(i, j int) {
	c.mutate(
		func(n int) bool { return i >= 0 && i < n && j >= 0 && j < n },
		func(items []T) { items[i], items[j] = items[j], items[i] },
	)
}

// Clear resets to an empty slice.
func (c *SliceCell[T]) Clear() {
	c.Set([]T{})
}

// Len returns the slice length, tracked.
func (c *SliceCell[T]) Len() int {
	return len(c.Get())
}
