package reactive

import "sync"

// Cell is a mutable reactive value container, the only node writers mutate
// directly. Reading a Cell's value while another node is evaluating (a
// derived computation or a reaction body) automatically subscribes that node
// to receive notifications when the value changes.
type Cell[T any] struct {
	base nodeBase

	// value is the current cell value.
	value T

	// mu protects the value.
	mu sync.RWMutex

	// equal is the equality function used to decide whether a write changed
	// the value. If nil, uses default equality checking.
	equal func(T, T) bool
}

// NewCell creates a new cell with the given initial value.
func NewCell[T any](initial T) *Cell[T] {
	engineStats.cellsCreated.Add(1)
	return &Cell[T]{
		base: nodeBase{
			id: nextID(),
		},
		value: initial,
	}
}

// Get returns the current value and subscribes the current listener.
// If called during a tracked evaluation, the evaluating node will be
// notified when this cell's value changes.
func (c *Cell[T]) Get() T {
	c.mu.RLock()
	value := c.value
	c.mu.RUnlock()

	// Track dependency (after releasing the value lock to prevent deadlock)
	if listener := getCurrentListener(); listener != nil {
		c.base.subscribe(listener)
		if t, ok := listener.(tracker); ok {
			t.addSource(&c.base)
		}
	}

	return value
}

// Peek returns the current value without subscribing.
// This is the explicit untracked-read escape hatch.
func (c *Cell[T]) Peek() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Set updates the cell's value and notifies subscribers if the value
// changed. Inside a batch the notification is deferred until the batch
// settles; outside a batch it behaves as an implicit single-write batch
// and affected reactions run before Set returns.
func (c *Cell[T]) Set(value T) {
	c.mu.Lock()
	changed := !c.equals(c.value, value)
	if changed {
		c.value = value
	}
	c.mu.Unlock()

	if changed {
		engineStats.cellWrites.Add(1)
		c.base.notifySubscribers()
		if getBatchDepth() == 0 {
			flushPending()
		}
	}
}

// Update atomically reads and updates the cell's value.
// The function receives the current value and returns the new value.
func (c *Cell[T]) Update(fn func(T) T) {
	c.mu.Lock()
	oldValue := c.value
	newValue := fn(oldValue)
	changed := !c.equals(oldValue, newValue)
	if changed {
		c.value = newValue
	}
	c.mu.Unlock()

	if changed {
		engineStats.cellWrites.Add(1)
		c.base.notifySubscribers()
		if getBatchDepth() == 0 {
			flushPending()
		}
	}
}

// WithEquals returns the cell configured with a custom equality function.
// Useful for types where the default policy (== for comparable dynamic
// types, never-equal otherwise) has the wrong semantics.
func (c *Cell[T]) WithEquals(fn func(T, T) bool) *Cell[T] {
	c.equal = fn
	return c
}

// ID returns the unique identifier for this cell.
func (c *Cell[T]) ID() uint64 {
	return c.base.id
}

// SubscriberCount reports how many live listeners currently depend on this
// cell. Disposed listeners are pruned before counting.
func (c *Cell[T]) SubscriberCount() int {
	return c.base.subscriberCount()
}

// equals checks if two values are equal using the configured equality function.
func (c *Cell[T]) equals(a, b T) bool {
	if c.equal != nil {
		return c.equal(a, b)
	}
	return defaultEquals(a, b)
}
