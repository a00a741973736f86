package reactive

import (
	"sync"
	"sync/atomic"
)

// Derived is a lazily evaluated, memoized value with dynamically tracked
// dependencies. The evaluation function does not run at creation; it runs
// on first read and again whenever a read finds the cached value dirty.
// A dependency change only marks the node dirty, it never recomputes
// eagerly (pull-based).
//
// Derived nodes can be subscribed to, behaving like cells themselves.
// This allows building chains of derived values.
//
// A disposed Derived keeps returning its last cached value and ignores
// all further notifications.
type Derived[T any] struct {
	base nodeBase

	// evaluate computes the derived value.
	evaluate func() T

	// value is the cached computed value.
	value T

	// valueMu protects value access.
	valueMu sync.RWMutex

	// valid indicates whether the cached value is current.
	// When false, the next Get() will recompute.
	valid atomic.Bool

	// sources are the nodes this derived value read during its last
	// evaluation. Rebuilt from scratch on every run.
	sources   []*nodeBase
	sourcesMu sync.Mutex

	// computing is the re-entrancy guard for cycle detection.
	computing atomic.Bool

	// disposed marks the node permanently inert.
	disposed atomic.Bool
}

// NewDerived creates a new derived value with the given evaluation function.
// The computation is not run immediately; it runs lazily on first Get().
// If a scope is current, the node is registered to it for bulk disposal.
func NewDerived[T any](evaluate func() T) *Derived[T] {
	d := &Derived[T]{
		base: nodeBase{
			id: nextID(),
		},
		evaluate: evaluate,
	}

	engineStats.derivedCreated.Add(1)

	if scope := getCurrentScope(); scope != nil {
		scope.registerOwned(d)
	}

	return d
}

// Get returns the derived value, recomputing if necessary.
// Creates a dependency on this node for the current listener.
// Panics with *CycleError if the evaluation reads itself.
func (d *Derived[T]) Get() T {
	if listener := getCurrentListener(); listener != nil && !d.disposed.Load() {
		d.base.subscribe(listener)
		if t, ok := listener.(tracker); ok {
			t.addSource(&d.base)
		}
	}

	if !d.valid.Load() && !d.disposed.Load() {
		d.recompute()
	}

	d.valueMu.RLock()
	value := d.value
	d.valueMu.RUnlock()
	return value
}

// Peek returns the derived value without subscribing.
// Still triggers recomputation if the cached value is dirty.
func (d *Derived[T]) Peek() T {
	if !d.valid.Load() && !d.disposed.Load() {
		d.recompute()
	}
	d.valueMu.RLock()
	value := d.value
	d.valueMu.RUnlock()
	return value
}

// MarkDirty invalidates the cache and propagates dirtiness to subscribers.
// Implements the Listener interface. No-op once disposed.
func (d *Derived[T]) MarkDirty() {
	if d.disposed.Load() {
		return
	}

	// CAS for idempotent marking: an already-dirty node has already
	// propagated, so downstream sees at most one invalidation per flush.
	if d.valid.CompareAndSwap(true, false) {
		d.base.notifySubscribers()
	}
}

// ID returns the unique identifier for this node.
// Implements the Listener interface.
func (d *Derived[T]) ID() uint64 {
	return d.base.id
}

// IsDisposed reports whether Dispose was called.
// Implements the Listener interface.
func (d *Derived[T]) IsDisposed() bool {
	return d.disposed.Load()
}

// Dispose makes the node permanently inert: it unsubscribes from all
// upstream sources, keeps serving the last cached value, and ignores
// further notifications. Idempotent.
func (d *Derived[T]) Dispose() {
	if d.disposed.Swap(true) {
		return
	}

	d.sourcesMu.Lock()
	for _, source := range d.sources {
		source.unsubscribe(d)
	}
	d.sources = nil
	d.sourcesMu.Unlock()
}

// SubscriberCount reports how many live listeners depend on this node.
func (d *Derived[T]) SubscriberCount() int {
	return d.base.subscriberCount()
}

// addSource adds an upstream dependency.
// Implements the tracker interface.
func (d *Derived[T]) addSource(source *nodeBase) {
	d.sourcesMu.Lock()
	defer d.sourcesMu.Unlock()

	for _, s := range d.sources {
		if s == source {
			return
		}
	}
	d.sources = append(d.sources, source)
}

// recompute runs the evaluation and updates the cached value.
func (d *Derived[T]) recompute() {
	if d.computing.Swap(true) {
		panic(&CycleError{NodeID: d.base.id})
	}
	defer d.computing.Store(false)

	engineStats.derivedRecomputes.Add(1)

	// Drop edges from the previous run; the evaluation below rebuilds the
	// set from whatever it actually reads this time.
	d.sourcesMu.Lock()
	for _, source := range d.sources {
		source.unsubscribe(d)
	}
	d.sources = d.sources[:0]
	d.sourcesMu.Unlock()

	// Restore the listener with defer so a panicking evaluation (cycle
	// guard, user callback) does not corrupt the tracking context.
	newValue := func() T {
		old := setCurrentListener(d)
		defer setCurrentListener(old)
		return d.evaluate()
	}()

	d.valueMu.Lock()
	d.value = newValue
	d.valueMu.Unlock()

	d.valid.Store(true)
}

// Ensure Derived implements tracker.
var _ tracker = (*Derived[int])(nil)
