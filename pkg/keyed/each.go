package keyed

import (
	"sync"

	"github.com/elbywan/balises-sub000/internal/diag"
	"github.com/elbywan/balises-sub000/pkg/reactive"
)

// Stats summarizes the most recent reconciliation pass.
type Stats struct {
	// Created counts entries rendered fresh this pass.
	Created int `json:"created"`
	// Reused counts entries carried forward for a surviving key.
	Reused int `json:"reused"`
	// Moved counts surviving entries relocated because their previous
	// position fell outside the longest increasing subsequence.
	Moved int `json:"moved"`
	// Disposed counts entries torn down (vanished keys plus identity
	// rebuilds in untracked mode).
	Disposed int `json:"disposed"`
	// Duplicates counts items skipped because their key already appeared
	// earlier in the same update.
	Duplicates int `json:"duplicate_keys"`
}

// entry is the per-key record of rendered output units. Entries are wired
// into a doubly linked list, so each one knows what follows it rather than
// its absolute offset; relocation stays correct even while the region is
// detached.
type entry[T, U any] struct {
	key   any
	item  T
	cell  *reactive.Cell[T] // tracked mode only
	units []U
	scope *reactive.Scope
	pos   int

	prev, next *entry[T, U]
}

// List is the live output of Each/EachTracked: the ordered collection of
// output units plus the reconciling reaction that keeps it in sync with
// the source.
type List[T, U any] struct {
	mu      sync.Mutex
	keyFn   KeyFunc[T]
	render  func(item T, it *Item[T]) []U
	tracked bool

	entries    map[any]*entry[T, U]
	head, tail *entry[T, U]
	count      int

	scope    *reactive.Scope
	reaction *reactive.Reaction

	last          Stats
	detached      bool
	deferredMoves int
	disposed      bool
}

// Each reconciles src under keyFn, rendering one output unit per key.
// The render callback receives the bare item; when a surviving key's item
// changes identity, the entry is disposed and re-rendered.
//
// A nil keyFn keys items by their own value, falling back to a positional
// key for incomparable item types.
func Each[T, U any](src Source[T], keyFn KeyFunc[T], render func(T) U) *List[T, U] {
	return newList(src, keyFn, func(item T, _ *Item[T]) []U {
		return []U{render(item)}
	}, false)
}

// EachMany is Each for render callbacks producing several output units per
// entry. The units keep their internal order through relocations.
func EachMany[T, U any](src Source[T], keyFn KeyFunc[T], render func(T) []U) *List[T, U] {
	return newList(src, keyFn, func(item T, _ *Item[T]) []U {
		return render(item)
	}, false)
}

// EachTracked reconciles src under keyFn with per-entry item tracking.
// The render callback runs once per key lifetime and receives an Item
// handle; later updates to a surviving key write through the handle's cell
// instead of re-rendering.
func EachTracked[T, U any](src Source[T], keyFn KeyFunc[T], render func(*Item[T]) U) *List[T, U] {
	return newList(src, keyFn, func(_ T, it *Item[T]) []U {
		return []U{render(it)}
	}, true)
}

func newList[T, U any](src Source[T], keyFn KeyFunc[T], render func(T, *Item[T]) []U, tracked bool) *List[T, U] {
	l := &List[T, U]{
		keyFn:   keyFn,
		render:  render,
		tracked: tracked,
		entries: make(map[any]*entry[T, U]),
		scope:   reactive.NewScope(reactive.CurrentScope()),
	}

	reactive.WithScope(l.scope, func() {
		l.reaction = reactive.NewReaction(func() reactive.Cleanup {
			// Only the source pull is tracked; render callbacks and item
			// cell writes must not subscribe the reconciler itself.
			items := src()
			reactive.Untracked(func() {
				l.reconcile(items)
			})
			return nil
		}, reactive.ReactionName("keyed.reconcile"))
	})

	return l
}

// keyOf derives the normalized key for an item. The second result reports
// whether a positional fallback was substituted for an incomparable key.
func (l *List[T, U]) keyOf(item T, index int) (any, bool) {
	var raw any
	if l.keyFn != nil {
		raw = l.keyFn(item, index)
	} else {
		raw = item
	}
	if k, ok := normalizeKey(raw); ok {
		return k, false
	}
	return positionKey{index: index}, true
}

// reconcile runs the diff/relocate pass against a fresh item sequence.
func (l *List[T, U]) reconcile(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.disposed {
		return
	}

	var st Stats

	type slot struct {
		key    any
		item   T
		e      *entry[T, U]
		oldPos int
	}

	// Step 1+2: key sequence with first-occurrence-wins dedup.
	seen := make(map[any]int, len(items))
	order := make([]*slot, 0, len(items))
	dupCount := 0
	var firstDup any
	warnedPositional := false

	for i, item := range items {
		k, positional := l.keyOf(item, i)
		if positional && !warnedPositional {
			warn(diag.IncomparableKey(i))
			warnedPositional = true
		}
		if _, dup := seen[k]; dup {
			dupCount++
			if dupCount == 1 {
				firstDup = k
			}
			continue
		}
		seen[k] = len(order)
		order = append(order, &slot{key: k, item: item})
	}

	if dupCount > 0 {
		st.Duplicates = dupCount
		warn(diag.DuplicateKey(firstDup, dupCount))
	}

	// Step 3a: vanished keys. Unlinking right away keeps the anchor walk
	// free of disposed entries even if a later render callback panics
	// before the full rewire.
	for k, e := range l.entries {
		if _, ok := seen[k]; !ok {
			e.scope.Dispose()
			l.unlink(e)
			delete(l.entries, k)
			st.Disposed++
		}
	}

	// Step 3b/3c: carry forward or render.
	for _, s := range order {
		if e, ok := l.entries[s.key]; ok {
			switch {
			case l.tracked:
				// Narrow update: no re-render, only Value readers re-run.
				e.cell.Set(s.item)
				e.item = s.item
				s.e, s.oldPos = e, e.pos
				st.Reused++
			case sameIdentity(e.item, s.item):
				s.e, s.oldPos = e, e.pos
				st.Reused++
			default:
				// Identity changed under an untracked entry: rebuild.
				e.scope.Dispose()
				l.unlink(e)
				st.Disposed++
				s.e, s.oldPos = l.renderEntry(s.key, s.item), -1
				st.Created++
			}
		} else {
			s.e, s.oldPos = l.renderEntry(s.key, s.item), -1
			st.Created++
		}
		l.entries[s.key] = s.e
	}

	// Step 4: LIS over previous positions of survivors, in new order.
	// Members are already mutually ordered and stay put.
	surv := make([]int, 0, len(order))
	survSlots := make([]*slot, 0, len(order))
	for _, s := range order {
		if s.oldPos >= 0 {
			surv = append(surv, s.oldPos)
			survSlots = append(survSlots, s)
		}
	}
	member := longestIncreasing(surv)
	for j := range survSlots {
		if !member[j] {
			st.Moved++
		}
	}
	if l.detached {
		l.deferredMoves += st.Moved
	}

	// Step 5: rewire the anchors in new-sequence order.
	l.head, l.tail = nil, nil
	var prev *entry[T, U]
	for i, s := range order {
		e := s.e
		e.pos = i
		e.prev = prev
		e.next = nil
		if prev != nil {
			prev.next = e
		} else {
			l.head = e
		}
		prev = e
	}
	l.tail = prev
	l.count = len(order)
	l.last = st
}

// unlink removes an entry from the anchor list without touching the map.
// Step 5 rebuilds all links on a successful pass; this only matters for
// walks that happen before then.
func (l *List[T, U]) unlink(e *entry[T, U]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else if l.head == e {
		l.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else if l.tail == e {
		l.tail = e.prev
	}
	e.prev, e.next = nil, nil
	if l.count > 0 {
		l.count--
	}
}

// renderEntry runs the render callback for a fresh key inside a new entry
// scope, a child of the list scope. A panicking callback propagates to the
// caller of the triggering write.
func (l *List[T, U]) renderEntry(key any, item T) *entry[T, U] {
	e := &entry[T, U]{
		key:   key,
		item:  item,
		scope: reactive.NewScope(l.scope),
	}
	if l.tracked {
		e.cell = reactive.NewCell(item)
	}

	reactive.WithScope(e.scope, func() {
		e.units = l.render(item, &Item[T]{cell: e.cell})
	})
	return e
}

// Units returns the flattened output units in current order, walking the
// entry anchors head to tail.
func (l *List[T, U]) Units() []U {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]U, 0, l.count)
	for e := l.head; e != nil; e = e.next {
		out = append(out, e.units...)
	}
	return out
}

// Len returns the number of live entries.
func (l *List[T, U]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// LastStats returns the summary of the most recent reconciliation pass.
func (l *List[T, U]) LastStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Detach marks the output region as temporarily out of the document (e.g.
// conditionally hidden). Reconciliation keeps running and keeps the entry
// anchors correct; relocations are counted as deferred until Attach.
func (l *List[T, U]) Detach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.detached = true
}

// Attach reattaches the region and returns how many relocations were
// deferred while detached. The anchor links already reflect the latest
// order, so replaying is a walk of Units.
func (l *List[T, U]) Attach() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.detached = false
	replayed := l.deferredMoves
	l.deferredMoves = 0
	return replayed
}

// Detached reports whether the region is currently detached.
func (l *List[T, U]) Detached() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.detached
}

// Dispose tears down every entry (their scopes first) and the reconciling
// reaction. Further source changes are ignored. Idempotent.
func (l *List[T, U]) Dispose() {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return
	}
	l.disposed = true
	l.mu.Unlock()

	l.scope.Dispose()

	l.mu.Lock()
	l.entries = make(map[any]*entry[T, U])
	l.head, l.tail = nil, nil
	l.count = 0
	l.mu.Unlock()
}
