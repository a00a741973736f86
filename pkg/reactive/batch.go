package reactive

import "fmt"

// DebugMode enables debug logging throughout the reactive package.
// This should be set at startup and not changed during runtime.
var DebugMode bool

// Batch groups multiple cell writes into a single notification phase.
// All writes within the batch function are collected and deduplicated;
// when the outermost batch settles, dirty flags propagate to derived
// nodes first, then every affected reaction runs exactly once, observing
// the final value of every cell written in the batch.
//
// Batches nest: inner calls extend the outer transaction and only the
// outermost call triggers a flush.
//
// Example:
//
//	Batch(func() {
//	    firstName.Set("John")
//	    lastName.Set("Doe")
//	    age.Set(30)
//	})
//	// Dependent reactions run once with all three changes
func Batch(fn func()) {
	incrementBatchDepth()

	defer func() {
		if decrementBatchDepth() {
			flushPending()
		}
	}()

	fn()
}

// BatchNamed runs fn as a named batch for debugging.
// The name is logged in debug mode for observability.
func BatchNamed(name string, fn func()) {
	if DebugMode {
		fmt.Printf("[BATCH] %s start\n", name)
		defer fmt.Printf("[BATCH] %s end\n", name)
	}
	Batch(fn)
}

// flushPending settles the current transaction in two phases.
//
// Phase 1 marks every queued listener dirty. Derived nodes propagate the
// dirty flag transitively (they do not recompute), and reactions land on
// the pending-reactions queue, deduplicated by a CAS flag.
//
// Phase 2 runs the pending reactions in schedule order. Each run pulls
// derived values lazily, so every reaction observes the fully settled
// state regardless of how many upstream writes it depends on. Reaction
// bodies may write cells; those writes feed back into the loop and are
// flushed before the outermost caller regains control.
//
// Re-entrant calls (a reaction writing a cell triggers Set, which calls
// back in) are absorbed by the flushing flag.
func flushPending() {
	ctx := getTrackingContext()
	if ctx.flushing {
		return
	}
	ctx.flushing = true
	defer func() { ctx.flushing = false }()

	engineStats.batchFlushes.Add(1)

	for {
		updates := drainPendingUpdates()

		// Deduplicate by listener ID, preserving insertion order
		seen := make(map[uint64]bool, len(updates))
		for _, listener := range updates {
			id := listener.ID()
			if seen[id] {
				continue
			}
			seen[id] = true
			listener.MarkDirty()
		}

		reactions := drainPendingReactions()
		if len(updates) == 0 && len(reactions) == 0 {
			return
		}

		runScheduled(reactions)
	}
}

// runScheduled runs drained reactions in schedule order. A panicking body
// propagates to the writer, but the unrun remainder of the slice is
// re-queued on the way out: those reactions still hold their pending flag,
// so without the re-queue no later MarkDirty could ever schedule them again.
func runScheduled(reactions []*Reaction) {
	i := 0
	defer func() {
		for j := i + 1; j < len(reactions); j++ {
			if reactions[j].pending.Load() {
				queuePendingReaction(reactions[j])
			}
		}
	}()

	for ; i < len(reactions); i++ {
		if r := reactions[i]; r.pending.Load() {
			r.run()
		}
	}
}

// Untracked runs a function without tracking cell reads as dependencies.
//
// Example:
//
//	Untracked(func() {
//	    // Reading count here won't subscribe the current reaction
//	    value := count.Get()
//	    fmt.Println("Current value:", value)
//	})
//
// Note: for single cell reads, use cell.Peek() instead which is more
// efficient and clearer in intent.
func Untracked(fn func()) {
	old := setCurrentListener(nil)
	defer setCurrentListener(old)
	fn()
}

// UntrackedGet reads a cell's value without creating a dependency.
// This is a convenience function equivalent to cell.Peek().
func UntrackedGet[T any](c *Cell[T]) T {
	return c.Peek()
}
