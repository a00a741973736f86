package reactive

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive state for a goroutine.
// Each goroutine has its own tracking context so independent graphs can be
// driven from separate goroutines (useful for isolated test fixtures).
type trackingContext struct {
	// currentScope is the Scope that will own newly created nodes.
	currentScope *Scope

	// currentListener is what's currently tracking dependencies.
	// When a cell is read, it subscribes this listener.
	// nil means no tracking (reads don't create subscriptions).
	currentListener Listener

	// batchDepth tracks nested Batch() calls.
	// When > 0, cell writes queue notifications instead of firing immediately.
	batchDepth int

	// pendingUpdates accumulates listeners to notify when the outermost
	// batch settles. Deduplicated by ID before notification.
	pendingUpdates []Listener

	// pendingReactions accumulates reactions scheduled to run during the
	// flush, in insertion order.
	pendingReactions []*Reaction

	// flushing guards against re-entrant flushes while reactions run.
	flushing bool
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID returns a unique identifier for the current goroutine.
// This uses the runtime stack to extract the goroutine ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	// The stack starts with "goroutine <id> "
	var id uint64
	for i := 10; i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current goroutine,
// creating one if none exists.
func getTrackingContext() *trackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// getCurrentListener returns the current listener being tracked.
// Returns nil if no tracking is active.
func getCurrentListener() Listener {
	return getTrackingContext().currentListener
}

// setCurrentListener sets the current listener for dependency tracking.
// Returns the previous listener so it can be restored.
func setCurrentListener(l Listener) Listener {
	ctx := getTrackingContext()
	old := ctx.currentListener
	ctx.currentListener = l
	return old
}

// getCurrentScope returns the current scope for the goroutine.
// Returns nil if no scope context is set.
func getCurrentScope() *Scope {
	return getTrackingContext().currentScope
}

// setCurrentScope sets the current scope for node creation.
// Returns the previous scope so it can be restored.
func setCurrentScope(s *Scope) *Scope {
	ctx := getTrackingContext()
	old := ctx.currentScope
	ctx.currentScope = s
	return old
}

// getBatchDepth returns the current batch nesting depth.
func getBatchDepth() int {
	return getTrackingContext().batchDepth
}

// incrementBatchDepth increases the batch depth by 1.
func incrementBatchDepth() {
	getTrackingContext().batchDepth++
}

// decrementBatchDepth decreases the batch depth by 1.
// Returns true if batch depth reached 0 (batch complete).
func decrementBatchDepth() bool {
	ctx := getTrackingContext()
	ctx.batchDepth--
	return ctx.batchDepth == 0
}

// queuePendingUpdate adds a listener to the pending updates queue.
// Called during batch mode when a cell is updated.
func queuePendingUpdate(l Listener) {
	ctx := getTrackingContext()
	ctx.pendingUpdates = append(ctx.pendingUpdates, l)
}

// drainPendingUpdates returns and clears the pending updates queue.
func drainPendingUpdates() []Listener {
	ctx := getTrackingContext()
	updates := ctx.pendingUpdates
	ctx.pendingUpdates = nil
	return updates
}

// queuePendingReaction schedules a reaction to run when the current flush
// (or the flush of the enclosing batch) reaches it.
func queuePendingReaction(r *Reaction) {
	ctx := getTrackingContext()
	ctx.pendingReactions = append(ctx.pendingReactions, r)
}

// drainPendingReactions returns and clears the pending reactions queue.
func drainPendingReactions() []*Reaction {
	ctx := getTrackingContext()
	reactions := ctx.pendingReactions
	ctx.pendingReactions = nil
	return reactions
}

// WithScope runs a function with the specified scope as the current scope.
// Nodes created inside fn are owned by the scope and die with it.
//
// Example:
//
//	scope := NewScope(nil)
//	WithScope(scope, func() {
//	    NewReaction(func() Cleanup { ... })
//	})
//	scope.Dispose()
func WithScope(scope *Scope, fn func()) {
	old := setCurrentScope(scope)
	defer setCurrentScope(old)
	fn()
}

// WithListener runs a function with the specified listener for tracking.
// This is used internally to set up dependency tracking during evaluation.
func WithListener(l Listener, fn func()) {
	old := setCurrentListener(l)
	defer setCurrentListener(old)
	fn()
}
