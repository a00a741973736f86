package reactive

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Reaction is an eagerly re-run side effect with dynamically tracked
// dependencies. The function runs once at creation and re-runs whenever any
// cell or derived value it read during its last run changes. It can return
// a Cleanup that is invoked before the next run and on disposal.
//
// Within one settled batch a reaction runs at most once, after every write
// of the batch has applied.
type Reaction struct {
	id uint64

	// fn is the reaction body.
	fn func() Cleanup

	// cleanup is the cleanup function from the last run.
	cleanup Cleanup

	// sources are the nodes this reaction read during its last run.
	sources   []*nodeBase
	sourcesMu sync.Mutex

	// pending indicates the reaction is scheduled for re-run.
	pending atomic.Bool

	// disposed indicates the reaction has been disposed.
	disposed atomic.Bool

	// name labels the reaction in debug output.
	name string
}

// ReactionOption configures a Reaction at creation.
type ReactionOption interface {
	applyReaction(r *Reaction)
}

type reactionOptionFunc func(*Reaction)

func (f reactionOptionFunc) applyReaction(r *Reaction) { f(r) }

// ReactionName labels the reaction for debug logging.
func ReactionName(name string) ReactionOption {
	return reactionOptionFunc(func(r *Reaction) {
		r.name = name
	})
}

// NewReaction creates a reaction and runs it immediately. The body re-runs
// whenever any cell or derived value it reads changes. If a scope is
// current, the reaction is registered to it and dies with it.
func NewReaction(fn func() Cleanup, opts ...ReactionOption) *Reaction {
	r := &Reaction{
		id: nextID(),
		fn: fn,
	}

	for _, opt := range opts {
		opt.applyReaction(r)
	}

	engineStats.reactionsCreated.Add(1)

	if scope := getCurrentScope(); scope != nil {
		scope.registerOwned(r)
	}

	r.run()

	return r
}

// MarkDirty schedules the reaction to re-run when the current flush or the
// enclosing batch settles. Implements the Listener interface.
func (r *Reaction) MarkDirty() {
	if r.disposed.Load() {
		return
	}

	// CAS so a reaction notified through several paths is queued once.
	if r.pending.CompareAndSwap(false, true) {
		queuePendingReaction(r)
	}
}

// ID returns the unique identifier for this reaction.
// Implements the Listener interface.
func (r *Reaction) ID() uint64 {
	return r.id
}

// IsDisposed reports whether Dispose was called.
// Implements the Listener interface.
func (r *Reaction) IsDisposed() bool {
	return r.disposed.Load()
}

// run executes the reaction body.
// Called at creation and by the flush when dependencies changed.
func (r *Reaction) run() {
	if r.disposed.Load() {
		return
	}

	r.pending.Store(false)

	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}

	r.sourcesMu.Lock()
	for _, source := range r.sources {
		source.unsubscribe(r)
	}
	r.sources = r.sources[:0]
	r.sourcesMu.Unlock()

	if DebugMode && r.name != "" {
		fmt.Printf("[REACTION] %s run\n", r.name)
	}

	engineStats.reactionRuns.Add(1)

	// Restore the listener with defer so a panicking body propagates to
	// the caller without corrupting the tracking context.
	r.cleanup = func() Cleanup {
		old := setCurrentListener(r)
		defer setCurrentListener(old)
		return r.fn()
	}()

	// The body may have disposed the reaction mid-run; honor the cleanup
	// it just returned instead of stranding it.
	if r.disposed.Load() && r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}
}

// addSource adds an upstream dependency.
// Called by nodes when they are read during the reaction body.
func (r *Reaction) addSource(source *nodeBase) {
	r.sourcesMu.Lock()
	defer r.sourcesMu.Unlock()

	for _, s := range r.sources {
		if s == source {
			return
		}
	}
	r.sources = append(r.sources, source)
}

// Dispose runs the last cleanup, unsubscribes from all sources, and makes
// the reaction permanently inert. Idempotent, and safe to call from inside
// the reaction's own run.
func (r *Reaction) Dispose() {
	if r.disposed.Swap(true) {
		return
	}

	if r.cleanup != nil {
		r.cleanup()
		r.cleanup = nil
	}

	r.sourcesMu.Lock()
	for _, source := range r.sources {
		source.unsubscribe(r)
	}
	r.sources = nil
	r.sourcesMu.Unlock()
}

// Ensure Reaction implements tracker.
var _ tracker = (*Reaction)(nil)
