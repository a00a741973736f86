package reactive

// Listener is anything that can be notified when a dependency changes.
// This interface is implemented by Derived nodes and Reactions.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies has changed.
	// For derived nodes, this invalidates the cached value.
	// For reactions, this schedules the reaction to re-run.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	// Used for deduplication during batch processing.
	ID() uint64

	// IsDisposed reports whether the listener has been torn down.
	// Producers prune disposed listeners from their subscriber lists
	// lazily during notification passes.
	IsDisposed() bool
}

// Cleanup is a function returned by reactions to clean up resources.
// It is called before the reaction re-runs and when the reaction is disposed.
type Cleanup func()

// tracker is implemented by listeners that record their upstream sources
// so the sources can be unsubscribed before the next evaluation.
type tracker interface {
	Listener
	addSource(source *nodeBase)
}
