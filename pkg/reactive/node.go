package reactive

import (
	"sync"
	"sync/atomic"
)

// idCounter issues process-unique node and scope IDs. IDs are monotonic
// and never reused; listeners are deduplicated by them during flushes.
var idCounter atomic.Uint64

func nextID() uint64 {
	return idCounter.Add(1)
}

// nodeBase provides type-erased subscriber management.
// It is embedded in Cell[T] and Derived[T] to share subscription logic.
type nodeBase struct {
	id uint64

	// subs are the listeners subscribed to this node.
	subs []Listener

	// subMu protects the subs slice.
	subMu sync.RWMutex
}

// subscribe adds a listener to this node's subscribers.
// Deduplicates by listener ID to prevent double-subscription.
func (n *nodeBase) subscribe(l Listener) {
	if l == nil {
		return
	}

	n.subMu.Lock()
	defer n.subMu.Unlock()

	lid := l.ID()
	for _, existing := range n.subs {
		if existing.ID() == lid {
			return
		}
	}

	n.subs = append(n.subs, l)
}

// unsubscribe removes a listener from this node's subscribers.
func (n *nodeBase) unsubscribe(l Listener) {
	if l == nil {
		return
	}

	n.subMu.Lock()
	defer n.subMu.Unlock()

	lid := l.ID()
	for i, existing := range n.subs {
		if existing.ID() == lid {
			// Remove by swapping with last element (order doesn't matter)
			n.subs[i] = n.subs[len(n.subs)-1]
			n.subs = n.subs[:len(n.subs)-1]
			return
		}
	}
}

// notifySubscribers notifies all live subscribers that this node changed.
// Disposed subscribers are pruned in place: a consumer torn down without
// unsubscribing (its scope died first) drops off the list on the next write.
// Uses copy-before-notify to avoid holding locks during notification.
func (n *nodeBase) notifySubscribers() {
	n.subMu.Lock()
	live := n.subs[:0]
	for _, sub := range n.subs {
		if !sub.IsDisposed() {
			live = append(live, sub)
		}
	}
	for i := len(live); i < len(n.subs); i++ {
		n.subs[i] = nil
	}
	n.subs = live
	subs := make([]Listener, len(live))
	copy(subs, live)
	n.subMu.Unlock()

	if getBatchDepth() > 0 {
		// Queue for the batch flush
		for _, sub := range subs {
			queuePendingUpdate(sub)
		}
	} else {
		// Notify immediately
		for _, sub := range subs {
			sub.MarkDirty()
		}
	}
}

// subscriberCount reports the number of live subscribers, pruning disposed
// entries first. Exposed for tests and engine statistics.
func (n *nodeBase) subscriberCount() int {
	n.subMu.Lock()
	defer n.subMu.Unlock()

	live := n.subs[:0]
	for _, sub := range n.subs {
		if !sub.IsDisposed() {
			live = append(live, sub)
		}
	}
	for i := len(live); i < len(n.subs); i++ {
		n.subs[i] = nil
	}
	n.subs = live
	return len(live)
}
