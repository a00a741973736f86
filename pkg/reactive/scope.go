package reactive

import (
	"sync"
	"sync/atomic"
)

// disposable is anything a scope can tear down: reactions, derived nodes,
// and nested scopes.
type disposable interface {
	Dispose()
}

// Scope is an ownership boundary grouping reactive nodes for bulk disposal.
// Derived nodes, reactions, and nested scopes created while a scope is
// current are registered to it; disposing the scope disposes them all,
// children first, in reverse creation order.
//
// Scopes form a hierarchy: pass the parent at creation to have the child
// torn down with it.
type Scope struct {
	id uint64

	// parent is the parent scope, nil for a root scope.
	parent *Scope

	// children are nested scopes.
	children   []*Scope
	childrenMu sync.Mutex

	// owned are reactions and derived nodes created under this scope,
	// in creation order.
	owned   []disposable
	ownedMu sync.Mutex

	// cleanups are manual cleanup functions registered via OnCleanup.
	cleanups   []func()
	cleanupsMu sync.Mutex

	// disposed indicates whether this scope has been disposed.
	disposed atomic.Bool
}

// NewScope creates a new scope with the given parent.
// The new scope is automatically registered as a child of the parent.
// If parent is nil, creates a root scope.
func NewScope(parent *Scope) *Scope {
	s := &Scope{
		id:     nextID(),
		parent: parent,
	}

	if parent != nil {
		parent.addChild(s)
	}

	return s
}

// RunInScope creates a child of the current scope, runs fn with it current,
// and returns it so the caller can dispose the region later.
//
// Example:
//
//	region := RunInScope(func() {
//	    NewReaction(func() Cleanup { ... })
//	})
//	// later
//	region.Dispose()
func RunInScope(fn func()) *Scope {
	s := NewScope(getCurrentScope())
	WithScope(s, fn)
	return s
}

// ID returns the unique identifier for this scope.
func (s *Scope) ID() uint64 {
	return s.id
}

// Parent returns the parent scope, or nil for a root scope.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsDisposed returns true if this scope has been disposed.
func (s *Scope) IsDisposed() bool {
	return s.disposed.Load()
}

// addChild registers a nested scope.
func (s *Scope) addChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()
	s.children = append(s.children, child)
}

// removeChild removes a nested scope from this scope's children.
func (s *Scope) removeChild(child *Scope) {
	s.childrenMu.Lock()
	defer s.childrenMu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

// registerOwned adds a reaction or derived node to this scope.
// It will be disposed when this scope is disposed.
func (s *Scope) registerOwned(d disposable) {
	if s.disposed.Load() {
		d.Dispose()
		return
	}

	s.ownedMu.Lock()
	defer s.ownedMu.Unlock()
	s.owned = append(s.owned, d)
}

// OnCleanup registers a cleanup function to run when this scope is disposed.
// If the scope is already disposed, the cleanup runs immediately.
func (s *Scope) OnCleanup(fn func()) {
	if s.disposed.Load() {
		fn()
		return
	}

	s.cleanupsMu.Lock()
	defer s.cleanupsMu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// CurrentScope returns the scope nodes created on this goroutine would be
// registered to, or nil outside any scope.
func CurrentScope() *Scope {
	return getCurrentScope()
}

// OnCleanup registers fn on the current scope. No-op without one.
func OnCleanup(fn func()) {
	if scope := getCurrentScope(); scope != nil {
		scope.OnCleanup(fn)
	}
}

// Dispose disposes this scope and everything it owns.
// Children are disposed first, then owned nodes, then cleanups, each in
// reverse creation order. Idempotent; disposal never panics on a second
// call and is safe from inside an owned reaction's own run.
func (s *Scope) Dispose() {
	if s.disposed.Swap(true) {
		return
	}

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	s.childrenMu.Lock()
	children := make([]*Scope, len(s.children))
	copy(children, s.children)
	s.children = nil
	s.childrenMu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}

	s.ownedMu.Lock()
	owned := s.owned
	s.owned = nil
	s.ownedMu.Unlock()

	for i := len(owned) - 1; i >= 0; i-- {
		owned[i].Dispose()
	}

	s.cleanupsMu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
