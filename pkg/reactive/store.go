package reactive

import "sync"

// Store wraps a plain map aggregate so that per-key reads and writes behave
// like cells created lazily per accessed path. Nothing is wrapped eagerly:
// a key gets its cell on first read or write, and nested aggregates are
// wrapped only when actually accessed via Sub or List.
//
// Once a path has its own cell it is independent of the seed aggregate;
// replacing a whole nested map through Set does not rewire sub-stores that
// were already created for it.
type Store struct {
	mu    sync.Mutex
	cells map[string]*Cell[any]
	subs  map[string]*Store
	lists map[string]*StoreList
	seed  map[string]any
}

// NewStore creates a store over the given aggregate. A nil seed behaves
// like an empty map.
func NewStore(seed map[string]any) *Store {
	return &Store{
		cells: make(map[string]*Cell[any]),
		subs:  make(map[string]*Store),
		lists: make(map[string]*StoreList),
		seed:  seed,
	}
}

// cell returns the lazily created cell for key, seeding it from the
// wrapped aggregate on first access.
func (s *Store) cell(key string) *Cell[any] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cells[key]; ok {
		return c
	}

	var initial any
	if s.seed != nil {
		initial = s.seed[key]
	}
	c := NewCell[any](initial)
	s.cells[key] = c
	return c
}

// Get returns the value at key and subscribes the current listener.
func (s *Store) Get(key string) any {
	return s.cell(key).Get()
}

// Peek returns the value at key without subscribing.
func (s *Store) Peek(key string) any {
	return s.cell(key).Peek()
}

// Set writes the value at key, notifying listeners subscribed to that key.
// Keys that were never accessed stay untouched and unnotified.
func (s *Store) Set(key string, value any) {
	s.cell(key).Set(value)
}

// Update atomically transforms the value at key.
func (s *Store) Update(key string, fn func(any) any) {
	s.cell(key).Update(fn)
}

// Sub returns a nested store over the map aggregate at key, creating it on
// first access. Returns the same store on subsequent calls.
func (s *Store) Sub(key string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub, ok := s.subs[key]; ok {
		return sub
	}

	var seed map[string]any
	if s.seed != nil {
		seed, _ = s.seed[key].(map[string]any)
	}
	sub := NewStore(seed)
	s.subs[key] = sub
	return sub
}

// List returns a list store over the slice aggregate at key, creating it
// on first access.
func (s *Store) List(key string) *StoreList {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.lists[key]; ok {
		return l
	}

	var seed []any
	if s.seed != nil {
		seed, _ = s.seed[key].([]any)
	}
	l := NewStoreList(seed)
	s.lists[key] = l
	return l
}

// StoreList wraps a plain slice aggregate with lazily created per-index
// cells plus a tracked length.
type StoreList struct {
	mu     sync.Mutex
	cells  map[int]*Cell[any]
	seed   []any
	length *Cell[int]
}

// NewStoreList creates a list store over the given slice.
func NewStoreList(seed []any) *StoreList {
	return &StoreList{
		cells:  make(map[int]*Cell[any]),
		seed:   seed,
		length: NewCell(len(seed)),
	}
}

// at returns the lazily created cell for index.
func (l *StoreList) at(index int) *Cell[any] {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.cells[index]; ok {
		return c
	}

	var initial any
	if index >= 0 && index < len(l.seed) {
		initial = l.seed[index]
	}
	c := NewCell[any](initial)
	l.cells[index] = c
	return c
}

// At returns the value at index and subscribes the current listener.
func (l *StoreList) At(index int) any {
	return l.at(index).Get()
}

// PeekAt returns the value at index without subscribing.
func (l *StoreList) PeekAt(index int) any {
	return l.at(index).Peek()
}

// SetAt writes the value at index.
// Growing writes past the current length extend it.
func (l *StoreList) SetAt(index int, value any) {
	l.at(index).Set(value)
	l.length.Update(func(n int) int {
		if index >= n {
			return index + 1
		}
		return n
	})
}

// Len returns the tracked length of the list.
func (l *StoreList) Len() int {
	return l.length.Get()
}
