package reactive

import "testing"

func TestStoreGetSet(t *testing.T) {
	s := NewStore(map[string]any{"name": "Ada", "age": 36})

	if s.Get("name") != "Ada" {
		t.Errorf("expected Ada, got %v", s.Get("name"))
	}

	s.Set("name", "Grace")
	if s.Get("name") != "Grace" {
		t.Errorf("expected Grace, got %v", s.Get("name"))
	}

	// Unseeded keys read as nil.
	if s.Get("missing") != nil {
		t.Errorf("expected nil for missing key, got %v", s.Get("missing"))
	}
}

func TestStorePerKeyNotification(t *testing.T) {
	s := NewStore(map[string]any{"a": 1, "b": 2})

	runs := 0
	r := NewReaction(func() Cleanup {
		runs++
		_ = s.Get("a")
		return nil
	})
	defer r.Dispose()

	// Writing an unrelated key must not re-run the reaction.
	s.Set("b", 99)
	if runs != 1 {
		t.Errorf("expected unrelated key write to be ignored, got %d runs", runs)
	}

	s.Set("a", 42)
	if runs != 2 {
		t.Errorf("expected 2 runs after tracked key write, got %d", runs)
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore(map[string]any{"count": 1})

	s.Update("count", func(v any) any {
		return v.(int) + 1
	})

	if s.Get("count") != 2 {
		t.Errorf("expected 2, got %v", s.Get("count"))
	}
}

func TestStorePeekDoesNotSubscribe(t *testing.T) {
	s := NewStore(map[string]any{"k": "v"})

	runs := 0
	r := NewReaction(func() Cleanup {
		runs++
		_ = s.Peek("k")
		return nil
	})
	defer r.Dispose()

	s.Set("k", "changed")
	if runs != 1 {
		t.Errorf("expected peek to create no edge, got %d runs", runs)
	}
}

func TestStoreNestedSub(t *testing.T) {
	s := NewStore(map[string]any{
		"user": map[string]any{"name": "Ada", "role": "engineer"},
	})

	user := s.Sub("user")
	if user.Get("name") != "Ada" {
		t.Errorf("expected Ada, got %v", user.Get("name"))
	}

	// The same sub-store comes back on repeated access.
	if s.Sub("user") != user {
		t.Error("expected Sub to return the same store")
	}

	runs := 0
	r := NewReaction(func() Cleanup {
		runs++
		_ = user.Get("role")
		return nil
	})
	defer r.Dispose()

	user.Set("role", "admiral")
	if runs != 2 {
		t.Errorf("expected nested write to notify, got %d runs", runs)
	}
}

func TestStoreList(t *testing.T) {
	s := NewStore(map[string]any{
		"items": []any{"a", "b", "c"},
	})

	items := s.List("items")
	if items.Len() != 3 {
		t.Errorf("expected length 3, got %d", items.Len())
	}
	if items.At(1) != "b" {
		t.Errorf("expected b, got %v", items.At(1))
	}

	items.SetAt(1, "B")
	if items.At(1) != "B" {
		t.Errorf("expected B, got %v", items.At(1))
	}

	// Writing past the end extends the tracked length.
	items.SetAt(5, "f")
	if items.Len() != 6 {
		t.Errorf("expected length 6, got %d", items.Len())
	}
}

func TestStoreListTrackedLength(t *testing.T) {
	l := NewStoreList([]any{1, 2})

	runs := 0
	r := NewReaction(func() Cleanup {
		runs++
		_ = l.Len()
		return nil
	})
	defer r.Dispose()

	l.SetAt(0, 10)
	if runs != 1 {
		t.Errorf("expected in-bounds write to leave length untouched, got %d runs", runs)
	}

	l.SetAt(2, 3)
	if runs != 2 {
		t.Errorf("expected growing write to notify length, got %d runs", runs)
	}
}

func TestStoreNilSeed(t *testing.T) {
	s := NewStore(nil)

	s.Set("k", 1)
	if s.Get("k") != 1 {
		t.Errorf("expected 1, got %v", s.Get("k"))
	}
}
