package keyed

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/elbywan/balises-sub000/internal/diag"
	"github.com/elbywan/balises-sub000/pkg/reactive"
)

type row struct {
	id    int
	label string
}

func rowKey(r row, _ int) any { return r.id }

// unit is a distinguishable output instance: pointer identity tells reused
// apart from rebuilt.
type unit struct {
	label string
}

func captureWarnings(t *testing.T) *[]diag.Warning {
	t.Helper()
	var got []diag.Warning
	old := SetWarnHandler(func(w diag.Warning) {
		got = append(got, w)
	})
	t.Cleanup(func() { SetWarnHandler(old) })
	return &got
}

func TestEachInitialRender(t *testing.T) {
	src := reactive.NewCell([]row{{1, "a"}, {2, "b"}, {3, "c"}})

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		return &unit{label: r.label}
	})
	defer l.Dispose()

	units := l.Units()
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}
	for i, want := range []string{"a", "b", "c"} {
		if units[i].label != want {
			t.Errorf("unit %d: expected %s, got %s", i, want, units[i].label)
		}
	}

	st := l.LastStats()
	if st.Created != 3 || st.Reused != 0 || st.Disposed != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestEachPermutationReusesAll(t *testing.T) {
	// Initial [1 2 3], update to [3 1 2]: output order follows the
	// permutation and all three units are the original instances.
	src := reactive.NewCell([]row{{1, "a"}, {2, "b"}, {3, "c"}})

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		return &unit{label: r.label}
	})
	defer l.Dispose()

	before := l.Units()
	u1, u2, u3 := before[0], before[1], before[2]

	src.Set([]row{{3, "c"}, {1, "a"}, {2, "b"}})

	after := l.Units()
	if after[0] != u3 || after[1] != u1 || after[2] != u2 {
		t.Error("expected the original unit instances in permuted order")
	}

	st := l.LastStats()
	if st.Reused != 3 || st.Created != 0 || st.Disposed != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if st.Moved == 0 {
		t.Error("expected at least one relocation")
	}
}

func TestEachFullReversal(t *testing.T) {
	const n = 20
	items := make([]row, n)
	for i := range items {
		items[i] = row{id: i, label: fmt.Sprintf("r%d", i)}
	}
	src := reactive.NewCell(items)

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		return &unit{label: r.label}
	})
	defer l.Dispose()

	before := l.Units()

	reversed := make([]row, n)
	for i := range items {
		reversed[i] = items[n-1-i]
	}
	src.Set(reversed)

	after := l.Units()
	for i := 0; i < n; i++ {
		if after[i] != before[n-1-i] {
			t.Fatalf("unit %d is not the original instance", i)
		}
	}

	st := l.LastStats()
	if st.Created != 0 || st.Reused != n {
		t.Errorf("expected 0 created / %d reused, got %+v", n, st)
	}
	// A full reversal keeps one anchor fixed and moves the rest.
	if st.Moved != n-1 {
		t.Errorf("expected %d moves, got %d", n-1, st.Moved)
	}
}

func TestEachRemovals(t *testing.T) {
	const n, k = 10, 4
	items := make([]row, n)
	for i := range items {
		items[i] = row{id: i}
	}
	src := reactive.NewCell(items)

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		return &unit{}
	})
	defer l.Dispose()

	// Drop every other item up to 2k.
	kept := make([]row, 0, n-k)
	for i, r := range items {
		if i < 2*k && i%2 == 1 {
			continue
		}
		kept = append(kept, r)
	}
	src.Set(kept)

	st := l.LastStats()
	if st.Reused != n-k || st.Created != 0 || st.Disposed != k {
		t.Errorf("expected %d reused / 0 created / %d disposed, got %+v", n-k, k, st)
	}
}

func TestEachInsertions(t *testing.T) {
	src := reactive.NewCell([]row{{id: 1}, {id: 2}, {id: 3}})

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		return &unit{}
	})
	defer l.Dispose()

	// Start, middle, and end insertions in one update.
	src.Set([]row{{id: 10}, {id: 1}, {id: 2}, {id: 11}, {id: 3}, {id: 12}})

	st := l.LastStats()
	if st.Reused != 3 || st.Created != 3 || st.Disposed != 0 {
		t.Errorf("expected 3 reused / 3 created / 0 disposed, got %+v", st)
	}
	if st.Moved != 0 {
		t.Errorf("expected pure insertions to move nothing, got %d moves", st.Moved)
	}
	if l.Len() != 6 {
		t.Errorf("expected 6 entries, got %d", l.Len())
	}
}

func TestEachDuplicateKeys(t *testing.T) {
	warnings := captureWarnings(t)

	src := reactive.NewCell([]row{{1, "x1"}, {1, "x2"}, {2, "y"}})

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		return &unit{label: r.label}
	})
	defer l.Dispose()

	units := l.Units()
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	// First occurrence wins.
	if units[0].label != "x1" || units[1].label != "y" {
		t.Errorf("unexpected units: %v %v", units[0].label, units[1].label)
	}

	if len(*warnings) != 1 {
		t.Fatalf("expected exactly 1 warning, got %d", len(*warnings))
	}
	if (*warnings)[0].Code != diag.CodeDuplicateKey {
		t.Errorf("unexpected warning code %s", (*warnings)[0].Code)
	}
	if l.LastStats().Duplicates != 1 {
		t.Errorf("expected 1 duplicate in stats, got %d", l.LastStats().Duplicates)
	}

	// Update with the duplicate still present: one more diagnostic, not
	// one per item.
	src.Set([]row{{1, "x1"}, {1, "x2"}, {1, "x3"}, {2, "y"}})
	if len(*warnings) != 2 {
		t.Errorf("expected one warning per offending update, got %d", len(*warnings))
	}
}

func TestEachWarnHandlerPanicsAreContained(t *testing.T) {
	old := SetWarnHandler(func(w diag.Warning) {
		panic("sink exploded")
	})
	defer SetWarnHandler(old)

	src := reactive.NewCell([]row{{1, "a"}, {1, "b"}})

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		return &unit{}
	})
	defer l.Dispose()

	if l.Len() != 1 {
		t.Errorf("expected reconciliation to survive a panicking sink, got %d entries", l.Len())
	}
}

func TestEachUntrackedIdentityRebuild(t *testing.T) {
	src := reactive.NewCell([]row{{1, "a"}, {2, "b"}})

	renders := 0
	l := Each(FromCell(src), rowKey, func(r row) *unit {
		renders++
		return &unit{label: r.label}
	})
	defer l.Dispose()

	if renders != 2 {
		t.Fatalf("expected 2 initial renders, got %d", renders)
	}

	// Same keys, one item changed identity: that entry is rebuilt.
	src.Set([]row{{1, "a"}, {2, "B"}})

	if renders != 3 {
		t.Errorf("expected 1 rebuild render, got %d total", renders)
	}
	st := l.LastStats()
	if st.Reused != 1 || st.Created != 1 || st.Disposed != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
	if l.Units()[1].label != "B" {
		t.Errorf("expected rebuilt unit, got %s", l.Units()[1].label)
	}
}

func TestEachTrackedUpdatesInPlace(t *testing.T) {
	src := reactive.NewCell([]row{{1, "a"}, {2, "b"}})

	renders := 0
	valueRuns := 0
	l := EachTracked(FromCell(src), rowKey, func(it *Item[row]) *unit {
		renders++
		u := &unit{}
		reactive.NewReaction(func() reactive.Cleanup {
			valueRuns++
			u.label = it.Value().label
			return nil
		})
		return u
	})
	defer l.Dispose()

	if renders != 2 || valueRuns != 2 {
		t.Fatalf("expected 2 renders and 2 value runs, got %d/%d", renders, valueRuns)
	}

	before := l.Units()

	// Same keys, changed items: no re-render, the item cells deliver the
	// update to the narrow Value readers.
	src.Set([]row{{1, "A"}, {2, "B"}})

	if renders != 2 {
		t.Errorf("expected no rebuild renders, got %d total", renders)
	}
	if valueRuns != 4 {
		t.Errorf("expected both value readers to re-run, got %d runs", valueRuns)
	}

	after := l.Units()
	if after[0] != before[0] || after[1] != before[1] {
		t.Error("expected the same unit instances")
	}
	if after[0].label != "A" || after[1].label != "B" {
		t.Errorf("expected updated labels, got %s/%s", after[0].label, after[1].label)
	}

	st := l.LastStats()
	if st.Reused != 2 || st.Created != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestEachTrackedPeekDoesNotSubscribe(t *testing.T) {
	src := reactive.NewCell([]row{{1, "a"}})

	peekRuns := 0
	l := EachTracked(FromCell(src), rowKey, func(it *Item[row]) *unit {
		u := &unit{}
		reactive.NewReaction(func() reactive.Cleanup {
			peekRuns++
			u.label = it.Peek().label
			return nil
		})
		return u
	})
	defer l.Dispose()

	src.Set([]row{{1, "changed"}})

	if peekRuns != 1 {
		t.Errorf("expected peeking reader not to re-run, got %d runs", peekRuns)
	}
}

func TestEachNaNKeysMatch(t *testing.T) {
	key := func(v float64, _ int) any { return v }
	src := reactive.NewCell([]float64{math.NaN(), 1})

	l := Each(FromCell(src), key, func(v float64) *unit {
		return &unit{}
	})
	defer l.Dispose()

	before := l.Units()

	// A fresh NaN must match the previous NaN entry (same-value-zero).
	src.Set([]float64{math.NaN(), 1})

	st := l.LastStats()
	if st.Created != 0 || st.Disposed != 0 || st.Reused != 2 {
		t.Errorf("expected NaN key to survive, got %+v", st)
	}
	if l.Units()[0] != before[0] {
		t.Error("expected the NaN entry instance to survive")
	}
}

func TestEachIncomparableKeyFallsBack(t *testing.T) {
	warnings := captureWarnings(t)

	key := func(v []int, _ int) any { return v }
	src := reactive.NewCell([][]int{{1}, {2}})

	l := Each(FromCell(src), key, func(v []int) *unit {
		return &unit{}
	})
	defer l.Dispose()

	if l.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", l.Len())
	}
	if len(*warnings) != 1 || (*warnings)[0].Code != diag.CodeIncomparableKey {
		t.Errorf("expected one incomparable-key warning, got %v", *warnings)
	}
}

func TestEachFuncSource(t *testing.T) {
	limit := reactive.NewCell(2)
	all := []row{{1, "a"}, {2, "b"}, {3, "c"}}

	l := Each(Func(func() []row {
		return all[:limit.Get()]
	}), rowKey, func(r row) *unit {
		return &unit{label: r.label}
	})
	defer l.Dispose()

	if l.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", l.Len())
	}

	// The pull function reads a cell, so the reconciler re-runs on writes.
	limit.Set(3)
	if l.Len() != 3 {
		t.Errorf("expected 3 entries after limit change, got %d", l.Len())
	}

	st := l.LastStats()
	if st.Reused != 2 || st.Created != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestEachSliceSourceRunsOnce(t *testing.T) {
	l := Each(Slice([]row{{1, "a"}}), rowKey, func(r row) *unit {
		return &unit{label: r.label}
	})
	defer l.Dispose()

	if l.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", l.Len())
	}
}

func TestEachDerivedSource(t *testing.T) {
	src := reactive.NewCell([]row{{2, "b"}, {1, "a"}})
	sorted := reactive.NewDerived(func() []row {
		items := append([]row(nil), src.Get()...)
		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				if items[j].id < items[i].id {
					items[i], items[j] = items[j], items[i]
				}
			}
		}
		return items
	})

	l := Each(FromDerived(sorted), rowKey, func(r row) *unit {
		return &unit{label: r.label}
	})
	defer l.Dispose()

	units := l.Units()
	if units[0].label != "a" || units[1].label != "b" {
		t.Errorf("expected sorted order, got %v %v", units[0].label, units[1].label)
	}

	src.Set([]row{{3, "c"}, {2, "b"}, {1, "a"}})
	if l.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", l.Len())
	}
}

func TestEachRenderPanicPropagatesToWriter(t *testing.T) {
	src := reactive.NewCell([]row{{1, "a"}})

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		if r.id == 99 {
			panic("render failure")
		}
		return &unit{label: r.label}
	})
	defer l.Dispose()

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the render panic to reach the writer")
			}
		}()
		src.Set([]row{{1, "a"}, {99, "x"}})
	}()

	// The reconciler recovers once the bad item is gone.
	src.Set([]row{{1, "a"}, {2, "b"}})
	if l.Len() != 2 {
		t.Errorf("expected 2 entries after recovery, got %d", l.Len())
	}

	units := l.Units()
	if len(units) != 2 || units[0].label != "a" || units[1].label != "b" {
		t.Errorf("unexpected units after recovery: %v", units)
	}
}

func TestEachFailedPassDropsDisposedUnits(t *testing.T) {
	src := reactive.NewCell([]row{{1, "a"}, {2, "b"}})

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		if r.id == 99 {
			panic("render failure")
		}
		return &unit{label: r.label}
	})
	defer l.Dispose()

	panicked := false
	func() {
		defer func() { panicked = recover() != nil }()
		src.Set([]row{{2, "b"}, {99, "x"}})
	}()
	if !panicked {
		t.Fatal("expected the render panic to propagate")
	}

	// Entry 1 was disposed before the failing render; its unit must not
	// reappear in the anchor walk.
	for _, u := range l.Units() {
		if u.label == "a" {
			t.Error("expected the disposed entry's unit to be unlinked")
		}
	}
}

func TestEachDetachAttach(t *testing.T) {
	src := reactive.NewCell([]row{{id: 1}, {id: 2}, {id: 3}})

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		return &unit{}
	})
	defer l.Dispose()

	before := l.Units()

	l.Detach()
	if !l.Detached() {
		t.Fatal("expected detached state")
	}

	// Updates while detached keep reconciling; relocations are deferred.
	src.Set([]row{{id: 3}, {id: 1}, {id: 2}})

	replayed := l.Attach()
	if replayed == 0 {
		t.Error("expected deferred relocations to be replayed on attach")
	}
	if l.Detached() {
		t.Error("expected attached state")
	}

	after := l.Units()
	if after[0] != before[2] || after[1] != before[0] || after[2] != before[1] {
		t.Error("expected the anchor order to reflect the detached-time update")
	}
}

func TestEachEntryScopeDisposal(t *testing.T) {
	src := reactive.NewCell([]row{{id: 1}, {id: 2}})

	cleanups := map[int]int{}
	l := Each(FromCell(src), rowKey, func(r row) *unit {
		id := r.id
		reactive.OnCleanup(func() { cleanups[id]++ })
		return &unit{}
	})
	defer l.Dispose()

	src.Set([]row{{id: 2}})

	if cleanups[1] != 1 {
		t.Errorf("expected entry 1 cleanup to run once, got %d", cleanups[1])
	}
	if cleanups[2] != 0 {
		t.Errorf("expected entry 2 cleanup untouched, got %d", cleanups[2])
	}
}

func TestEachDispose(t *testing.T) {
	src := reactive.NewCell([]row{{id: 1}, {id: 2}})

	cleanups := 0
	l := Each(FromCell(src), rowKey, func(r row) *unit {
		reactive.OnCleanup(func() { cleanups++ })
		return &unit{}
	})

	l.Dispose()
	l.Dispose()

	if cleanups != 2 {
		t.Errorf("expected both entry cleanups, got %d", cleanups)
	}
	if len(l.Units()) != 0 {
		t.Error("expected no units after dispose")
	}

	// Source changes after disposal are ignored.
	src.Set([]row{{id: 3}})
	if l.Len() != 0 {
		t.Errorf("expected disposed list to ignore updates, got %d entries", l.Len())
	}
}

func TestEachOwningScopeDisposal(t *testing.T) {
	src := reactive.NewCell([]row{{id: 1}})

	var l *List[row, *unit]
	scope := reactive.RunInScope(func() {
		l = Each(FromCell(src), rowKey, func(r row) *unit {
			return &unit{}
		})
	})

	scope.Dispose()

	src.Set([]row{{id: 1}, {id: 2}})
	if l.Len() != 1 {
		t.Errorf("expected list owned by disposed scope to ignore updates, got %d entries", l.Len())
	}
}

func TestEachManyPreservesUnitOrder(t *testing.T) {
	src := reactive.NewCell([]row{{1, "a"}, {2, "b"}})

	l := EachMany(FromCell(src), rowKey, func(r row) []*unit {
		return []*unit{
			{label: r.label + "-open"},
			{label: r.label + "-close"},
		}
	})
	defer l.Dispose()

	src.Set([]row{{2, "b"}, {1, "a"}})

	units := l.Units()
	want := []string{"b-open", "b-close", "a-open", "a-close"}
	if len(units) != len(want) {
		t.Fatalf("expected %d units, got %d", len(want), len(units))
	}
	for i, w := range want {
		if units[i].label != w {
			t.Errorf("unit %d: expected %s, got %s", i, w, units[i].label)
		}
	}
}

func shuffleBench(b *testing.B, n int) {
	items := make([]row, n)
	for i := range items {
		items[i] = row{id: i}
	}
	src := reactive.NewCell(items)

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		return &unit{}
	})
	defer l.Dispose()

	rng := rand.New(rand.NewSource(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		shuffled := append([]row(nil), items...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		src.Set(shuffled)
	}
}

func BenchmarkShuffle100(b *testing.B)  { shuffleBench(b, 100) }
func BenchmarkShuffle1000(b *testing.B) { shuffleBench(b, 1000) }

func BenchmarkReverse1000(b *testing.B) {
	const n = 1000
	items := make([]row, n)
	reversed := make([]row, n)
	for i := range items {
		items[i] = row{id: i}
		reversed[n-1-i] = row{id: i}
	}
	src := reactive.NewCell(items)

	l := Each(FromCell(src), rowKey, func(r row) *unit {
		return &unit{}
	})
	defer l.Dispose()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%2 == 0 {
			src.Set(reversed)
		} else {
			src.Set(items)
		}
	}
}
