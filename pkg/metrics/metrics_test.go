package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/elbywan/balises-sub000/pkg/keyed"
	"github.com/elbywan/balises-sub000/pkg/reactive"
)

func TestEngineCollectorScrape(t *testing.T) {
	fixed := reactive.EngineStats{
		CellsCreated:   3,
		ReactionRuns:   7,
		BatchFlushes:   2,
		CellWrites:     5,
		DerivedCreated: 1,
	}

	c := NewEngineCollector(
		WithNamespace("testns"),
		WithStatsFunc(func() reactive.EngineStats { return fixed }),
	)

	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			got[mf.GetName()] = m.GetCounter().GetValue()
		}
	}

	checks := map[string]float64{
		"testns_cells_created_total": 3,
		"testns_reaction_runs_total": 7,
		"testns_batch_flushes_total": 2,
		"testns_cell_writes_total":   5,
	}
	for name, want := range checks {
		if got[name] != want {
			t.Errorf("%s: expected %v, got %v", name, want, got[name])
		}
	}

	for name := range got {
		if !strings.HasPrefix(name, "testns_") {
			t.Errorf("metric %s missing namespace", name)
		}
	}
}

func TestEngineCollectorDescribeCount(t *testing.T) {
	c := NewEngineCollector()

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	if n != 7 {
		t.Errorf("expected 7 descriptors, got %d", n)
	}
}

func TestRecordReconcile(t *testing.T) {
	reg := prometheus.NewRegistry()
	Reconciler(WithNamespace("recns"), WithRegistry(reg))

	RecordReconcile(keyed.Stats{
		Created:    2,
		Reused:     5,
		Moved:      1,
		Disposed:   1,
		Duplicates: 1,
	}, 3*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	find := func(name string) *dto.MetricFamily {
		for _, mf := range families {
			if mf.GetName() == name {
				return mf
			}
		}
		return nil
	}

	created := find("recns_reconcile_created_total")
	if created == nil {
		t.Fatal("missing created counter")
	}
	if v := created.GetMetric()[0].GetCounter().GetValue(); v != 2 {
		t.Errorf("expected 2 created, got %v", v)
	}

	dur := find("recns_reconcile_duration_seconds")
	if dur == nil {
		t.Fatal("missing duration histogram")
	}
	if n := dur.GetMetric()[0].GetHistogram().GetSampleCount(); n != 1 {
		t.Errorf("expected 1 duration sample, got %d", n)
	}
}
