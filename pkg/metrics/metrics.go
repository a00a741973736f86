// Package metrics exposes engine and reconciler counters to Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/elbywan/balises-sub000/pkg/keyed"
	"github.com/elbywan/balises-sub000/pkg/reactive"
)

// Config configures the metrics surface.
type Config struct {
	// Namespace is the metrics namespace (default: "balises").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for reconcile duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// StatsFunc supplies the engine counter snapshot.
	// Default: reactive.Stats. Overridable for tests.
	StatsFunc func() reactive.EngineStats
}

// Option configures the metrics surface.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithStatsFunc sets the engine snapshot source.
func WithStatsFunc(fn func() reactive.EngineStats) Option {
	return func(c *Config) {
		c.StatsFunc = fn
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "balises",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
		StatsFunc: reactive.Stats,
	}
}

// EngineCollector is a prometheus.Collector reading the engine's atomic
// counters at scrape time. No sampling loop runs in between scrapes.
type EngineCollector struct {
	stats func() reactive.EngineStats

	cellsCreated      *prometheus.Desc
	derivedCreated    *prometheus.Desc
	reactionsCreated  *prometheus.Desc
	cellWrites        *prometheus.Desc
	derivedRecomputes *prometheus.Desc
	reactionRuns      *prometheus.Desc
	batchFlushes      *prometheus.Desc
}

// NewEngineCollector builds the collector. Register it with the registry
// of your choice; it is not registered automatically.
func NewEngineCollector(opts ...Option) *EngineCollector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(config.Namespace, config.Subsystem, name),
			help, nil, config.ConstLabels,
		)
	}

	return &EngineCollector{
		stats:             config.StatsFunc,
		cellsCreated:      desc("cells_created_total", "Total reactive cells created"),
		derivedCreated:    desc("derived_created_total", "Total derived values created"),
		reactionsCreated:  desc("reactions_created_total", "Total reactions created"),
		cellWrites:        desc("cell_writes_total", "Total cell writes that changed a value"),
		derivedRecomputes: desc("derived_recomputes_total", "Total derived value recomputations"),
		reactionRuns:      desc("reaction_runs_total", "Total reaction body executions"),
		batchFlushes:      desc("batch_flushes_total", "Total settled batch flushes"),
	}
}

// Describe implements prometheus.Collector.
func (c *EngineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cellsCreated
	ch <- c.derivedCreated
	ch <- c.reactionsCreated
	ch <- c.cellWrites
	ch <- c.derivedRecomputes
	ch <- c.reactionRuns
	ch <- c.batchFlushes
}

// Collect implements prometheus.Collector.
func (c *EngineCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.stats()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.cellsCreated, st.CellsCreated)
	counter(c.derivedCreated, st.DerivedCreated)
	counter(c.reactionsCreated, st.ReactionsCreated)
	counter(c.cellWrites, st.CellWrites)
	counter(c.derivedRecomputes, st.DerivedRecomputes)
	counter(c.reactionRuns, st.ReactionRuns)
	counter(c.batchFlushes, st.BatchFlushes)
}

// reconcilerMetrics holds the Prometheus metrics for reconciler updates.
type reconcilerMetrics struct {
	updatesTotal    prometheus.Counter
	entriesCreated  prometheus.Counter
	entriesReused   prometheus.Counter
	entriesMoved    prometheus.Counter
	entriesDisposed prometheus.Counter
	duplicateKeys   prometheus.Counter
	updateDuration  prometheus.Histogram
}

// globalReconciler is the singleton reconciler metrics instance,
// created on first call to Reconciler().
var (
	globalReconciler   *reconcilerMetrics
	globalReconcilerMu sync.Mutex
)

func initReconciler(config Config) *reconcilerMetrics {
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &reconcilerMetrics{
		updatesTotal:    counter("reconcile_updates_total", "Total reconciliation passes"),
		entriesCreated:  counter("reconcile_created_total", "Total entries rendered fresh"),
		entriesReused:   counter("reconcile_reused_total", "Total entries carried forward"),
		entriesMoved:    counter("reconcile_moved_total", "Total entries relocated"),
		entriesDisposed: counter("reconcile_disposed_total", "Total entries torn down"),
		duplicateKeys:   counter("reconcile_duplicate_keys_total", "Total duplicate keys skipped"),
		updateDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reconcile_duration_seconds",
			Help:        "Reconciliation pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
	}
}

// Reconciler initializes the reconciler metrics once. Later calls return
// without re-registering, ignoring their options.
func Reconciler(opts ...Option) {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	globalReconcilerMu.Lock()
	defer globalReconcilerMu.Unlock()
	if globalReconciler == nil {
		globalReconciler = initReconciler(config)
	}
}

// RecordReconcile records one reconciliation pass.
// No-op until Reconciler() has been called.
func RecordReconcile(st keyed.Stats, d time.Duration) {
	globalReconcilerMu.Lock()
	m := globalReconciler
	globalReconcilerMu.Unlock()
	if m == nil {
		return
	}

	m.updatesTotal.Inc()
	m.entriesCreated.Add(float64(st.Created))
	m.entriesReused.Add(float64(st.Reused))
	m.entriesMoved.Add(float64(st.Moved))
	m.entriesDisposed.Add(float64(st.Disposed))
	m.duplicateKeys.Add(float64(st.Duplicates))
	m.updateDuration.Observe(d.Seconds())
}
