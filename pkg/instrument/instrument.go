// Package instrument traces engine batches and reconciler updates with
// OpenTelemetry spans.
package instrument

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/elbywan/balises-sub000/pkg/keyed"
	"github.com/elbywan/balises-sub000/pkg/reactive"
)

// Default tracer name for the engine.
const defaultTracerName = "balises"

// Config configures the instrumenter.
type Config struct {
	// TracerName is the name of the tracer (default: "balises").
	TracerName string

	// AttributeExtractor supplies extra attributes for every span.
	AttributeExtractor func() []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// Option configures the instrumenter.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func() []attribute.KeyValue) Option {
	return func(c *Config) {
		c.AttributeExtractor = extractor
	}
}

// Instrumenter wraps engine operations in spans. The tracer comes from the
// global OpenTelemetry tracer provider; configure that in main() before
// creating instrumenters.
type Instrumenter struct {
	config Config
}

// New creates an instrumenter.
func New(opts ...Option) *Instrumenter {
	config := Config{
		TracerName: defaultTracerName,
	}
	for _, opt := range opts {
		opt(&config)
	}
	config.tracer = otel.Tracer(config.TracerName)

	return &Instrumenter{config: config}
}

// Batch runs fn inside a reactive batch wrapped in a span. The span
// records how many reaction runs, derived recomputations, and cell writes
// the settled batch caused. A panicking callback is recorded on the span
// and re-raised.
func (i *Instrumenter) Batch(ctx context.Context, name string, fn func()) {
	spanName := fmt.Sprintf("batch %s", name)
	_, span := i.config.tracer.Start(
		ctx,
		spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(time.Now()),
		trace.WithAttributes(i.extraAttributes()...),
	)
	defer span.End()

	before := reactive.Stats()

	defer func() {
		after := reactive.Stats()
		span.SetAttributes(
			attribute.Int64("balises.reaction_runs", int64(after.ReactionRuns-before.ReactionRuns)),
			attribute.Int64("balises.derived_recomputes", int64(after.DerivedRecomputes-before.DerivedRecomputes)),
			attribute.Int64("balises.cell_writes", int64(after.CellWrites-before.CellWrites)),
		)
		if r := recover(); r != nil {
			err := fmt.Errorf("batch panicked: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			panic(r)
		}
		span.SetStatus(codes.Ok, "")
	}()

	reactive.Batch(fn)
}

// Reconcile runs an update that drives a reconciler (typically a source
// write) and records the resulting pass statistics on a span.
func (i *Instrumenter) Reconcile(ctx context.Context, name string, update func() keyed.Stats) keyed.Stats {
	spanName := fmt.Sprintf("reconcile %s", name)
	_, span := i.config.tracer.Start(
		ctx,
		spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(time.Now()),
		trace.WithAttributes(i.extraAttributes()...),
	)
	defer span.End()

	var st keyed.Stats
	defer func() {
		span.SetAttributes(
			attribute.Int("balises.entries_created", st.Created),
			attribute.Int("balises.entries_reused", st.Reused),
			attribute.Int("balises.entries_moved", st.Moved),
			attribute.Int("balises.entries_disposed", st.Disposed),
			attribute.Int("balises.duplicate_keys", st.Duplicates),
		)
		if r := recover(); r != nil {
			err := fmt.Errorf("reconcile panicked: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			panic(r)
		}
		span.SetStatus(codes.Ok, "")
	}()

	st = update()
	return st
}

func (i *Instrumenter) extraAttributes() []attribute.KeyValue {
	if i.config.AttributeExtractor == nil {
		return nil
	}
	return i.config.AttributeExtractor()
}
