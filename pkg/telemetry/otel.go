package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for strand.
const defaultTracerName = "strand"

// TraceConfig configures flush-pass tracing.
type TraceConfig struct {
	// TracerName is the instrumentation scope name (default: "strand").
	TracerName string

	tracer trace.Tracer
}

// TraceOption configures the flush tracer.
type TraceOption func(*TraceConfig)

// WithTracerName sets the instrumentation scope name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// NewFlushTracer returns a FlushTracer that opens one span per flush
// chain using the globally configured otel tracer provider.
func NewFlushTracer(opts ...TraceOption) *FlushTracer {
	cfg := &TraceConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.tracer = otel.Tracer(cfg.TracerName)
	return &FlushTracer{tracer: cfg.tracer}
}

// FlushTracer opens spans around scheduler flush chains.
// Methods are safe on a nil receiver.
type FlushTracer struct {
	tracer trace.Tracer
}

// StartFlush opens a span for one flush chain.
func (t *FlushTracer) StartFlush(ctx context.Context, queued int) (context.Context, trace.Span) {
	if t == nil {
		return ctx, nil
	}
	return t.tracer.Start(ctx, "scheduler.flush",
		trace.WithAttributes(attribute.Int("strand.jobs_queued", queued)))
}

// EndFlush closes the span with the final counts of the chain.
func (t *FlushTracer) EndFlush(span trace.Span, jobsRun, passes int) {
	if t == nil || span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("strand.jobs_run", jobsRun),
		attribute.Int("strand.flush_passes", passes),
	)
	span.End()
}
