package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the scheduler's prometheus instruments.
// All recording methods are safe on a nil receiver, so callers can thread
// an optional *Metrics through without nil checks at every site.
type Metrics struct {
	flushPasses   prometheus.Counter
	jobsRun       prometheus.Counter
	jobPanics     prometheus.Counter
	jobsEnqueued  prometheus.Counter
	invalidations prometheus.Counter
	postFlushRuns prometheus.Counter
	queueDepth    prometheus.Gauge
	flushDuration prometheus.Histogram
}

// NewMetrics registers the scheduler instruments on reg.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		flushPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "strand",
			Subsystem: "scheduler",
			Name:      "flush_passes_total",
			Help:      "Flush passes completed, including chained re-flushes.",
		}),
		jobsRun: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "strand",
			Subsystem: "scheduler",
			Name:      "jobs_run_total",
			Help:      "Jobs executed across all flush passes.",
		}),
		jobPanics: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "strand",
			Subsystem: "scheduler",
			Name:      "job_panics_total",
			Help:      "Jobs that panicked and were isolated.",
		}),
		jobsEnqueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "strand",
			Subsystem: "scheduler",
			Name:      "jobs_enqueued_total",
			Help:      "Jobs accepted into the queue (after dedup).",
		}),
		invalidations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "strand",
			Subsystem: "scheduler",
			Name:      "jobs_invalidated_total",
			Help:      "Pending jobs cancelled in place.",
		}),
		postFlushRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "strand",
			Subsystem: "scheduler",
			Name:      "post_flush_callbacks_total",
			Help:      "Post-flush callbacks executed.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "strand",
			Subsystem: "scheduler",
			Name:      "queue_depth",
			Help:      "Jobs currently pending in the main queue.",
		}),
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "strand",
			Subsystem: "scheduler",
			Name:      "flush_duration_seconds",
			Help:      "Wall time of complete flush chains.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
}

// FlushPass records one completed flush pass.
func (m *Metrics) FlushPass() {
	if m == nil {
		return
	}
	m.flushPasses.Inc()
}

// JobRun records one executed job.
func (m *Metrics) JobRun() {
	if m == nil {
		return
	}
	m.jobsRun.Inc()
}

// JobPanic records one isolated job failure.
func (m *Metrics) JobPanic() {
	if m == nil {
		return
	}
	m.jobPanics.Inc()
}

// JobEnqueued records one accepted enqueue.
func (m *Metrics) JobEnqueued() {
	if m == nil {
		return
	}
	m.jobsEnqueued.Inc()
}

// JobInvalidated records one in-place cancellation.
func (m *Metrics) JobInvalidated() {
	if m == nil {
		return
	}
	m.invalidations.Inc()
}

// PostFlushRun records one executed post-flush callback.
func (m *Metrics) PostFlushRun() {
	if m == nil {
		return
	}
	m.postFlushRuns.Inc()
}

// SetQueueDepth records the current pending-job count.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// FlushSettled records the duration of a complete flush chain.
func (m *Metrics) FlushSettled(d time.Duration) {
	if m == nil {
		return
	}
	m.flushDuration.Observe(d.Seconds())
}
