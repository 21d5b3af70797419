package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes build scheduler counters to Prometheus. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	dispatched prometheus.Counter
	completed  prometheus.Counter
	failed     prometheus.Counter
	retried    prometheus.Counter
	timedOut   prometheus.Counter
	stale      prometheus.Counter
	quads      prometheus.Counter
	inflight   prometheus.Gauge
	duration   prometheus.Histogram
}

// NewMetrics creates the scheduler metrics and registers them on reg when it
// is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelgrid",
			Subsystem: "build",
			Name:      "dispatched_total",
			Help:      "Mesh build tasks handed to workers.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelgrid",
			Subsystem: "build",
			Name:      "completed_total",
			Help:      "Mesh builds applied to their chunk.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelgrid",
			Subsystem: "build",
			Name:      "failed_total",
			Help:      "Chunks that exhausted their build attempts.",
		}),
		retried: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelgrid",
			Subsystem: "build",
			Name:      "retried_total",
			Help:      "Failed builds scheduled for another attempt.",
		}),
		timedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelgrid",
			Subsystem: "build",
			Name:      "timed_out_total",
			Help:      "Builds abandoned after exceeding the build timeout.",
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelgrid",
			Subsystem: "build",
			Name:      "stale_results_total",
			Help:      "Results discarded because their task was superseded or the chunk evicted.",
		}),
		quads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelgrid",
			Subsystem: "build",
			Name:      "quads_total",
			Help:      "Quads produced by applied builds.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxelgrid",
			Subsystem: "build",
			Name:      "inflight",
			Help:      "Build tasks dispatched and not yet observed by a poll.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxelgrid",
			Subsystem: "build",
			Name:      "duration_seconds",
			Help:      "Worker time spent per mesh build.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.dispatched, m.completed, m.failed, m.retried,
			m.timedOut, m.stale, m.quads, m.inflight, m.duration)
	}
	return m
}

func (m *Metrics) onDispatch() {
	if m == nil {
		return
	}
	m.dispatched.Inc()
	m.inflight.Inc()
}

func (m *Metrics) onSettled() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}

func (m *Metrics) onComplete(seconds float64, quads int) {
	if m == nil {
		return
	}
	m.completed.Inc()
	m.duration.Observe(seconds)
	m.quads.Add(float64(quads))
}

func (m *Metrics) onRetry() {
	if m == nil {
		return
	}
	m.retried.Inc()
}

func (m *Metrics) onFailed() {
	if m == nil {
		return
	}
	m.failed.Inc()
}

func (m *Metrics) onTimeout() {
	if m == nil {
		return
	}
	m.timedOut.Inc()
}

func (m *Metrics) onStale() {
	if m == nil {
		return
	}
	m.stale.Inc()
}
