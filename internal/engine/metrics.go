package engine

import (
	"voxelgrid/internal/world"

	"github.com/prometheus/client_golang/prometheus"
)

type engineMetrics struct {
	resident   prometheus.Gauge
	renderable prometheus.Gauge
	evicted    prometheus.Counter
	inserted   prometheus.Counter
	tick       prometheus.Histogram
}

func newEngineMetrics(reg prometheus.Registerer) *engineMetrics {
	if reg == nil {
		return nil
	}
	m := &engineMetrics{
		resident: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxelgrid",
			Subsystem: "world",
			Name:      "resident_chunks",
			Help:      "Chunks currently held by the chunk store.",
		}),
		renderable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxelgrid",
			Subsystem: "world",
			Name:      "renderable_chunks",
			Help:      "Resident chunks with applied geometry.",
		}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelgrid",
			Subsystem: "world",
			Name:      "evicted_chunks_total",
			Help:      "Chunks removed for leaving the streaming box.",
		}),
		inserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voxelgrid",
			Subsystem: "world",
			Name:      "inserted_chunks_total",
			Help:      "Chunks generated and inserted by streaming.",
		}),
		tick: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voxelgrid",
			Subsystem: "engine",
			Name:      "tick_seconds",
			Help:      "Control-loop tick duration.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}
	reg.MustRegister(m.resident, m.renderable, m.evicted, m.inserted, m.tick)
	return m
}

func (m *engineMetrics) observe(st TickStats, store *world.ChunkStore) {
	if m == nil {
		return
	}
	chunks := store.Chunks()
	renderable := 0
	for _, c := range chunks {
		if c.Renderable() {
			renderable++
		}
	}
	m.resident.Set(float64(len(chunks)))
	m.renderable.Set(float64(renderable))
	m.inserted.Add(float64(st.Inserted))
	m.evicted.Add(float64(st.Evicted))
	m.tick.Observe(st.Duration.Seconds())
}
