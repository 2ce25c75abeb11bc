package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics records insert outcomes and field degradations for the sink.
type IngestMetrics struct {
	inserted *prometheus.CounterVec
	failed   *prometheus.CounterVec
	degraded *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewIngestMetrics registers the sink metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewIngestMetrics(reg prometheus.Registerer) *IngestMetrics {
	if reg == nil {
		return &IngestMetrics{}
	}
	inserted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sink_events_inserted_total",
		Help: "Events persisted as rows.",
	}, []string{"shape"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sink_events_failed_total",
		Help: "Events whose insert failed.",
	}, []string{"shape"})
	degraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sink_field_degradations_total",
		Help: "Columns written as NULL because the event value could not be coerced.",
	}, []string{"column"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sink_insert_duration_seconds",
		Help:    "Duration of single-row inserts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"shape"})
	reg.MustRegister(inserted, failed, degraded, duration)
	return &IngestMetrics{
		inserted: inserted,
		failed:   failed,
		degraded: degraded,
		duration: duration,
	}
}

// ObserveInsert records one insert attempt for the named shape.
func (m *IngestMetrics) ObserveInsert(shape string, took time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	shape = normalizeLabel(shape)
	m.duration.WithLabelValues(shape).Observe(took.Seconds())
	if err != nil {
		m.failed.WithLabelValues(shape).Inc()
		return
	}
	m.inserted.WithLabelValues(shape).Inc()
}

// IncDegraded counts a column that was written as NULL.
func (m *IngestMetrics) IncDegraded(column string) {
	if m == nil || m.degraded == nil {
		return
	}
	m.degraded.WithLabelValues(normalizeLabel(column)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
