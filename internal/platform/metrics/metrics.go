package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the ingestion core. One
// instance is created at wiring time and shared; all methods are nil-safe so
// library callers that don't care about metrics can pass nil.
type Metrics struct {
	RecordsIngested *prometheus.CounterVec
	FallbackRescues *prometheus.CounterVec
	AuditAppendMs   prometheus.Histogram
	BatchSeconds    prometheus.Histogram
}

// New creates and registers all Prometheus metrics with the default
// registerer.
func New() *Metrics {
	return &Metrics{
		RecordsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "omnigest_records_ingested_total",
			Help: "Records evaluated, labeled by disposition and reason",
		}, []string{"disposition", "reason"}),
		FallbackRescues: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "omnigest_fallback_rescues_total",
			Help: "Identity fields rescued by the fallback stage, by field and strategy",
		}, []string{"field", "strategy"}),
		AuditAppendMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "omnigest_audit_append_duration_ms",
			Help:    "Latency of confirmed audit appends in milliseconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 100},
		}),
		BatchSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "omnigest_batch_duration_seconds",
			Help:    "Wall-clock duration of full batch runs",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveDisposition counts one evaluated record.
func (m *Metrics) ObserveDisposition(disposition, reason string) {
	if m == nil {
		return
	}
	m.RecordsIngested.WithLabelValues(disposition, reason).Inc()
}

// ObserveRescue counts one fallback rescue.
func (m *Metrics) ObserveRescue(field, strategy string) {
	if m == nil {
		return
	}
	m.FallbackRescues.WithLabelValues(field, strategy).Inc()
}

// ObserveAuditAppend records the latency of one confirmed audit append.
func (m *Metrics) ObserveAuditAppend(d time.Duration) {
	if m == nil {
		return
	}
	m.AuditAppendMs.Observe(float64(d.Microseconds()) / 1000.0)
}

// ObserveBatch records the duration of one batch run.
func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.BatchSeconds.Observe(d.Seconds())
}
