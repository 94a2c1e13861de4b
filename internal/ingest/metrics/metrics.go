package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ingest pipeline.
type Metrics struct {
	// Stage latencies: validate, store, derive
	StageLatency *prometheus.HistogramVec

	// Accepted events by type
	Accepted *prometheus.CounterVec

	// Rejected requests by domain error code
	Rejected *prometheus.CounterVec

	// Events stored without an insight
	PartialSuccess prometheus.Counter
}

// New registers the ingest metrics with reg. A nil reg leaves them
// unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingestgate_ingest_stage_duration_seconds",
			Help:    "Duration of ingest pipeline stages",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"stage"}),

		Accepted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestgate_ingest_events_accepted_total",
			Help: "Events persisted, by event type",
		}, []string{"event_type"}),

		Rejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestgate_ingest_events_rejected_total",
			Help: "Ingest requests rejected after the gate, by error code",
		}, []string{"code"}),

		PartialSuccess: f.NewCounter(prometheus.CounterOpts{
			Name: "ingestgate_ingest_partial_success_total",
			Help: "Events stored whose insight could not be derived",
		}),
	}
}

func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) IncrementAccepted(eventType string) {
	if m != nil {
		m.Accepted.WithLabelValues(eventType).Inc()
	}
}

func (m *Metrics) IncrementRejected(code string) {
	if m != nil {
		m.Rejected.WithLabelValues(code).Inc()
	}
}

func (m *Metrics) IncrementPartialSuccess() {
	if m != nil {
		m.PartialSuccess.Inc()
	}
}
