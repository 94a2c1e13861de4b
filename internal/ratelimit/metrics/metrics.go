package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions     *prometheus.CounterVec
	CheckDuration prometheus.Histogram
	StoreErrors   prometheus.Counter
	Degraded      prometheus.Gauge
	Resets        *prometheus.CounterVec
	ConfigMissing *prometheus.CounterVec
}

// New registers the rate limit metrics with reg. A nil reg builds
// unregistered collectors, which tests use to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestgate_ratelimit_decisions_total",
			Help: "Rate limit decisions by limiter, endpoint class and outcome",
		}, []string{"limiter", "class", "outcome"}),
		CheckDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingestgate_ratelimit_check_duration_seconds",
			Help:    "Duration of one conditional increment against the counter store",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "ingestgate_ratelimit_store_errors_total",
			Help: "Counter store calls that failed and were served by the in-memory fallback",
		}),
		Degraded: f.NewGauge(prometheus.GaugeOpts{
			Name: "ingestgate_ratelimit_degraded",
			Help: "1 while the counter store circuit is open and limits are enforced per instance",
		}),
		Resets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestgate_ratelimit_resets_total",
			Help: "Admin rate limit resets by limiter",
		}, []string{"limiter"}),
		ConfigMissing: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestgate_ratelimit_config_missing_total",
			Help: "Requests denied because no budget is configured for the endpoint class",
		}, []string{"limiter", "class"}),
	}
}

func (m *Metrics) ObserveDecision(limiter, class string, allowed bool, start time.Time) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.Decisions.WithLabelValues(limiter, class, outcome).Inc()
	m.CheckDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) SetDegraded(degraded bool) {
	if m == nil {
		return
	}
	if degraded {
		m.Degraded.Set(1)
		return
	}
	m.Degraded.Set(0)
}

func (m *Metrics) IncrementResets(limiter string) {
	if m == nil {
		return
	}
	m.Resets.WithLabelValues(limiter).Inc()
}

func (m *Metrics) IncrementConfigMissing(limiter, class string) {
	if m == nil {
		return
	}
	m.ConfigMissing.WithLabelValues(limiter, class).Inc()
}
