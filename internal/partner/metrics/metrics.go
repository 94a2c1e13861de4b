package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers credential resolution on the request hot path.
type Metrics struct {
	ResolveDuration prometheus.Histogram
	Outcomes        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ResolveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ingestgate_credential_resolve_duration_seconds",
			Help:    "Duration of credential resolution including hash comparison",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestgate_credential_resolve_total",
			Help: "Credential resolutions by outcome (resolved, rejected, error)",
		}, []string{"outcome"}),
	}
}

// ObserveResolve records one resolution. Call with time.Now() taken at the
// start of the operation.
func (m *Metrics) ObserveResolve(start time.Time, outcome string) {
	if m == nil {
		return
	}
	m.ResolveDuration.Observe(time.Since(start).Seconds())
	m.Outcomes.WithLabelValues(outcome).Inc()
}
