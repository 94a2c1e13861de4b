package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"ingestgate/pkg/platform/audit"
)

type Metrics struct {
	Rejections *prometheus.CounterVec
}

// NewMetrics registers gate metrics with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestgate_gate_rejections_total",
			Help: "Requests rejected by the auth and rate limit gate, by security event kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) IncrementRejection(kind audit.Kind) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(string(kind)).Inc()
}
