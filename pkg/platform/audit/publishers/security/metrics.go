package security

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks security audit emission. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Emitted       *prometheus.CounterVec
	Persisted     prometheus.Counter
	WriteFailures prometheus.Counter
	Overwritten   prometheus.Counter
	Pending       prometheus.Gauge
}

// NewMetrics registers publisher metrics on reg. Passing nil creates
// unregistered collectors, which keeps tests free of global state.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Emitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestgate_audit_security_emitted_total",
			Help: "Security events emitted, by kind",
		}, []string{"kind"}),
		Persisted: f.NewCounter(prometheus.CounterOpts{
			Name: "ingestgate_audit_security_persisted_total",
			Help: "Security events written to the primary sink",
		}),
		WriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "ingestgate_audit_security_write_failures_total",
			Help: "Security events lost to primary sink write failures or timeouts",
		}),
		Overwritten: f.NewCounter(prometheus.CounterOpts{
			Name: "ingestgate_audit_security_overwritten_total",
			Help: "Pending security events overwritten because the buffer was full",
		}),
		Pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "ingestgate_audit_security_pending",
			Help: "Security events waiting in the async buffer",
		}),
	}
}

func (m *Metrics) incEmitted(kind string) {
	if m != nil {
		m.Emitted.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) addPersisted(n int) {
	if m != nil {
		m.Persisted.Add(float64(n))
	}
}

func (m *Metrics) addWriteFailures(n int) {
	if m != nil {
		m.WriteFailures.Add(float64(n))
	}
}

func (m *Metrics) incOverwritten() {
	if m != nil {
		m.Overwritten.Inc()
	}
}

func (m *Metrics) setPending(n int) {
	if m != nil {
		m.Pending.Set(float64(n))
	}
}
