package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of one Track call.
const (
	OutcomeRecorded    = "recorded"
	OutcomeSampledOut  = "sampled_out"
	OutcomeBreakerOpen = "breaker_open"
	OutcomeStoreFailed = "store_failed"
)

// Metrics counts what happened to each read event offered to the tracker.
type Metrics struct {
	Outcomes    *prometheus.CounterVec
	BreakerOpen prometheus.Gauge
}

func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ekyc_audit_reads_total",
			Help: "Client and institution read events offered to the ops trail, by outcome",
		}, []string{"outcome"}),
		BreakerOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "ekyc_audit_reads_breaker_open",
			Help: "1 while the ops trail store is skipped after repeated failures",
		}),
	}
}

// Observe counts one outcome.
func (m *Metrics) Observe(outcome string) {
	m.Outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetBreakerOpen(open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.Set(v)
}
