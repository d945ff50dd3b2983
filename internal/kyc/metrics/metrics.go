package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for KYC operations.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ClientsRegistered prometheus.Counter
	AccessDenied      prometheus.Counter
	ApprovalsGranted  prometheus.Counter
	ApprovalsRevoked  prometheus.Counter
	SelfRevocations   prometheus.Counter
	LedgerConflicts   prometheus.Counter
}

// New registers KYC metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers KYC metrics on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ekyc_operations_total",
			Help: "KYC operations by name and result code",
		}, []string{"operation", "result"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ekyc_operation_duration_seconds",
			Help:    "Time spent in one KYC ledger transaction",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),
		ClientsRegistered: f.NewCounter(prometheus.CounterOpts{
			Name: "ekyc_clients_registered_total",
			Help: "Client records registered",
		}),
		AccessDenied: f.NewCounter(prometheus.CounterOpts{
			Name: "ekyc_client_data_denied_total",
			Help: "Client data reads refused because the caller is not approved",
		}),
		ApprovalsGranted: f.NewCounter(prometheus.CounterOpts{
			Name: "ekyc_approvals_granted_total",
			Help: "Approval edges created",
		}),
		ApprovalsRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "ekyc_approvals_revoked_total",
			Help: "Approval edges deleted",
		}),
		SelfRevocations: f.NewCounter(prometheus.CounterOpts{
			Name: "ekyc_self_revocations_total",
			Help: "Registrants that removed their own approval edge",
		}),
		LedgerConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "ekyc_ledger_conflicts_total",
			Help: "Transactions aborted by a concurrent commit",
		}),
	}
}

func (m *Metrics) ObserveOperation(operation, result string, seconds float64) {
	m.Operations.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) IncClientsRegistered() { m.ClientsRegistered.Inc() }
func (m *Metrics) IncAccessDenied()      { m.AccessDenied.Inc() }
func (m *Metrics) IncApprovalsGranted()  { m.ApprovalsGranted.Inc() }
func (m *Metrics) IncApprovalsRevoked()  { m.ApprovalsRevoked.Inc() }
func (m *Metrics) IncSelfRevocations()   { m.SelfRevocations.Inc() }
func (m *Metrics) IncLedgerConflicts()   { m.LedgerConflicts.Inc() }
