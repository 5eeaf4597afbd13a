// Package observability provides Prometheus metrics for the auth service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// Outcome constants for operation metrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure" // business-rule rejection
	OutcomeError   = "error"   // infrastructure failure
)

// Metrics holds the service's custom Prometheus collectors. A nil *Metrics is
// a valid no-op sink, so tests can pass nil.
type Metrics struct {
	AuthOperations  *prometheus.CounterVec
	EmailDeliveries *prometheus.CounterVec
}

// NewMetrics creates and registers the auth metrics with the given registry.
// Panics if registration fails (following prometheus convention).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_auth_operations_total",
				Help: "Total number of auth operations by operation, outcome and reason",
			},
			[]string{"operation", "outcome", "reason"},
		),
		EmailDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "authgate_email_deliveries_total",
				Help: "Total number of email delivery attempts by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}
	reg.MustRegister(m.AuthOperations)
	reg.MustRegister(m.EmailDeliveries)
	return m
}

// RecordOperation increments the operation counter. reason is empty for
// successes and names the internal failure cause otherwise.
func (m *Metrics) RecordOperation(operation, outcome, reason string) {
	if m == nil {
		return
	}
	m.AuthOperations.WithLabelValues(operation, outcome, reason).Inc()
}

// RecordEmailDelivery increments the delivery counter for the given mail kind.
func (m *Metrics) RecordEmailDelivery(kind, outcome string) {
	if m == nil {
		return
	}
	m.EmailDeliveries.WithLabelValues(kind, outcome).Inc()
}
