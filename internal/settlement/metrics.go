package settlement

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels a settlement registration attempt.
type Outcome string

const (
	OutcomeRegistered Outcome = "registered"
	OutcomeRejected   Outcome = "rejected"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeFailed     Outcome = "failed"
)

// Metrics counts registration outcomes.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

// NewMetrics registers the settlement collectors. A nil registerer yields a no-op value.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		return nil
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_settlement_outcomes_total",
		Help: "Payment registration attempts partitioned by outcome.",
	}, []string{"outcome"})
	registerer.MustRegister(outcomes)
	return &Metrics{outcomes: outcomes}
}

func (m *Metrics) observe(outcome Outcome) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(outcome)).Inc()
}
