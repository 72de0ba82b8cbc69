package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for authorization decisions.
type Metrics struct {
	// Permission checks by action (create, modify, transition, roles,
	// queue) and outcome (allowed, denied, error).
	Checks *prometheus.CounterVec
}

// New creates a new Metrics instance with all authorization metrics registered.
func New() *Metrics {
	return &Metrics{
		Checks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_authz_checks_total",
			Help: "Permission checks by action and outcome",
		}, []string{"action", "outcome"}),
	}
}

// IncrementCheck records a permission check outcome.
func (m *Metrics) IncrementCheck(action, outcome string) {
	if m != nil {
		m.Checks.WithLabelValues(action, outcome).Inc()
	}
}
