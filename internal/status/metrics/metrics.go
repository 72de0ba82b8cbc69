package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the status lifecycle engine.
type Metrics struct {
	// Transitions written, by lifecycle edge.
	Transitions *prometheus.CounterVec

	// Approvals written to record a temporary suspension that lapsed
	// before the next transition.
	Materializations prometheus.Counter
}

// New creates a new Metrics instance with all lifecycle metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_status_transitions_total",
			Help: "Total status transitions written, by edge",
		}, []string{"from", "to"}),

		Materializations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agora_status_materializations_total",
			Help: "Lapsed temporary suspensions written down as approvals",
		}),
	}
}

// IncrementTransition records a written lifecycle edge.
func (m *Metrics) IncrementTransition(from, to string) {
	if m != nil {
		m.Transitions.WithLabelValues(from, to).Inc()
	}
}

// IncrementMaterializations records a lazy-expiry approval write.
func (m *Metrics) IncrementMaterializations() {
	if m != nil {
		m.Materializations.Inc()
	}
}
