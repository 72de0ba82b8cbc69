package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the chain resolution engine.
type Metrics struct {
	// Resolution outcomes: resolved, not_found, unavailable, cancelled.
	Resolutions *prometheus.CounterVec

	// Update-graph depth walked per resolution.
	Depth prometheus.Histogram

	// Resolutions that encountered at least one fork.
	Forks prometheus.Counter
}

// New creates a new Metrics instance with all resolution metrics registered.
func New() *Metrics {
	return &Metrics{
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_chain_resolutions_total",
			Help: "Total chain resolutions by outcome",
		}, []string{"outcome"}),

		Depth: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "agora_chain_resolution_depth",
			Help:    "Levels of the update graph walked per resolution",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),

		Forks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agora_chain_forked_resolutions_total",
			Help: "Resolutions that observed a fork in the update graph",
		}),
	}
}

// IncrementResolution records a resolution outcome.
func (m *Metrics) IncrementResolution(outcome string) {
	if m != nil {
		m.Resolutions.WithLabelValues(outcome).Inc()
	}
}

// ObserveDepth records how deep a resolution walked.
func (m *Metrics) ObserveDepth(depth int) {
	if m != nil {
		m.Depth.Observe(float64(depth))
	}
}

// IncrementForks records a resolution that saw concurrent branches.
func (m *Metrics) IncrementForks() {
	if m != nil {
		m.Forks.Inc()
	}
}
