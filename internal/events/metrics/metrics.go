// Package metrics records event bus activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	published       *prometheus.CounterVec
	handlerFailures *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		published: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_events_published_total",
			Help: "Events published to the in-process bus.",
		}, []string{"collection", "type"}),
		handlerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_events_handler_failures_total",
			Help: "Subscriber callbacks that returned an error or panicked.",
		}, []string{"collection", "mode"}),
	}
}

func (m *Metrics) IncrementPublished(collection, typ string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(collection, typ).Inc()
}

// IncrementHandlerFailure counts an isolated subscriber failure; mode is
// "error" or "panic".
func (m *Metrics) IncrementHandlerFailure(collection, mode string) {
	if m == nil {
		return
	}
	m.handlerFailures.WithLabelValues(collection, mode).Inc()
}
