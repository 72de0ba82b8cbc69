// Package metrics records cache layer activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	hits              *prometheus.CounterVec
	misses            *prometheus.CounterVec
	resolutions       *prometheus.CounterVec
	retries           prometheus.Counter
	reconcileFailures *prometheus.CounterVec
	breakerState      *prometheus.GaugeVec
}

func New() *Metrics {
	return &Metrics{
		hits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_cache_hits_total",
			Help: "Reads served from a fresh cache entry.",
		}, []string{"collection"}),
		misses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_cache_misses_total",
			Help: "Reads that found no fresh entry.",
		}, []string{"collection"}),
		resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_cache_resolutions_total",
			Help: "Authoritative resolutions triggered by the cache.",
		}, []string{"collection"}),
		retries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "agora_cache_resolution_retries_total",
			Help: "Transient resolution failures retried with backoff.",
		}),
		reconcileFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "agora_cache_reconcile_failures_total",
			Help: "Post-write reconciliations that failed and kept the optimistic entry.",
		}, []string{"collection"}),
		breakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agora_cache_breaker_open",
			Help: "1 while the record store circuit is open.",
		}, []string{"breaker"}),
	}
}

func (m *Metrics) IncrementHit(collection string) {
	if m == nil {
		return
	}
	m.hits.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncrementMiss(collection string) {
	if m == nil {
		return
	}
	m.misses.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncrementResolution(collection string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(collection).Inc()
}

func (m *Metrics) IncrementRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) IncrementReconcileFailure(collection string) {
	if m == nil {
		return
	}
	m.reconcileFailures.WithLabelValues(collection).Inc()
}

func (m *Metrics) SetBreakerOpen(breaker string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1.0
	}
	m.breakerState.WithLabelValues(breaker).Set(v)
}
