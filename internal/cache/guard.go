package cache

import (
	"log/slog"
	"sync"
	"time"

	"agora/internal/cache/metrics"
	"agora/pkg/platform/circuit"
)

// storeGuard wraps the record-store circuit breaker shared by every
// collection cache. The breaker only accounts outcomes; the guard owns the
// probe schedule, admitting one resolution per interval while open.
type storeGuard struct {
	breaker    *circuit.Breaker
	probeEvery time.Duration
	log        *slog.Logger
	m          *metrics.Metrics

	mu        sync.Mutex
	lastProbe time.Time
}

func newStoreGuard(breaker *circuit.Breaker, probeEvery time.Duration, log *slog.Logger, m *metrics.Metrics) *storeGuard {
	return &storeGuard{breaker: breaker, probeEvery: probeEvery, log: log, m: m}
}

// admit reports whether a resolution may proceed.
func (g *storeGuard) admit() bool {
	if !g.breaker.IsOpen() {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if now.Sub(g.lastProbe) < g.probeEvery {
		return false
	}
	g.lastProbe = now
	return true
}

func (g *storeGuard) success() {
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.m.SetBreakerOpen(g.breaker.Name(), false)
		g.log.Info("record store circuit closed", "breaker", g.breaker.Name())
	}
}

func (g *storeGuard) failure() {
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.m.SetBreakerOpen(g.breaker.Name(), true)
		g.log.Warn("record store circuit opened", "breaker", g.breaker.Name())
	}
}
