package cache

import (
	"context"
	"log/slog"
	"time"

	"agora/internal/cache/metrics"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/circuit"
)

const (
	// DefaultTTL is how long a resolved snapshot is served without
	// re-resolution.
	DefaultTTL = 5 * time.Minute

	defaultRetryAttempts = 3
	defaultRetryBase     = time.Second
	defaultProbeInterval = 30 * time.Second
)

// Manager owns one Cache per collection. It is built at the composition
// root and passed down explicitly; there is no package-level instance.
type Manager struct {
	log    *slog.Logger
	m      *metrics.Metrics
	caches map[domain.Collection]*Cache
}

type managerConfig struct {
	log            *slog.Logger
	m              *metrics.Metrics
	defaultTTL     time.Duration
	collectionTTLs map[domain.Collection]time.Duration
	attempts       int
	base           time.Duration
	breaker        *circuit.Breaker
	probeEvery     time.Duration
}

// Option configures a Manager.
type Option func(*managerConfig)

// WithLogger sets the manager logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *managerConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics attaches cache metrics. Nil is allowed.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *managerConfig) { c.m = m }
}

// WithTTL sets the freshness window for every collection.
func WithTTL(ttl time.Duration) Option {
	return func(c *managerConfig) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithCollectionTTL overrides the freshness window for one collection.
func WithCollectionTTL(collection domain.Collection, ttl time.Duration) Option {
	return func(c *managerConfig) {
		if ttl > 0 {
			c.collectionTTLs[collection] = ttl
		}
	}
}

// WithRetry sets the transient-retry budget: total attempts and the first
// delay, doubling between attempts.
func WithRetry(attempts int, base time.Duration) Option {
	return func(c *managerConfig) {
		if attempts > 0 {
			c.attempts = attempts
		}
		if base > 0 {
			c.base = base
		}
	}
}

// WithBreaker replaces the default record-store breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *managerConfig) {
		if b != nil {
			c.breaker = b
		}
	}
}

// WithProbeInterval sets how often an open circuit admits a probe.
func WithProbeInterval(d time.Duration) Option {
	return func(c *managerConfig) {
		if d > 0 {
			c.probeEvery = d
		}
	}
}

// NewManager builds the per-collection caches over one backend and one
// resolver.
func NewManager(backend Backend, resolve ResolveFunc, opts ...Option) *Manager {
	cfg := managerConfig{
		log:            slog.Default(),
		defaultTTL:     DefaultTTL,
		collectionTTLs: make(map[domain.Collection]time.Duration),
		attempts:       defaultRetryAttempts,
		base:           defaultRetryBase,
		probeEvery:     defaultProbeInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.breaker == nil {
		cfg.breaker = circuit.New("record-store")
	}

	guard := newStoreGuard(cfg.breaker, cfg.probeEvery, cfg.log, cfg.m)
	mgr := &Manager{
		log:    cfg.log,
		m:      cfg.m,
		caches: make(map[domain.Collection]*Cache, len(domain.Collections())),
	}
	for _, collection := range domain.Collections() {
		ttl := cfg.defaultTTL
		if override, ok := cfg.collectionTTLs[collection]; ok {
			ttl = override
		}
		mgr.caches[collection] = &Cache{
			collection: collection,
			backend:    backend,
			resolve:    resolve,
			guard:      guard,
			ttl:        ttl,
			attempts:   cfg.attempts,
			base:       cfg.base,
			log:        cfg.log,
			m:          cfg.m,
		}
	}
	return mgr
}

// For returns the collection's cache.
func (m *Manager) For(c domain.Collection) (*Cache, error) {
	cache, ok := m.caches[c]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown collection %q", c)
	}
	return cache, nil
}

// Get is the read-through entry point.
func (m *Manager) Get(ctx context.Context, c domain.Collection, id domain.RecordID) (Snapshot, error) {
	cache, err := m.For(c)
	if err != nil {
		return Snapshot{}, err
	}
	return cache.Get(ctx, id)
}

// Put stores an optimistic snapshot after a local mutation.
func (m *Manager) Put(ctx context.Context, c domain.Collection, id domain.RecordID, snap Snapshot) error {
	cache, err := m.For(c)
	if err != nil {
		return err
	}
	return cache.Put(ctx, id, snap)
}

// Reconcile re-resolves an entry after a mutation's events went out.
func (m *Manager) Reconcile(ctx context.Context, c domain.Collection, id domain.RecordID) {
	cache, err := m.For(c)
	if err != nil {
		m.log.WarnContext(ctx, "reconcile skipped", "collection", c, "error", err)
		return
	}
	cache.Reconcile(ctx, id)
}

// Invalidate drops an entry explicitly.
func (m *Manager) Invalidate(ctx context.Context, c domain.Collection, id domain.RecordID) error {
	cache, err := m.For(c)
	if err != nil {
		return err
	}
	return cache.Invalidate(ctx, id)
}
