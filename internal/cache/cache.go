// Package cache is the client-side read layer over chain and status
// resolution. Entries are projections with a bounded lifetime, never ledger
// truth: a fresh entry is served as-is, anything else falls through to an
// authoritative resolution wrapped in the transient-retry contract.
//
// Remote changes are observed only when a local entry's TTL lapses. There is
// no push invalidation between peers; that is the honest projection of an
// eventually-consistent record store, not a shortcut.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"agora/internal/cache/metrics"
	"agora/internal/chain"
	"agora/internal/status"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
)

// Snapshot is the cached projection of one entity: the winning head of its
// record chain and its resolved status.
type Snapshot struct {
	Resolved chain.Resolved        `json:"resolved"`
	Status   status.ResolvedStatus `json:"status"`
}

// ResolveFunc produces the authoritative snapshot for an entity. The cache
// calls it on miss, expiry and reconciliation.
type ResolveFunc func(ctx context.Context, id domain.RecordID) (Snapshot, error)

// entry is the stored envelope. ResolvedAt drives freshness; the backend's
// own TTL only bounds storage.
type entry struct {
	Snapshot   Snapshot  `json:"snapshot"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Cache serves one collection. Instances are created by the Manager and
// share its backend, resolver and store guard.
type Cache struct {
	collection domain.Collection
	backend    Backend
	resolve    ResolveFunc
	guard      *storeGuard

	ttl      time.Duration
	attempts int
	base     time.Duration

	sf  singleflight.Group
	log *slog.Logger
	m   *metrics.Metrics
}

// Get returns a fresh cached snapshot or resolves, stores and returns the
// authoritative one. Backend failures degrade to a resolution, never to an
// error.
func (c *Cache) Get(ctx context.Context, id domain.RecordID) (Snapshot, error) {
	key := entryKey(c.collection, id)

	raw, err := c.backend.Get(ctx, key)
	switch {
	case err == nil:
		var e entry
		if uerr := json.Unmarshal(raw, &e); uerr != nil {
			c.log.WarnContext(ctx, "cache entry undecodable, dropping",
				"collection", c.collection, "entity_id", id, "error", uerr)
			_ = c.backend.Delete(ctx, key)
		} else if time.Since(e.ResolvedAt) < c.ttl {
			c.m.IncrementHit(c.collection.String())
			return e.Snapshot, nil
		}
	case !errors.Is(err, sentinel.ErrNotFound):
		c.log.WarnContext(ctx, "cache backend read failed, resolving directly",
			"collection", c.collection, "entity_id", id, "error", err)
	}

	c.m.IncrementMiss(c.collection.String())
	return c.refresh(ctx, id)
}

// Put stores an optimistic snapshot immediately after a local mutation, so
// the writer reads its own write before reconciliation lands.
func (c *Cache) Put(ctx context.Context, id domain.RecordID, snap Snapshot) error {
	return c.store(ctx, id, snap)
}

// Reconcile replaces the optimistic entry with the authoritative resolution,
// correcting for concurrent forks the local write did not observe. Failures
// keep the optimistic entry and are logged; by the entry's TTL the next read
// resolves anyway.
func (c *Cache) Reconcile(ctx context.Context, id domain.RecordID) {
	if _, err := c.refresh(ctx, id); err != nil {
		c.m.IncrementReconcileFailure(c.collection.String())
		c.log.WarnContext(ctx, "cache reconciliation failed, optimistic entry kept",
			"collection", c.collection, "entity_id", id, "error", err)
	}
}

// Invalidate drops the entry. The next read resolves authoritatively.
func (c *Cache) Invalidate(ctx context.Context, id domain.RecordID) error {
	return c.backend.Delete(ctx, entryKey(c.collection, id))
}

// refreshTimeout bounds a detached resolution so a hung store cannot pin
// the flight forever.
const refreshTimeout = 30 * time.Second

// refresh resolves authoritatively and stores the result. Concurrent misses
// for the same entity share one resolution. The flight runs detached from
// the caller that started it: cancelling one coalesced caller must not fail
// the resolution for everyone queued behind it. Each caller still stops
// waiting on its own context.
func (c *Cache) refresh(ctx context.Context, id domain.RecordID) (Snapshot, error) {
	ch := c.sf.DoChan(entryKey(c.collection, id), func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		snap, err := c.resolveWithRetry(rctx, id)
		if err != nil {
			return Snapshot{}, err
		}
		if serr := c.store(rctx, id, snap); serr != nil {
			c.log.WarnContext(rctx, "cache backend write failed",
				"collection", c.collection, "entity_id", id, "error", serr)
		}
		return snap, nil
	})

	select {
	case <-ctx.Done():
		return Snapshot{}, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "resolution cancelled")
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		return res.Val.(Snapshot), nil
	}
}

func (c *Cache) store(ctx context.Context, id domain.RecordID, snap Snapshot) error {
	raw, err := json.Marshal(entry{Snapshot: snap, ResolvedAt: time.Now().UTC()})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encode cache entry")
	}
	return c.backend.Set(ctx, entryKey(c.collection, id), raw, c.ttl)
}

// resolveWithRetry runs the resolver under the transient-retry contract:
// bounded attempts with doubling delays, retrying only retryable failures.
// The store guard short-circuits while the circuit is open, admitting one
// probe per interval.
func (c *Cache) resolveWithRetry(ctx context.Context, id domain.RecordID) (Snapshot, error) {
	if !c.guard.admit() {
		return Snapshot{}, dErrors.New(dErrors.CodeUnavailable, "record store circuit open")
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.base
	bo.Multiplier = 2
	// No jitter: the retry budget is three attempts, the delays are the
	// contract.
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	var snap Snapshot
	op := func() error {
		s, err := c.resolve(ctx, id)
		if err == nil {
			c.guard.success()
			snap = s
			return nil
		}
		if !dErrors.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		// Timeouts retry but do not count against store health: a caller's
		// cancellation says nothing about the store.
		if dErrors.HasCode(err, dErrors.CodeUnavailable) {
			c.guard.failure()
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		c.m.IncrementRetry()
		c.log.DebugContext(ctx, "transient resolution failure, retrying",
			"collection", c.collection, "entity_id", id, "delay", next, "error", err)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.attempts-1)), ctx), notify)
	switch {
	case err == nil:
		c.m.IncrementResolution(c.collection.String())
		return snap, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeTimeout, "resolution cancelled")
	case dErrors.IsRetryable(err):
		return Snapshot{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "resolution retries exhausted")
	default:
		return Snapshot{}, err
	}
}
