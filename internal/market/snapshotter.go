package market

import (
	"context"

	"agora/internal/cache"
	"agora/pkg/domain"
)

// Snapshotter produces the authoritative projection of one entity: the
// winning head of its chain paired with its effective status. The cache
// manager is built over Snapshot, which keeps the cache package free of any
// knowledge of how snapshots are assembled.
type Snapshotter struct {
	chains   Chains
	statuses Statuses
}

func NewSnapshotter(chains Chains, statuses Statuses) *Snapshotter {
	return &Snapshotter{chains: chains, statuses: statuses}
}

// Snapshot resolves both the entity chain and its status chain. An entity
// whose status chain is missing reports not found: the pair is the unit of
// visibility.
func (s *Snapshotter) Snapshot(ctx context.Context, id domain.RecordID) (cache.Snapshot, error) {
	res, err := s.chains.ResolveLatest(ctx, id)
	if err != nil {
		return cache.Snapshot{}, err
	}
	st, err := s.statuses.Resolve(ctx, id)
	if err != nil {
		return cache.Snapshot{}, err
	}
	return cache.Snapshot{Resolved: res, Status: st}, nil
}
