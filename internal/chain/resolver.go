// Package chain derives the current version of an entity from its update
// graph. No record stores "latest"; every reader runs the same deterministic
// walk and therefore converges on the same winner once it has seen the same
// records.
package chain

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"agora/internal/chain/metrics"
	"agora/internal/ledger"
	"agora/pkg/domain"
	dErrors "agora/pkg/domain-errors"
	"agora/pkg/platform/sentinel"
)

//go:generate mockgen -source=resolver.go -destination=mock/source.go -package=mock

// Source is the slice of the ledger store the resolver needs. ledger.Store
// satisfies it.
type Source interface {
	Get(ctx context.Context, id domain.RecordID) (ledger.Record, error)
	Updates(ctx context.Context, id domain.RecordID) ([]ledger.Record, error)
	Deletes(ctx context.Context, id domain.RecordID) ([]ledger.Record, error)
}

// Resolved is the outcome of a successful resolution.
type Resolved struct {
	// Original is the id the chain is rooted at: the entity's permanent
	// identity.
	Original domain.RecordID
	// Record is the winning version. Equal to the original when no
	// surviving updates exist.
	Record ledger.Record
	// Depth counts the graph levels walked, 1 for an original with no
	// updates.
	Depth int
	// Forked reports whether any record in the walk had more than one
	// surviving update.
	Forked bool
}

// Resolver walks update graphs. Stateless apart from its collaborators; safe
// for concurrent use.
type Resolver struct {
	src    Source
	limit  int
	tracer trace.Tracer
	m      *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithParallelism bounds how many branches are expanded concurrently per
// level. Values below 1 are ignored.
func WithParallelism(n int) Option {
	return func(r *Resolver) {
		if n >= 1 {
			r.limit = n
		}
	}
}

// WithMetrics attaches resolution metrics. Nil is allowed.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.m = m }
}

// New creates a Resolver over src.
func New(src Source, opts ...Option) *Resolver {
	r := &Resolver{
		src:    src,
		limit:  4,
		tracer: otel.Tracer("agora/chain"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveLatest walks the update graph rooted at originalID and returns the
// current version.
//
// The walk is iterative: a frontier of records is expanded level by level
// with a visited set, so chain depth is bounded by memory, not stack.
// Branches within a level are expanded concurrently; cancellation is honored
// between levels, not mid-branch.
//
// Exclusions: a tombstone on the original makes the entity permanently
// unresolvable. A tombstone on any other record excludes that record and
// every record chained after it. Candidates are the surviving leaves; an
// entity whose every leaf is excluded resolves NotFound. The winner is the
// candidate with the latest timestamp, ties broken by lexicographically
// greatest id.
//
// Errors: CodeNotFound when the id is unknown, the original is tombstoned,
// or no candidate survives; CodeTimeout on cancellation; CodeUnavailable
// when the store fails.
func (r *Resolver) ResolveLatest(ctx context.Context, originalID domain.RecordID) (Resolved, error) {
	ctx, span := r.tracer.Start(ctx, "chain.ResolveLatest",
		trace.WithAttributes(attribute.String("record.original", originalID.String())))
	defer span.End()

	res, err := r.resolve(ctx, originalID)
	if err != nil {
		span.RecordError(err)
		r.m.IncrementResolution(outcomeOf(err))
		return Resolved{}, err
	}

	span.SetAttributes(attribute.Int("chain.depth", res.Depth), attribute.Bool("chain.forked", res.Forked))
	r.m.IncrementResolution("resolved")
	r.m.ObserveDepth(res.Depth)
	if res.Forked {
		r.m.IncrementForks()
	}
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, originalID domain.RecordID) (Resolved, error) {
	original, err := r.src.Get(ctx, originalID)
	if err != nil {
		return Resolved{}, translateStoreErr(err, "load original record")
	}

	dead, err := r.tombstoned(ctx, originalID)
	if err != nil {
		return Resolved{}, err
	}
	if dead {
		// Deletion of the identity is final, updates notwithstanding.
		return Resolved{}, dErrors.New(dErrors.CodeNotFound, "entity deleted")
	}

	frontier := []ledger.Record{original}
	visited := map[domain.RecordID]bool{originalID: true}

	var (
		mu     sync.Mutex
		leaves []ledger.Record
		next   []ledger.Record
		forked bool
		depth  int
	)

	for len(frontier) > 0 {
		// Cancellation boundary: between levels.
		if err := ctx.Err(); err != nil {
			return Resolved{}, dErrors.Wrap(err, dErrors.CodeTimeout, "resolution cancelled")
		}
		depth++
		next = next[:0]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.limit)
		for _, node := range frontier {
			g.Go(func() error {
				updates, err := r.src.Updates(gctx, node.ID)
				if err != nil {
					return translateStoreErr(err, "load updates")
				}

				if len(updates) == 0 {
					mu.Lock()
					leaves = append(leaves, node)
					mu.Unlock()
					return nil
				}

				surviving := make([]ledger.Record, 0, len(updates))
				for _, up := range updates {
					dead, err := r.tombstoned(gctx, up.ID)
					if err != nil {
						return err
					}
					if !dead {
						surviving = append(surviving, up)
					}
				}

				mu.Lock()
				defer mu.Unlock()
				if len(surviving) > 1 {
					forked = true
				}
				for _, up := range surviving {
					if !visited[up.ID] {
						visited[up.ID] = true
						next = append(next, up)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Resolved{}, err
		}

		frontier = append(frontier[:0], next...)
	}

	if len(leaves) == 0 {
		// Every branch ends in a tombstoned record.
		return Resolved{}, dErrors.New(dErrors.CodeNotFound, "every version of the entity is deleted")
	}

	winner := leaves[0]
	for _, leaf := range leaves[1:] {
		if leaf.Timestamp.After(winner.Timestamp) ||
			(leaf.Timestamp.Equal(winner.Timestamp) && leaf.ID > winner.ID) {
			winner = leaf
		}
	}

	return Resolved{Original: originalID, Record: winner, Depth: depth, Forked: forked}, nil
}

// Revisions returns every record reachable from originalID, tombstoned
// branches included, ordered by (timestamp, id). History stays visible even
// where resolution excludes a branch.
func (r *Resolver) Revisions(ctx context.Context, originalID domain.RecordID) ([]ledger.Record, error) {
	original, err := r.src.Get(ctx, originalID)
	if err != nil {
		return nil, translateStoreErr(err, "load original record")
	}

	all := []ledger.Record{original}
	frontier := []domain.RecordID{originalID}
	visited := map[domain.RecordID]bool{originalID: true}

	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "revision walk cancelled")
		}

		var next []domain.RecordID
		for _, id := range frontier {
			updates, err := r.src.Updates(ctx, id)
			if err != nil {
				return nil, translateStoreErr(err, "load updates")
			}
			for _, up := range updates {
				if !visited[up.ID] {
					visited[up.ID] = true
					all = append(all, up)
					next = append(next, up.ID)
				}
			}
		}
		frontier = next
	}

	ledger.SortRecords(all)
	return all, nil
}

func (r *Resolver) tombstoned(ctx context.Context, id domain.RecordID) (bool, error) {
	tombs, err := r.src.Deletes(ctx, id)
	if err != nil {
		return false, translateStoreErr(err, "load tombstones")
	}
	return len(tombs) > 0, nil
}

// translateStoreErr maps store failures onto the domain taxonomy. Reads hit
// by infrastructure trouble surface as retryable CodeUnavailable; the cache
// layer owns the retry policy.
func translateStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "record does not exist")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+" cancelled")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, op+" failed")
	}
}

func outcomeOf(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeTimeout:
		return "cancelled"
	case dErrors.CodeUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}
