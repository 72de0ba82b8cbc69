package ledger

import (
	"cmp"
	"context"
	"slices"

	"agora/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=mock/store.go -package=mock

// Store persists sealed records. Implementations are interface-driven to keep
// the resolution and service logic testable and to allow swapping in-memory,
// embedded sqlite, or postgres persistence without rewiring business code.
//
// Contract shared by all implementations:
//   - Append is the only write; a duplicate id fails with sentinel.ErrConflict
//     (relay ingestion relies on this for idempotency).
//   - Get returns sentinel.ErrNotFound for unknown ids.
//   - Every listing is ordered by (timestamp, id) ascending so independent
//     nodes iterate identical logs in identical order.
//   - Records are immutable; implementations never modify or reorder stored
//     content.
type Store interface {
	// Append persists a sealed record.
	Append(ctx context.Context, rec Record) error

	// Get returns the record with the given id.
	Get(ctx context.Context, id domain.RecordID) (Record, error)

	// Updates returns the records whose predecessor is id: the next layer of
	// the update graph. Zero, one, or several (a fork).
	Updates(ctx context.Context, id domain.RecordID) ([]Record, error)

	// Deletes returns the tombstones targeting id.
	Deletes(ctx context.Context, id domain.RecordID) ([]Record, error)

	// Originals returns the chain roots of a collection: entity records with
	// no predecessor.
	Originals(ctx context.Context, c domain.Collection) ([]Record, error)

	// ByTarget returns records of one kind whose target is id. Used for the
	// status chain root of an entity.
	ByTarget(ctx context.Context, id domain.RecordID, kind Kind) ([]Record, error)

	// BySubject returns the grant and revoke records naming the agent. The
	// (timestamp, id) ordering makes the role fold deterministic.
	BySubject(ctx context.Context, agent domain.AgentID) ([]Record, error)

	// ByKind returns every record of one kind. Practical for the sparse
	// kinds only (grants and revokes, when enumerating administrators).
	ByKind(ctx context.Context, kind Kind) ([]Record, error)

	// AuthorOriginals returns the chain roots authored by agent in a
	// collection. Enforces the one-profile-per-agent rule.
	AuthorOriginals(ctx context.Context, agent domain.AgentID, c domain.Collection) ([]Record, error)
}

// SortRecords orders by (timestamp, id): the same total order every part of
// the system uses, including fork tie-breaking.
func SortRecords(recs []Record) {
	slices.SortFunc(recs, func(a, b Record) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
