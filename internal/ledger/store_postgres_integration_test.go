//go:build integration

package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"agora/pkg/domain"
	"agora/pkg/platform/tx"
	"agora/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	StoreSuite
	postgres *containers.PostgresContainer
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	mgr := containers.GetManager()
	pg := mgr.GetPostgres(t)

	s := &PostgresStoreSuite{postgres: pg}
	s.newStore = func(t *testing.T) Store {
		ctx := context.Background()
		store, err := NewPostgresStore(ctx, pg.DB)
		if err != nil {
			t.Fatalf("create postgres store: %v", err)
		}
		if err := pg.TruncateTables(ctx, "ledger_records"); err != nil {
			t.Fatalf("truncate ledger: %v", err)
		}
		return store
	}
	suite.Run(t, s)
}

// TestTransactionJoin verifies that appends observe a caller transaction from
// the context: a failure inside tx.Run must leave no records behind, and a
// clean run must commit both.
func (s *PostgresStoreSuite) TestTransactionJoin() {
	ctx := context.Background()
	store, err := NewPostgresStore(ctx, s.postgres.DB)
	s.Require().NoError(err)
	s.Require().NoError(s.postgres.TruncateTables(ctx, "ledger_records"))

	entity := s.seal(Draft{
		Kind:       KindEntity,
		Collection: domain.CollectionRequests,
		Payload:    map[string]any{"title": "rolled back"},
	}, 0)
	status := s.seal(Draft{
		Kind:       KindStatus,
		Collection: domain.CollectionRequests,
		Target:     entity.ID,
		Payload:    map[string]any{"state": "pending"},
	}, time.Second)

	abort := errors.New("abort after both appends")
	err = tx.Run(ctx, s.postgres.DB, func(txCtx context.Context) error {
		if err := store.Append(txCtx, entity); err != nil {
			return err
		}
		if err := store.Append(txCtx, status); err != nil {
			return err
		}
		return abort
	})
	s.Require().ErrorIs(err, abort)

	_, err = store.Get(ctx, entity.ID)
	s.Require().Error(err, "rollback must discard the entity record")
	_, err = store.Get(ctx, status.ID)
	s.Require().Error(err, "rollback must discard the status record")

	err = tx.Run(ctx, s.postgres.DB, func(txCtx context.Context) error {
		if err := store.Append(txCtx, entity); err != nil {
			return err
		}
		return store.Append(txCtx, status)
	})
	s.Require().NoError(err)

	got, err := store.Get(ctx, entity.ID)
	s.Require().NoError(err)
	s.Equal(entity.ID, got.ID)
}
