package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestSQLiteStoreSuite(t *testing.T) {
	suite.Run(t, &StoreSuite{
		newStore: func(t *testing.T) Store {
			db, err := OpenSQLite(":memory:")
			require.NoError(t, err)
			// A second pool connection would see its own empty :memory: db.
			db.SetMaxOpenConns(1)
			t.Cleanup(func() { db.Close() })

			store, err := NewSQLiteStore(db)
			require.NoError(t, err)
			return store
		},
	})
}
