package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ekyc/internal/ledger"
	"ekyc/internal/ledger/ledgertest"
)

type SQLiteLedgerSuite struct {
	ledgertest.Suite
}

func TestSQLiteLedgerSuite(t *testing.T) {
	s := new(SQLiteLedgerSuite)
	s.NewStore = func() ledger.Store {
		store, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err)
		return store
	}
	suite.Run(t, s)
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "")
	require.Error(t, err)
}

func TestUnsupportedDialect(t *testing.T) {
	db, err := sqlOpen("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = NewWithDB(context.Background(), db, Dialect("oracle"))
	require.ErrorContains(t, err, "unsupported dialect")
}
