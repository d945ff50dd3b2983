//go:build integration

package sqlstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ekyc/internal/ledger"
	"ekyc/internal/ledger/ledgertest"
	"ekyc/internal/ledger/sqlstore"
	"ekyc/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	ledgertest.Suite
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)

	s := new(PostgresLedgerSuite)
	s.NewStore = func() ledger.Store {
		ctx := context.Background()
		store, err := sqlstore.OpenPostgres(ctx, pg.DSN)
		require.NoError(t, err)
		require.NoError(t, pg.TruncateTables(ctx, "ledger_records"))
		return store
	}
	suite.Run(t, s)
}
