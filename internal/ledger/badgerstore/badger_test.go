package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ekyc/internal/ledger"
	"ekyc/internal/ledger/ledgertest"
)

type BadgerLedgerSuite struct {
	ledgertest.Suite
}

func TestBadgerLedgerSuite(t *testing.T) {
	s := new(BadgerLedgerSuite)
	s.NewStore = func() ledger.Store {
		store, err := Open(InMemoryConfig())
		require.NoError(t, err)
		return store
	}
	suite.Run(t, s)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.Put(ctx, "FI1", []byte(`{"name":"First Bank"}`))
	}))
	require.NoError(t, store.Close())

	reopened, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	require.NoError(t, reopened.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		v, err := tx.Get(ctx, "FI1")
		require.NoError(t, err)
		require.JSONEq(t, `{"name":"First Bank"}`, string(v))
		return nil
	}))
}
