//go:build integration

package redisstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ekyc/internal/ledger"
	"ekyc/internal/ledger/ledgertest"
	"ekyc/internal/ledger/redisstore"
	"ekyc/pkg/testutil/containers"
)

type RedisLedgerSuite struct {
	ledgertest.Suite
}

func TestRedisLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)

	s := new(RedisLedgerSuite)
	s.NewStore = func() ledger.Store {
		require.NoError(t, rc.FlushAll(context.Background()))
		return redisstore.New(rc.Client, redisstore.WithNamespace("ekyc:test"))
	}
	suite.Run(t, s)
}
