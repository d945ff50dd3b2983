// Package backend opens the ledger store named in configuration.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ekyc/internal/ledger"
	"ekyc/internal/ledger/badgerstore"
	ledgermem "ekyc/internal/ledger/memory"
	"ekyc/internal/ledger/redisstore"
	"ekyc/internal/ledger/sqlstore"
	"ekyc/internal/platform/config"
	"ekyc/internal/platform/redis"
)

// Open builds the record store selected by cfg.Ledger.Backend. rdb is
// only consulted by the redis backend.
func Open(ctx context.Context, cfg config.Server, rdb *redis.Client, logger *slog.Logger) (ledger.Store, error) {
	switch cfg.Ledger.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory ledger, records are lost on restart")
		return ledgermem.New(), nil
	case config.BackendBadger:
		bcfg := badgerstore.DefaultConfig(cfg.Ledger.Path)
		bcfg.Logger = logger.With("component", "badger")
		store, err := badgerstore.Open(bcfg)
		if err != nil {
			return nil, fmt.Errorf("open badger ledger: %w", err)
		}
		return store, nil
	case config.BackendSQLite:
		store, err := sqlstore.OpenSQLite(ctx, cfg.Ledger.Path, sqlstore.WithTxTimeout(cfg.Ledger.TxTimeout))
		if err != nil {
			return nil, fmt.Errorf("open sqlite ledger: %w", err)
		}
		return store, nil
	case config.BackendPostgres:
		store, err := sqlstore.OpenPostgres(ctx, cfg.Ledger.DSN, sqlstore.WithTxTimeout(cfg.Ledger.TxTimeout))
		if err != nil {
			return nil, fmt.Errorf("open postgres ledger: %w", err)
		}
		return store, nil
	case config.BackendRedis:
		if rdb == nil {
			return nil, errors.New("redis ledger backend needs EKYC_REDIS_URL")
		}
		return redisstore.New(rdb.Client, redisstore.WithNamespace(cfg.Ledger.Namespace)), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}
