package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekyc/internal/ledger"
	"ekyc/internal/platform/config"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, backend := range []string{config.BackendMemory, config.BackendSQLite, config.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			cfg := config.Server{Ledger: config.LedgerConfig{Backend: backend}}
			switch backend {
			case config.BackendSQLite:
				cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger.db")
			case config.BackendBadger:
				cfg.Ledger.Path = t.TempDir()
			}

			store, err := Open(ctx, cfg, nil, logger)
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })

			require.NoError(t, store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
				return tx.Put(ctx, "CLIENT1", []byte(`{}`))
			}))
			require.NoError(t, store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
				v, err := tx.Get(ctx, "CLIENT1")
				assert.Equal(t, []byte(`{}`), v)
				return err
			}))
		})
	}

	t.Run("redis without a client", func(t *testing.T) {
		_, err := Open(ctx, config.Server{Ledger: config.LedgerConfig{Backend: config.BackendRedis}}, nil, logger)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(ctx, config.Server{Ledger: config.LedgerConfig{Backend: "etcd"}}, nil, logger)
		assert.Error(t, err)
	})
}
