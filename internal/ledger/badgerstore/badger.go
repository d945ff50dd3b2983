// Package badgerstore is an embedded, durable ledger backend on BadgerDB.
//
// Badger provides serializable snapshot isolation: a transaction whose read
// set was modified by a concurrent commit fails with badger.ErrConflict, which
// is reported as sentinel.ErrConflict.
package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"ekyc/internal/ledger"
	"ekyc/pkg/platform/sentinel"
)

// Config holds configuration for a BadgerDB-backed ledger.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives BadgerDB's internal log lines. Nil disables them.
	Logger *slog.Logger

	// GCInterval is how often to run value log garbage collection. 0 disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum ratio of discardable data before GC.
	GCDiscardRatio float64
}

// DefaultConfig returns durable defaults for a ledger at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a ledger.Store over a BadgerDB instance.
type Store struct {
	db       *badger.DB
	gcCancel context.CancelFunc
	gcDone   chan struct{}
	logger   *slog.Logger
}

// Open opens (or creates) the ledger database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent ledger")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create ledger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger ledger: %w", err)
	}

	s := &Store{db: db, logger: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ctx, cancel := context.WithCancel(context.Background())
		s.gcCancel = cancel
		s.gcDone = make(chan struct{})
		go s.runGC(ctx, cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return s, nil
}

func (s *Store) runGC(ctx context.Context, interval time.Duration, ratio float64) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing was worth collecting.
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.logger != nil {
				s.logger.Warn("badger value log GC error", "error", err)
			}
		}
	}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	ctx, cancel, err := ledger.BeginContext(ctx, 0)
	if err != nil {
		return err
	}
	defer cancel()

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	overlay := ledger.NewOverlay(ledger.NewTxID(), snapshot{txn: txn})
	if err := fn(ctx, overlay); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, m := range overlay.Mutations() {
		if m.Deleted {
			err = txn.Delete([]byte(m.Key))
		} else {
			err = txn.Set([]byte(m.Key), m.Value)
		}
		if err != nil {
			return fmt.Errorf("stage %q: %w", m.Key, err)
		}
	}
	if err := txn.Commit(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return fmt.Errorf("commit ledger transaction: %w", sentinel.ErrConflict)
		}
		if errors.Is(err, badger.ErrDBClosed) {
			return sentinel.ErrClosed
		}
		return fmt.Errorf("commit ledger transaction: %w", err)
	}
	return nil
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.gcCancel != nil {
		s.gcCancel()
		<-s.gcDone
	}
	return s.db.Close()
}

type snapshot struct {
	txn *badger.Txn
}

func (s snapshot) Get(_ context.Context, key string) ([]byte, error) {
	item, err := s.txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return item.ValueCopy(nil)
}

func (s snapshot) Scan(ctx context.Context, prefix string) ([]ledger.KV, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := s.txn.NewIterator(opts)
	defer it.Close()

	var out []ledger.KV
	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := it.Item()
		v, err := item.ValueCopy(nil)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", item.Key(), err)
		}
		out = append(out, ledger.KV{Key: string(item.KeyCopy(nil)), Value: v})
	}
	return out, nil
}
