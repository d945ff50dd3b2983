// Package sqlstore keeps the ledger in a single SQL table keyed by raw bytes.
//
// Keys are stored as BLOB/BYTEA because composite keys contain NUL bytes,
// which PostgreSQL TEXT columns reject. Byte-wise ordering of the key column
// matches the ordering of ledger.ScanPrefix.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"ekyc/internal/ledger"
	"ekyc/pkg/platform/sentinel"
)

// Dialect selects driver name, schema and isolation for a backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// PostgreSQL serialization_failure and deadlock_detected.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

var (
	sqlOpen = sql.Open

	schemas = map[Dialect]string{
		DialectSQLite: `CREATE TABLE IF NOT EXISTS ledger_records (
			key BLOB PRIMARY KEY,
			value BLOB NOT NULL
		)`,
		DialectPostgres: `CREATE TABLE IF NOT EXISTS ledger_records (
			key BYTEA PRIMARY KEY,
			value BYTEA NOT NULL
		)`,
	}
)

// Store is a ledger.Store over database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTxTimeout bounds transactions whose context has no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

// OpenSQLite opens a file-backed ledger. SQLite allows one writer at a time,
// so the pool is pinned to a single connection and transactions serialize.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = "ekyc-ledger.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sqlOpen("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return newStore(ctx, db, DialectSQLite, opts...)
}

// OpenPostgres opens a ledger on PostgreSQL through the pgx stdlib driver.
// Transactions run at SERIALIZABLE isolation.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newStore(ctx, db, DialectPostgres, opts...)
}

// NewWithDB wraps an existing handle and creates the ledger table if missing.
func NewWithDB(ctx context.Context, db *sql.DB, dialect Dialect, opts ...Option) (*Store, error) {
	return newStore(ctx, db, dialect, opts...)
}

func newStore(ctx context.Context, db *sql.DB, dialect Dialect, opts ...Option) (*Store, error) {
	schema, ok := schemas[dialect]
	if !ok {
		_ = db.Close()
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger table: %w", err)
	}
	s := &Store{db: db, dialect: dialect}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	ctx, cancel, err := ledger.BeginContext(ctx, s.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	var txOpts *sql.TxOptions
	if s.dialect == DialectPostgres {
		txOpts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	tx, err := s.db.BeginTx(ctx, txOpts)
	if err != nil {
		return s.translate("begin ledger transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	overlay := ledger.NewOverlay(ledger.NewTxID(), snapshot{tx: tx})
	if err := fn(ctx, overlay); err != nil {
		// Serializable reads can abort too; surface those as retryable conflicts.
		if isSerializationFailure(err) {
			return fmt.Errorf("read ledger state: %w: %w", sentinel.ErrConflict, err)
		}
		return err
	}

	for _, m := range overlay.Mutations() {
		if m.Deleted {
			_, err = tx.ExecContext(ctx, `DELETE FROM ledger_records WHERE key = $1`, []byte(m.Key))
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO ledger_records(key, value) VALUES($1, $2) ON CONFLICT(key) DO UPDATE SET value = EXCLUDED.value`,
				[]byte(m.Key), m.Value)
		}
		if err != nil {
			return s.translate("apply ledger write", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return s.translate("commit ledger transaction", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected)
}

func (s *Store) translate(op string, err error) error {
	if isSerializationFailure(err) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	if errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%s: %w", op, sentinel.ErrClosed)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type snapshot struct {
	tx *sql.Tx
}

func (s snapshot) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.tx.QueryRowContext(ctx, `SELECT value FROM ledger_records WHERE key = $1`, []byte(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s snapshot) Scan(ctx context.Context, prefix string) ([]ledger.KV, error) {
	rows, err := s.tx.QueryContext(ctx,
		`SELECT key, value FROM ledger_records WHERE key >= $1 AND key < $2 ORDER BY key`,
		[]byte(prefix), []byte(ledger.PrefixEnd(prefix)))
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	var out []ledger.KV
	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if value == nil {
			value = []byte{}
		}
		out = append(out, ledger.KV{Key: string(key), Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	return out, nil
}
