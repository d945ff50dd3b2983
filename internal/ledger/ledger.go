// Package ledger defines the transactional key-value record store the KYC
// components run against.
//
// Every operation executes inside exactly one transaction. Reads observe
// committed state plus the transaction's own staged writes; the write set is
// applied atomically on success and discarded entirely when the callback
// returns an error. Backends (memory, badger, SQL, redis) differ only in how
// they read committed state and apply the final write set; staging and
// read-your-writes are shared through Overlay.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	dErrors "ekyc/pkg/domain-errors"
)

// KV is one entry returned by a prefix scan.
type KV struct {
	Key   string
	Value []byte
}

// Tx is the per-operation view of the ledger.
type Tx interface {
	// Get returns the value stored under key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// ScanPrefix returns every entry whose key starts with prefix, sorted by key.
	ScanPrefix(ctx context.Context, prefix string) ([]KV, error)
	// TxID identifies the transaction for audit correlation.
	TxID() string
}

// Store runs operations as atomic transactions.
type Store interface {
	// RunInTx commits fn's writes iff fn returns nil. Backends report commit
	// conflicts with sentinel.ErrConflict.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}

// DefaultTxTimeout bounds a transaction whose context carries no deadline.
const DefaultTxTimeout = 5 * time.Second

// BeginContext applies the shared transaction preamble: a cancelled context
// aborts before any backend work, and a missing deadline gets timeout.
func BeginContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

// NewTxID returns a fresh transaction identifier.
func NewTxID() string {
	return uuid.NewString()
}
