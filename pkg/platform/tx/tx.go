// Package tx carries the active ledger transaction through a context so
// stores that are not handed the transaction directly (the audit outbox) can
// stage writes in it.
package tx

import (
	"context"

	"ekyc/internal/ledger"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a ledger transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx ledger.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a ledger transaction from context if present.
func From(ctx context.Context) (ledger.Tx, bool) {
	tx, ok := ctx.Value(txKey).(ledger.Tx)
	return tx, ok
}
