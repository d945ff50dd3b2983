// Package worker relays committed audit outbox entries to the durable sink.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ekyc/internal/ledger"
	audit "ekyc/pkg/platform/audit"
	"ekyc/pkg/platform/audit/store/outbox"
	"ekyc/pkg/platform/sentinel"
)

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
	maxAckAttempts   = 5
)

// Relay drains the ledger outbox into sink. Delivery is at least once: an
// entry is deleted only after the sink accepted it, and a relay crash between
// the two re-sends it on the next pass. Outbox event IDs are stable, so sinks
// that key on the ID absorb the repeat.
type Relay struct {
	ledger    ledger.Store
	sink      audit.Store
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// NewRelay creates a relay from store's outbox to sink.
func NewRelay(store ledger.Store, sink audit.Store, opts ...Option) *Relay {
	r := &Relay{
		ledger:    store,
		sink:      sink,
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays on every tick until ctx is cancelled. It drains once more on
// shutdown with a short grace period.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			_, _ = r.RunOnce(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.WarnContext(ctx, "audit relay pass failed", "error", err)
			}
		}
	}
}

// RunOnce relays one batch and returns how many entries were delivered.
//
// The batch is read in one short transaction and delivered with no
// transaction open, so operations on the ledger never wait on the sink.
// Delivered entries are then deleted in a second transaction, which is retried
// on conflict. Entries delivered before a sink failure are still removed.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	var entries []outbox.Entry
	err := r.ledger.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		entries, err = outbox.Pending(ctx, tx, r.batchSize)
		return err
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			r.logger.DebugContext(ctx, "audit relay read conflict")
			return 0, nil
		}
		return 0, err
	}

	var sinkErr error
	delivered := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := r.sink.Append(ctx, entry.Event); err != nil {
			sinkErr = err
			break
		}
		delivered = append(delivered, entry.Key)
	}

	if err := r.acknowledge(ctx, delivered); err != nil {
		// the sink has these events; the next pass re-sends them under the same IDs
		return 0, err
	}
	return len(delivered), sinkErr
}

// acknowledge deletes delivered keys from the outbox.
func (r *Relay) acknowledge(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	var err error
	for attempt := 0; attempt < maxAckAttempts; attempt++ {
		err = r.ledger.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
			for _, key := range keys {
				if err := tx.Delete(ctx, key); err != nil {
					return err
				}
			}
			return nil
		})
		if !errors.Is(err, sentinel.ErrConflict) {
			return err
		}
		r.logger.DebugContext(ctx, "audit relay ack conflict", "attempt", attempt+1)
	}
	return err
}
