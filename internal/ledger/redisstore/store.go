// Package redisstore shares one ledger between server replicas through Redis.
//
// Record values live in a hash; a sorted set with every member at score 0
// gives an ordered key index for ZRANGEBYLEX prefix scans. Each transaction
// WATCHes a version counter and bumps it inside MULTI/EXEC, so any concurrent
// commit aborts the later one with sentinel.ErrConflict.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"ekyc/internal/ledger"
	"ekyc/pkg/platform/sentinel"
)

const defaultNamespace = "ekyc:ledger"

// Store is a ledger.Store backed by Redis.
type Store struct {
	client     *redis.Client
	recordsKey string
	indexKey   string
	versionKey string
}

// Option configures a Store.
type Option func(*Store)

// WithNamespace prefixes every Redis key the store touches.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.setNamespace(ns)
		}
	}
}

// New creates a Redis-backed ledger. The client stays owned by the caller.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client}
	s.setNamespace(defaultNamespace)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) setNamespace(ns string) {
	s.recordsKey = ns + ":records"
	s.indexKey = ns + ":keys"
	s.versionKey = ns + ":version"
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	ctx, cancel, err := ledger.BeginContext(ctx, 0)
	if err != nil {
		return err
	}
	defer cancel()

	err = s.client.Watch(ctx, func(rtx *redis.Tx) error {
		overlay := ledger.NewOverlay(ledger.NewTxID(), snapshot{tx: rtx, recordsKey: s.recordsKey, indexKey: s.indexKey})
		if err := fn(ctx, overlay); err != nil {
			return err
		}
		mutations := overlay.Mutations()
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(mutations) == 0 {
				// Forces EXEC so the WATCH validates the reads.
				pipe.Exists(ctx, s.versionKey)
				return nil
			}
			for _, m := range mutations {
				if m.Deleted {
					pipe.HDel(ctx, s.recordsKey, m.Key)
					pipe.ZRem(ctx, s.indexKey, m.Key)
					continue
				}
				pipe.HSet(ctx, s.recordsKey, m.Key, m.Value)
				pipe.ZAdd(ctx, s.indexKey, redis.Z{Score: 0, Member: m.Key})
			}
			pipe.Incr(ctx, s.versionKey)
			return nil
		})
		return err
	}, s.versionKey)

	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("commit ledger transaction: %w", sentinel.ErrConflict)
	}
	if errors.Is(err, redis.ErrClosed) {
		return sentinel.ErrClosed
	}
	return err
}

// Close is a no-op; the Redis client is owned by the caller.
func (s *Store) Close() error {
	return nil
}

type snapshot struct {
	tx         *redis.Tx
	recordsKey string
	indexKey   string
}

func (s snapshot) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.tx.HGet(ctx, s.recordsKey, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	if v == nil {
		v = []byte{}
	}
	return v, nil
}

func (s snapshot) Scan(ctx context.Context, prefix string) ([]ledger.KV, error) {
	keys, err := s.tx.ZRangeByLex(ctx, s.indexKey, &redis.ZRangeBy{
		Min: "[" + prefix,
		Max: "(" + ledger.PrefixEnd(prefix),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	values, err := s.tx.HMGet(ctx, s.recordsKey, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load %d records: %w", len(keys), err)
	}
	out := make([]ledger.KV, 0, len(keys))
	for i, key := range keys {
		raw, ok := values[i].(string)
		if !ok {
			// Index entry without a record.
			continue
		}
		out = append(out, ledger.KV{Key: key, Value: []byte(raw)})
	}
	return out, nil
}
