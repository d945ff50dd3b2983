// Package memory is an in-process ledger backend used by tests and single-node
// development runs.
package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"ekyc/internal/ledger"
	"ekyc/pkg/platform/sentinel"
)

// Store serializes transactions behind a single mutex, which makes every
// execution order a serial one.
type Store struct {
	mu     sync.Mutex
	data   map[string][]byte
	closed bool
}

// New creates an empty in-memory ledger.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	ctx, cancel, err := ledger.BeginContext(ctx, 0)
	if err != nil {
		return err
	}
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return sentinel.ErrClosed
	}

	overlay := ledger.NewOverlay(ledger.NewTxID(), snapshot{data: s.data})
	if err := fn(ctx, overlay); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, m := range overlay.Mutations() {
		if m.Deleted {
			delete(s.data, m.Key)
			continue
		}
		s.data[m.Key] = m.Value
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of committed keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

type snapshot struct {
	data map[string][]byte
}

func (s snapshot) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return bytes.Clone(v), nil
}

func (s snapshot) Scan(_ context.Context, prefix string) ([]ledger.KV, error) {
	var out []ledger.KV
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ledger.KV{Key: k, Value: bytes.Clone(v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
