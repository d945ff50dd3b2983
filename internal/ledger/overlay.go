package ledger

import (
	"bytes"
	"context"
	"sort"
)

// Snapshot is the committed state a backend exposes to one transaction.
type Snapshot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Scan returns committed entries under prefix, sorted by key.
	Scan(ctx context.Context, prefix string) ([]KV, error)
}

// Mutation is one staged write. Value is nil for deletes.
type Mutation struct {
	Key     string
	Value   []byte
	Deleted bool
}

type staged struct {
	value   []byte
	deleted bool
}

// Overlay stages writes on top of a Snapshot and serves reads with
// read-your-writes semantics. It is not safe for concurrent use; a transaction
// is single-threaded.
type Overlay struct {
	id      string
	base    Snapshot
	writes  map[string]staged
	readSet map[string]struct{}
}

// NewOverlay starts an empty write set over base.
func NewOverlay(id string, base Snapshot) *Overlay {
	return &Overlay{
		id:      id,
		base:    base,
		writes:  make(map[string]staged),
		readSet: make(map[string]struct{}),
	}
}

func (o *Overlay) TxID() string { return o.id }

func (o *Overlay) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if w, ok := o.writes[key]; ok {
		if w.deleted {
			return nil, nil
		}
		return bytes.Clone(w.value), nil
	}
	o.readSet[key] = struct{}{}
	return o.base.Get(ctx, key)
}

func (o *Overlay) Put(_ context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	o.writes[key] = staged{value: bytes.Clone(value)}
	return nil
}

func (o *Overlay) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	o.writes[key] = staged{deleted: true}
	return nil
}

func (o *Overlay) ScanPrefix(ctx context.Context, prefix string) ([]KV, error) {
	committed, err := o.base.Scan(ctx, prefix)
	if err != nil {
		return nil, err
	}
	merged := make(map[string][]byte, len(committed))
	for _, kv := range committed {
		o.readSet[kv.Key] = struct{}{}
		merged[kv.Key] = kv.Value
	}
	for key, w := range o.writes {
		if len(key) < len(prefix) || key[:len(prefix)] != prefix {
			continue
		}
		if w.deleted {
			delete(merged, key)
			continue
		}
		merged[key] = bytes.Clone(w.value)
	}
	out := make([]KV, 0, len(merged))
	for k, v := range merged {
		out = append(out, KV{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Mutations returns the write set sorted by key.
func (o *Overlay) Mutations() []Mutation {
	out := make([]Mutation, 0, len(o.writes))
	for k, w := range o.writes {
		out = append(out, Mutation{Key: k, Value: w.value, Deleted: w.deleted})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ReadSet returns the committed keys observed by the transaction, sorted.
func (o *Overlay) ReadSet() []string {
	out := make([]string, 0, len(o.readSet))
	for k := range o.readSet {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dirty reports whether any write was staged.
func (o *Overlay) Dirty() bool {
	return len(o.writes) > 0
}
