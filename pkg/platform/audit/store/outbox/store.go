// Package outbox stages audit events inside the active ledger transaction.
//
// Entries live under the "outbox" composite namespace keyed by event time and
// event ID, so they commit or roll back together with the operation that
// produced them and scan in time order. A Relay later moves them to the
// durable audit sink.
//
// Every byte staged here is derived from the transaction's inputs: the event
// time must be supplied by the caller and the event ID is a name-based UUID
// over the transaction ID and the event's subject. Re-executing the same
// transaction stages the same write set.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"ekyc/internal/ledger"
	audit "ekyc/pkg/platform/audit"
	txcontext "ekyc/pkg/platform/tx"
)

// Namespace is the composite key namespace holding pending audit entries.
const Namespace = "outbox"

// eventNamespace seeds name-based event IDs.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("ekyc.audit.outbox"))

var (
	// ErrNoTransaction is returned when Append runs outside a ledger transaction.
	ErrNoTransaction = errors.New("outbox append requires an active ledger transaction")
	// ErrMissingTimestamp is returned for events without an operation time.
	ErrMissingTimestamp = errors.New("outbox entry requires a timestamp")
)

// Store implements audit.Store by writing to the transaction in ctx.
type Store struct{}

// New creates an outbox store.
func New() *Store {
	return &Store{}
}

// Append stages event in the transaction carried by ctx. A caller-supplied ID
// is kept; otherwise one is derived from the transaction and the event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	tx, ok := txcontext.From(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if event.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	event.TxID = tx.TxID()

	var key string
	if event.ID != "" {
		k, err := entryKey(event)
		if err != nil {
			return err
		}
		key = k
	} else {
		// identical events in one transaction get successive ordinals
		for ordinal := 0; ; ordinal++ {
			event.ID = EventID(event, ordinal)
			k, err := entryKey(event)
			if err != nil {
				return err
			}
			existing, err := tx.Get(ctx, k)
			if err != nil {
				return fmt.Errorf("read outbox entry: %w", err)
			}
			if existing == nil {
				key = k
				break
			}
		}
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox entry: %w", err)
	}
	if err := tx.Put(ctx, key, payload); err != nil {
		return fmt.Errorf("stage outbox entry: %w", err)
	}
	return nil
}

// EventID derives the ID of event from its transaction, subject and ordinal
// within the transaction.
func EventID(event audit.Event, ordinal int) string {
	name := strings.Join([]string{
		event.TxID,
		event.Action,
		event.Actor.String(),
		event.ClientID.String(),
		event.Institution.String(),
		strconv.Itoa(ordinal),
	}, "\x00")
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}

// Entry is a pending outbox record.
type Entry struct {
	Key   string
	Event audit.Event
}

// Pending returns up to limit staged entries in time order.
func Pending(ctx context.Context, tx ledger.Tx, limit int) ([]Entry, error) {
	prefix, err := ledger.CreateCompositeKey(Namespace)
	if err != nil {
		return nil, err
	}
	kvs, err := tx.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("scan outbox: %w", err)
	}
	if limit > 0 && len(kvs) > limit {
		kvs = kvs[:limit]
	}
	entries := make([]Entry, 0, len(kvs))
	for _, kv := range kvs {
		var event audit.Event
		if err := json.Unmarshal(kv.Value, &event); err != nil {
			return nil, fmt.Errorf("decode outbox entry %q: %w", kv.Key, err)
		}
		entries = append(entries, Entry{Key: kv.Key, Event: event})
	}
	return entries, nil
}

// entryKey orders entries by timestamp. Nanoseconds are zero padded so the
// byte order of keys matches time order.
func entryKey(event audit.Event) (string, error) {
	ts := fmt.Sprintf("%020d", event.Timestamp.UnixNano())
	return ledger.CreateCompositeKey(Namespace, ts, event.ID)
}
