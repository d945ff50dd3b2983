package audit

import "context"

// Store persists audit events. Implementations: the ledger outbox (staged in
// the caller's transaction), memory, PostgreSQL and Kafka.
type Store interface {
	Append(ctx context.Context, event Event) error
}
