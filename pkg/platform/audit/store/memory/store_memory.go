package memory

import (
	"context"
	"sync"

	id "ekyc/pkg/domain"
	audit "ekyc/pkg/platform/audit"
)

// InMemoryStore keeps events in arrival order. Used by tests and the default
// single-node configuration. Appends are idempotent on event ID.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	seen   map[string]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{seen: make(map[string]struct{})}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.seen = make(map[string]struct{})
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID != "" {
		if _, dup := s.seen[event.ID]; dup {
			return nil
		}
		s.seen[event.ID] = struct{}{}
	}
	s.events = append(s.events, event)
	return nil
}

// ListByClient returns every event concerning clientID.
func (s *InMemoryStore) ListByClient(_ context.Context, clientID id.ClientID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.ClientID == clientID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListAll returns all audit events (admin-only operation).
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...), nil
}

// ListRecent returns the most recent limit events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.events) - limit
	if start < 0 {
		start = 0
	}
	return append([]audit.Event{}, s.events[start:]...), nil
}
