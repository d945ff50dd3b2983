package security

import (
	"sync"

	audit "ekyc/pkg/platform/audit"
)

const defaultBufferSize = 10000

func severityRank(s audit.Severity) int {
	switch s {
	case audit.SeverityCritical:
		return 2
	case audit.SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Buffer is a bounded FIFO of security events. When full, it evicts the oldest
// event of the lowest severity present, so a burst of info-level denials
// cannot push out a self-revocation warning. An incoming event that ranks
// below everything buffered is itself dropped.
type Buffer struct {
	mu       sync.Mutex
	events   []audit.SecurityEvent
	capacity int
	dropped  int64
}

// NewBuffer creates a buffer holding at most capacity events.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultBufferSize
	}
	return &Buffer{
		events:   make([]audit.SecurityEvent, 0, min(capacity, 1024)),
		capacity: capacity,
	}
}

// Enqueue adds event, evicting per the severity rule when full.
func (b *Buffer) Enqueue(event audit.SecurityEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) < b.capacity {
		b.events = append(b.events, event)
		return
	}
	b.dropped++

	victim := -1
	lowest := severityRank(event.Severity)
	for i, e := range b.events {
		if r := severityRank(e.Severity); r < lowest || (r == lowest && victim == -1) {
			victim, lowest = i, r
			if r == 0 {
				break
			}
		}
	}
	if victim == -1 {
		return
	}
	b.events = append(b.events[:victim], b.events[victim+1:]...)
	b.events = append(b.events, event)
}

// DequeueBatch removes and returns up to n events in arrival order.
func (b *Buffer) DequeueBatch(n int) []audit.SecurityEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) == 0 {
		return nil
	}
	n = min(n, len(b.events))
	batch := make([]audit.SecurityEvent, n)
	copy(batch, b.events[:n])
	b.events = append(b.events[:0], b.events[n:]...)
	return batch
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Dropped counts events lost to eviction since creation.
func (b *Buffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
