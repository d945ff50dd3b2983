// Package security provides a buffered, asynchronous publisher for security
// events: denied reads, registrant self-revocation and bulk queries.
//
// These events are emitted on paths whose ledger transaction may roll back
// (a denied read fails its operation), so they cannot ride the outbox. Emit
// never blocks the caller; when the buffer is full the oldest low-severity
// event is dropped.
package security

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "ekyc/pkg/platform/audit"
)

const (
	defaultFlushInterval = 500 * time.Millisecond
	defaultBatchSize     = 256
)

// Publisher buffers security events and flushes them to a store in batches.
type Publisher struct {
	store         audit.Store
	buffer        *Buffer
	logger        *slog.Logger
	flushInterval time.Duration
	batchSize     int

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for flush failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithBufferSize sets how many events may wait for a flush.
func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		p.buffer = NewBuffer(n)
	}
}

// WithFlushInterval sets how often buffered events are written.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// New creates a security publisher and starts its flush loop.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:         store,
		buffer:        NewBuffer(0),
		logger:        slog.Default(),
		flushInterval: defaultFlushInterval,
		batchSize:     defaultBatchSize,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.loop()
	return p
}

// Emit enqueues event without blocking.
func (p *Publisher) Emit(_ context.Context, event audit.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityInfo
	}
	p.buffer.Enqueue(event)
}

// Dropped returns how many events were discarded due to a full buffer.
func (p *Publisher) Dropped() int64 {
	return p.buffer.Dropped()
}

// Close stops the flush loop after writing any buffered events.
func (p *Publisher) Close() error {
	p.once.Do(func() {
		close(p.stop)
	})
	<-p.done
	return nil
}

func (p *Publisher) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			for p.buffer.Len() > 0 {
				if !p.flush() {
					return
				}
			}
			return
		case <-ticker.C:
			p.flush()
		}
	}
}

// flush writes one batch. Returns false when the store rejected an event.
func (p *Publisher) flush() bool {
	batch := p.buffer.DequeueBatch(p.batchSize)
	if len(batch) == 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, event := range batch {
		record := event.ToEvent()
		record.ID = uuid.NewString()
		if err := p.store.Append(ctx, record); err != nil {
			p.logger.Error("security audit flush failed",
				"action", event.Action,
				"actor", event.Actor,
				"request_id", event.RequestID,
				"error", err,
			)
			return false
		}
	}
	return true
}
