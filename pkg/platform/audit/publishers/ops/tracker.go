// Package ops tracks routine read traffic (client data reads, institution
// self-reads) with sampling and a circuit breaker. Tracking is best effort:
// failures are counted and logged, never returned.
package ops

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	audit "ekyc/pkg/platform/audit"
)

// Tracker records ops events.
type Tracker struct {
	store   audit.Store
	sampler *Sampler
	breaker *CircuitBreaker
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

func WithSampler(s *Sampler) Option {
	return func(t *Tracker) {
		t.sampler = s
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(t *Tracker) {
		t.breaker = cb
	}
}

func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// New creates a tracker that keeps every event unless a sampler is set.
func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		sampler: NewSampler(1),
		breaker: NewCircuitBreaker(5, 30*time.Second),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track persists event if it is sampled and the store is healthy.
func (t *Tracker) Track(ctx context.Context, event audit.OpsEvent) {
	key := event.RequestID
	if key == "" {
		key = string(event.ClientID) + "/" + string(event.Actor)
	}
	if !t.sampler.ShouldSample(string(event.Action), key) {
		if t.metrics != nil {
			t.metrics.Observe(OutcomeSampledOut)
		}
		return
	}
	if !t.breaker.Allow() {
		if t.metrics != nil {
			t.metrics.Observe(OutcomeBreakerOpen)
		}
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	record := event.ToEvent()
	record.ID = uuid.NewString()
	if err := t.store.Append(ctx, record); err != nil {
		t.breaker.RecordFailure()
		if t.metrics != nil {
			t.metrics.Observe(OutcomeStoreFailed)
			t.metrics.SetBreakerOpen(t.breaker.IsOpen())
		}
		t.logger.DebugContext(ctx, "ops audit dropped", "action", event.Action, "error", err)
		return
	}
	t.breaker.RecordSuccess()
	if t.metrics != nil {
		t.metrics.Observe(OutcomeRecorded)
		t.metrics.SetBreakerOpen(false)
	}
}
