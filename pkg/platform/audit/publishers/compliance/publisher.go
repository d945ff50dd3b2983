// Package compliance provides a fail-closed audit publisher for regulatory events.
//
// Events are appended to the configured store, normally the ledger outbox, so
// they commit with the change they describe. If the append fails the caller's
// transaction MUST fail. The publisher adds nothing of its own to an event: the
// timestamp is the caller's operation time and the store assigns the ID.
//
// Use for: client_registered, institution_registered, access_approved, access_removed
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "ekyc/pkg/platform/audit"
)

// Publisher emits compliance events with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously appends a compliance event.
// Returns error if persistence fails; the caller MUST fail its operation.
func (p *Publisher) Emit(ctx context.Context, event audit.ComplianceEvent) error {
	start := time.Now()

	if err := validate(event); err != nil {
		return err
	}
	if err := p.store.Append(ctx, event.ToEvent()); err != nil {
		if p.metrics != nil {
			p.metrics.IncPersistFailures()
		}
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
				"action", event.Action,
				"actor", event.Actor,
				"client_id", event.ClientID,
				"request_id", event.RequestID,
				"error", err,
			)
		}
		return fmt.Errorf("compliance audit persistence failed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.ObservePersistDuration(time.Since(start).Seconds())
		p.metrics.IncEventsEmitted()
	}
	return nil
}

// validate rejects events the relay could not attribute. Approval changes must
// name both ends of the edge.
func validate(event audit.ComplianceEvent) error {
	if event.Actor.IsNil() {
		return fmt.Errorf("compliance event requires Actor")
	}
	if event.Action == "" {
		return fmt.Errorf("compliance event requires Action")
	}
	if event.Timestamp.IsZero() {
		return fmt.Errorf("compliance event requires Timestamp")
	}
	if event.Action.Category() != audit.CategoryCompliance {
		return fmt.Errorf("%s is not a compliance action", event.Action)
	}
	switch event.Action {
	case audit.EventAccessApproved, audit.EventAccessRemoved:
		if event.ClientID.IsNil() || event.Institution.IsNil() {
			return fmt.Errorf("%s requires ClientID and Institution", event.Action)
		}
	case audit.EventClientRegistered:
		if event.ClientID.IsNil() {
			return fmt.Errorf("%s requires ClientID", event.Action)
		}
	case audit.EventInstitutionRegistered:
		if event.Institution.IsNil() {
			return fmt.Errorf("%s requires Institution", event.Action)
		}
	}
	return nil
}

// Close is a no-op for the synchronous compliance publisher.
func (p *Publisher) Close() error {
	return nil
}
