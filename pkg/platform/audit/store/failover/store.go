// Package failover routes audit appends to a fallback store while the primary
// is failing.
package failover

import (
	"context"
	"fmt"
	"log/slog"

	audit "ekyc/pkg/platform/audit"
	"ekyc/pkg/platform/circuit"
)

// Store tries primary first. Once the breaker opens, failed primary appends
// land in fallback instead of failing the caller.
type Store struct {
	primary  audit.Store
	fallback audit.Store
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

// New wraps primary and fallback behind breaker.
func New(primary, fallback audit.Store, breaker *circuit.Breaker, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

// Append implements audit.Store.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	err := s.primary.Append(ctx, event)
	if err == nil {
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.InfoContext(ctx, "audit primary recovered", "breaker", s.breaker.Name())
		}
		return nil
	}

	useFallback, change := s.breaker.RecordFailure()
	if change.Opened {
		s.logger.WarnContext(ctx, "audit primary unhealthy, using fallback",
			"breaker", s.breaker.Name(),
			"error", err,
		)
	}
	if !useFallback {
		return fmt.Errorf("append to primary audit store: %w", err)
	}
	if ferr := s.fallback.Append(ctx, event); ferr != nil {
		return fmt.Errorf("append to fallback audit store: %w", ferr)
	}
	return nil
}
