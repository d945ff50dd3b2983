// Package revocation keeps a token revocation list keyed by JTI. Entries live
// until the token would have expired anyway.
package revocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	dErrors "ekyc/pkg/domain-errors"
)

var isRevokedDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "ekyc_token_revocation_check_duration_ms",
	Help:    "Latency of token revocation checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const revokedTokenKeyPrefix = "trl:jti:"

// List is a revocation list the auth middleware can consult.
type List interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Clock returns the current time.
type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "token is already expired")
	}
	return nil
}

// RedisTRL shares revocations across server instances.
type RedisTRL struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTRL uses client; namespace is prepended to every key.
func NewRedisTRL(client *redis.Client, namespace string) *RedisTRL {
	prefix := revokedTokenKeyPrefix
	if namespace != "" {
		prefix = namespace + ":" + prefix
	}
	return &RedisTRL{client: client, keyPrefix: prefix}
}

// RevokeToken marks jti revoked for ttl.
func (t *RedisTRL) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	return t.client.Set(ctx, t.keyPrefix+jti, "1", ttl).Err()
}

// IsTokenRevoked reports whether jti is on the list.
func (t *RedisTRL) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	if jti == "" {
		return false, nil
	}
	_, err := t.client.Get(ctx, t.keyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryTRL is a single-process revocation list.
type MemoryTRL struct {
	mu      sync.Mutex
	expires map[string]time.Time
	clock   Clock
}

// NewMemoryTRL creates an empty list. clock may be nil.
func NewMemoryTRL(clock Clock) *MemoryTRL {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryTRL{expires: make(map[string]time.Time), clock: clock}
}

func (t *MemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expires[jti] = t.clock().Add(ttl)
	return nil
}

func (t *MemoryTRL) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	start := time.Now()
	defer func() {
		isRevokedDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()
	exp, ok := t.expires[jti]
	if !ok {
		return false, nil
	}
	if t.clock().After(exp) {
		delete(t.expires, jti)
		return false, nil
	}
	return true, nil
}
