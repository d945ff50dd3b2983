//go:build integration

package containers

import (
	"context"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer is a shared Redis instance for the redis ledger backend,
// the token revocation list and the platform client tests.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string // redis://host:port, as EKYC_REDIS_URL expects
	Addr      string // host:port
	Client    *redis.Client
}

// NewRedisContainer starts Redis and waits until it answers PING. The
// container is owned by the Manager, so no cleanup is registered on t.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}
	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("redis connection string: %v", err)
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("parse redis url %q: %v", url, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("ping redis: %v", err)
	}
	return &RedisContainer{
		Container: container,
		URL:       url,
		Addr:      opts.Addr,
		Client:    client,
	}
}

// Namespace returns a key prefix unique to t, so suites sharing the
// container do not see each other's ledger keys or revoked tokens.
func (r *RedisContainer) Namespace(t *testing.T) string {
	t.Helper()
	return "ekyc-test:" + strings.NewReplacer("/", ":", " ", "_").Replace(t.Name())
}

// FlushAll empties the database between suites that share a namespace.
func (r *RedisContainer) FlushAll(ctx context.Context) error {
	return r.Client.FlushAll(ctx).Err()
}
