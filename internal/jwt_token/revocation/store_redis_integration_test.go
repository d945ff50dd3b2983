//go:build integration

package revocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ekyc/pkg/testutil/containers"
)

func TestRedisTRL(t *testing.T) {
	rc := containers.GetManager().GetRedis(t)
	client := rc.Client
	ns := rc.Namespace(t)
	ctx := context.Background()

	trl := NewRedisTRL(client, ns)
	require.NoError(t, trl.RevokeToken(ctx, "jti-1", time.Minute))

	revoked, err := trl.IsTokenRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = trl.IsTokenRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	ttl, err := client.TTL(ctx, ns+":trl:jti:jti-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
