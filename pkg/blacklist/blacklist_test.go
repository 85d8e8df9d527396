package blacklist

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBlacklist_RevokeUntilExpiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	bl := NewMemoryBlacklist(clock)

	require.NoError(t, bl.Revoke(ctx, "jti-1", clock.Now().Add(time.Minute)))

	revoked, err := bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = bl.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	clock.Advance(2 * time.Minute)

	revoked, err = bl.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked, "entries lapse once the token itself would have expired")
}

func TestMemoryBlacklist_IgnoresExpiredTokens(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	bl := NewMemoryBlacklist(clock)

	require.NoError(t, bl.Revoke(ctx, "old", clock.Now().Add(-time.Second)))
	assert.Empty(t, bl.revoked)
}

func TestTokenBlacklist_Redis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	bl := NewTokenBlacklist(client)
	id := uuid.NewString()

	require.NoError(t, bl.Revoke(ctx, id, time.Now().Add(time.Minute)))
	revoked, err := bl.IsRevoked(ctx, id)
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, tokenKey(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}
