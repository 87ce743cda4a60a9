package redisclient

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Integration test - requires redis (set TEST_REDIS_ADDR)")
	}

	c, err := NewClient(addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClaimIdempotencyKey(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := fmt.Sprintf("test-%d", time.Now().UnixNano())
	t.Cleanup(func() { c.ReleaseIdempotencyKey(ctx, key) })

	value, claimed, err := c.ClaimIdempotencyKey(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Empty(t, value)

	value, claimed, err = c.ClaimIdempotencyKey(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, pendingValue, value)

	require.NoError(t, c.CompleteIdempotencyKey(ctx, key, "42", time.Minute))
	value, claimed, err = c.ClaimIdempotencyKey(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "42", value)

	require.NoError(t, c.ReleaseIdempotencyKey(ctx, key))
	_, claimed, err = c.ClaimIdempotencyKey(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimIdempotencyKeyExpires(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := fmt.Sprintf("ttl-%d", time.Now().UnixNano())

	_, claimed, err := c.ClaimIdempotencyKey(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, claimed)

	assert.Eventually(t, func() bool {
		_, claimed, err := c.ClaimIdempotencyKey(ctx, key, time.Minute)
		return err == nil && claimed
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, c.ReleaseIdempotencyKey(ctx, key))
}
