package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/claim_idempotency_key.lua
var claimIdempotencyKeyScript string

// pendingValue marks a claimed key whose request has not finished yet
const pendingValue = "pending"

type Client struct {
	rdb         *redis.Client
	claimScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:         rdb,
		claimScript: redis.NewScript(claimIdempotencyKeyScript),
	}, nil
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:negotiation:%s", key)
}

// ClaimIdempotencyKey atomically claims key. It returns the stored value and
// false when the key is already known, otherwise it stores a pending marker
// expiring after pendingTTL and returns true.
func (c *Client) ClaimIdempotencyKey(ctx context.Context, key string, pendingTTL time.Duration) (string, bool, error) {
	result, err := c.claimScript.Run(ctx, c.rdb, []string{idempotencyKey(key)}, pendingValue, pendingTTL.Milliseconds()).Result()
	if err != nil {
		return "", false, fmt.Errorf("claim idempotency key script failed: %w", err)
	}

	reply, ok := result.([]interface{})
	if !ok || len(reply) != 2 {
		return "", false, fmt.Errorf("unexpected script result type")
	}
	claimed, ok := reply[0].(int64)
	if !ok {
		return "", false, fmt.Errorf("unexpected script result type")
	}
	value, _ := reply[1].(string)

	return value, claimed == 1, nil
}

// CompleteIdempotencyKey stores the final value of a claimed key
func (c *Client) CompleteIdempotencyKey(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, idempotencyKey(key), value, ttl).Err()
}

// ReleaseIdempotencyKey forgets a claimed key so the request can be retried
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyKey(key)).Err()
}
