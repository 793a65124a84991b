package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) Close() error {
	return c.Client.Close()
}

// RunLockKey names the distributed lock for one scheduler cadence slot.
// Deployments sharing a database race on this key so that exactly one of
// them executes the slot.
func RunLockKey(slot string) string {
	return fmt.Sprintf("claimd:runlock:%s", slot)
}

// AcquireRunLock attempts to take the lock for the given cadence slot.
// It returns true when this process won the slot.
func (c *Client) AcquireRunLock(ctx context.Context, slot string, ttl time.Duration) (bool, error) {
	ok, err := c.SetNX(ctx, RunLockKey(slot), time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	return ok, nil
}
