package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyFulfilled = "fulfilled:%s"
	ttlFulfilled = 7 * 24 * time.Hour
)

// NewClient connects to Redis and checks the connection.
func NewClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// FulfillmentCache remembers checkout sessions that are already fulfilled so
// redelivered webhooks can skip the database. A miss proves nothing.
type FulfillmentCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFulfillmentCache creates a new instance of FulfillmentCache.
func NewFulfillmentCache(rdb *redis.Client) *FulfillmentCache {
	return &FulfillmentCache{rdb: rdb, ttl: ttlFulfilled}
}

func (c *FulfillmentCache) IsFulfilled(ctx context.Context, sessionID string) (bool, error) {
	n, err := c.rdb.Exists(ctx, fmt.Sprintf(keyFulfilled, sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check fulfillment marker of %s: %w", sessionID, err)
	}
	return n > 0, nil
}

func (c *FulfillmentCache) MarkFulfilled(ctx context.Context, sessionID, orderID string) error {
	if err := c.rdb.Set(ctx, fmt.Sprintf(keyFulfilled, sessionID), orderID, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set fulfillment marker of %s: %w", sessionID, err)
	}
	return nil
}
