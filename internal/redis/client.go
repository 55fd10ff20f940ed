package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"license-service/internal/config"
)

// SeatUsageKeyPrefix namespaces the cached assigned-seat counts
const SeatUsageKeyPrefix = "license:usage:"

// seatUsageTTL is deliberately short: the cache only smooths repeated
// availability checks, the database stays the source of truth.
const seatUsageTTL = 30 * time.Second

// Client wraps the Redis client with seat-usage caching methods. Every
// method degrades silently on Redis errors; callers fall back to direct
// database counts.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection to Redis
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func seatUsageKey(accountID, productID uuid.UUID) string {
	return SeatUsageKeyPrefix + accountID.String() + ":" + productID.String()
}

// GetSeatUsage returns the cached assigned-seat count for an account and
// product, and whether the cache held one.
func (c *Client) GetSeatUsage(ctx context.Context, accountID, productID uuid.UUID) (int64, bool) {
	val, err := c.rdb.Get(ctx, seatUsageKey(accountID, productID)).Result()
	if err != nil {
		if err != redis.Nil {
			logrus.WithError(err).Debug("seat usage cache read failed")
		}
		return 0, false
	}
	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return count, true
}

// SetSeatUsage caches the assigned-seat count for an account and product
func (c *Client) SetSeatUsage(ctx context.Context, accountID, productID uuid.UUID, count int64) {
	if err := c.rdb.Set(ctx, seatUsageKey(accountID, productID), count, seatUsageTTL).Err(); err != nil {
		logrus.WithError(err).Debug("seat usage cache write failed")
	}
}

// InvalidateSeatUsage drops cached counts for the given products after an
// engine mutation commits.
func (c *Client) InvalidateSeatUsage(ctx context.Context, accountID uuid.UUID, productIDs []uuid.UUID) {
	if len(productIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(productIDs))
	for _, productID := range productIDs {
		keys = append(keys, seatUsageKey(accountID, productID))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		logrus.WithError(err).Debug("seat usage cache invalidation failed")
	}
}
