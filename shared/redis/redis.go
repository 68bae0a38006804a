package redis

import (
	"context"
	"strconv"
	"time"

	"resort-booking-demo/backend/pkg/config"

	"github.com/redis/go-redis/v9"
)

const unreadTotalKey = "chat:unread-total"

// Client wraps the Redis connection used for cross-instance counters.
type Client struct {
	client *redis.Client
}

// NewClient builds a client from the application configuration.
func NewClient() *Client {
	cfg := config.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &Client{client: client}
}

// Ping verifies the connection.
func (r *Client) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Set stores a value with an expiration.
func (r *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a string value.
func (r *Client) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

// Del removes a key.
func (r *Client) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// SetUnreadTotal caches the unread message total served to the admin console.
func (r *Client) SetUnreadTotal(ctx context.Context, count int) error {
	return r.client.Set(ctx, unreadTotalKey, count, time.Hour).Err()
}

// UnreadTotal returns the cached unread total. The second result is false
// when the counter is absent or unreadable; callers fall back to the database.
func (r *Client) UnreadTotal(ctx context.Context) (int, bool) {
	val, err := r.client.Get(ctx, unreadTotalKey).Result()
	if err != nil {
		return 0, false
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return count, true
}

// InvalidateUnreadTotal drops the cached unread total so the next read
// recomputes it from the database.
func (r *Client) InvalidateUnreadTotal(ctx context.Context) error {
	return r.client.Del(ctx, unreadTotalKey).Err()
}

// Close releases the underlying connection.
func (r *Client) Close() error {
	return r.client.Close()
}
