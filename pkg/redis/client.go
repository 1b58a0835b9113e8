// Package redis wraps the go-redis client with the small surface the lyrics
// cache needs.
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Client is a thin wrapper around a redis connection.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to redis and verifies the connection with a ping.
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return &Client{rdb: rdb}, nil
}

// Get returns the value for key, or "" when the key does not exist.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	result := c.rdb.Get(ctx, key)
	if result.Err() == redis.Nil {
		return "", nil
	}
	return result.Result()
}

// Set stores a value under key with the given expiration (0 means no expiry).
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
