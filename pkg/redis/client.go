package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNil is returned when a key does not exist (or has expired).
var ErrNil = errors.New("redis: key not found")

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis with retry.
func NewClient(ctx context.Context, addr string, attempts int, log *zap.Logger) (*Client, error) {
	if attempts < 1 {
		attempts = 1
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	for i := 0; i < attempts; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Info("connected to redis", zap.String("addr", addr))
			return &Client{rdb: rdb}, nil
		}
		log.Warn("waiting for redis", zap.Int("attempt", i+1), zap.Int("of", attempts), zap.Error(err))
		if i+1 < attempts {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("redis: failed to connect after %d attempts", attempts)
}

// SetJSON stores v under key as JSON with the given expiry.
func (c *Client) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, ttl).Err()
}

// GetJSON loads the JSON value stored under key into dst.
func (c *Client) GetJSON(ctx context.Context, key string, dst any) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return ErrNil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// Del removes key. Removing a missing key is not an error.
func (c *Client) Del(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
