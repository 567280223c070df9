package session

import (
	"context"
	"errors"
	"time"

	rredis "journal-service/pkg/redis"
)

const redisKeyPrefix = "journal:session:"

// RedisStore keeps sessions in Redis with a key TTL, so they survive restarts
// and are shared between instances.
type RedisStore struct {
	client *rredis.Client
}

// NewRedisStore wraps a connected client.
func NewRedisStore(c *rredis.Client) *RedisStore { return &RedisStore{client: c} }

func (s *RedisStore) Save(ctx context.Context, sid string, id Identity, ttl time.Duration) error {
	return s.client.SetJSON(ctx, redisKeyPrefix+sid, id, ttl)
}

func (s *RedisStore) Load(ctx context.Context, sid string) (Identity, error) {
	var id Identity
	if err := s.client.GetJSON(ctx, redisKeyPrefix+sid, &id); err != nil {
		if errors.Is(err, rredis.ErrNil) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, err
	}
	return id, nil
}

func (s *RedisStore) Delete(ctx context.Context, sid string) error {
	return s.client.Del(ctx, redisKeyPrefix+sid)
}
