package throttle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "throttle:addr:"

// incrScript bumps the counter and refreshes its window in one atomic round
// trip, so the entry always expires one full window after the latest write.
var incrScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[1])
return count
`)

// RedisStore is a Store backed by a shared Redis instance, suitable for
// horizontally scaled deployments where all replicas must see one counter
// per address.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Count(ctx context.Context, address string) (int, error) {
	count, err := s.client.Get(ctx, keyPrefix+address).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("throttle count: %w", err)
	}
	return int(count), nil
}

func (s *RedisStore) Increment(ctx context.Context, address string) (int, error) {
	count, err := incrScript.Run(ctx, s.client, []string{keyPrefix + address}, s.ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("throttle increment: %w", err)
	}
	return int(count), nil
}

func (s *RedisStore) Clear(ctx context.Context, address string) error {
	if err := s.client.Del(ctx, keyPrefix+address).Err(); err != nil {
		return fmt.Errorf("throttle clear: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
