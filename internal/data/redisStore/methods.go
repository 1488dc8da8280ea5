package redisStore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// MGet returns the raw values for keys; missing keys are left out of the map.
func (s *Store) MGet(ctx context.Context, keys ...string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if str, ok := v.(string); ok {
			out[keys[i]] = []byte(str)
		}
	}
	return out, nil
}

// SetMany writes all entries with the same TTL in one pipeline round trip.
func (s *Store) SetMany(ctx context.Context, entries map[string][]byte, expiration time.Duration) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, key, value, expiration)
		}
		return nil
	})
	return err
}
