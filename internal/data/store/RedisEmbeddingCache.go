package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/data/redisStore"
	"github.com/akolanti/DocTalk/pkg/logger_i"
)

type RedisEmbeddingCache struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

// GetEmbeddingCache prefers redis and falls back to a bounded in-memory LRU
// holding memorySize vectors when redis is not configured or offline.
func GetEmbeddingCache(ctx context.Context, opts redisStore.Options, ttl time.Duration, memorySize int) EmbeddingCache {
	log := logger_i.NewLogger("embedding_cache_store")
	if opts.Addr == "" {
		log.Info("redis not configured, using in-memory embedding cache")
		return InitInMemoryEmbeddingCache(memorySize, ttl)
	}
	s := redisStore.GetRedisStore(ctx, opts, config.RedisEmbeddingCache)
	if s == nil {
		log.Warn("redis unavailable, using in-memory embedding cache")
		return InitInMemoryEmbeddingCache(memorySize, ttl)
	}
	return NewRedisEmbeddingCache(s, ttl)
}

func NewRedisEmbeddingCache(s *redisStore.Store, ttl time.Duration) *RedisEmbeddingCache {
	if ttl <= 0 {
		ttl = config.RedisEmbeddingCacheTTL
	}
	return &RedisEmbeddingCache{
		store:  s,
		ttl:    ttl,
		logger: logger_i.NewLogger("embedding_cache_store"),
	}
}

func (c *RedisEmbeddingCache) GetVectors(ctx context.Context, keys []string) (map[string][]float32, error) {
	raw, err := c.store.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float32, len(raw))
	for key, value := range raw {
		vector, err := decodeVector(value)
		if err != nil {
			c.logger.WithContext(ctx).Warn("dropping corrupt cache entry", "key", key, "error", err)
			continue
		}
		out[key] = vector
	}
	return out, nil
}

func (c *RedisEmbeddingCache) PutVectors(ctx context.Context, entries map[string][]float32) error {
	encoded := make(map[string][]byte, len(entries))
	for key, vector := range entries {
		encoded[key] = encodeVector(vector)
	}
	return c.store.SetMany(ctx, encoded, c.ttl)
}

// vectors are stored as little-endian float32s
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid vector length %d", len(buf))
	}
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector, nil
}
