package store

import (
	"context"
	"time"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type EmbeddingCache interface {
	GetVectors(ctx context.Context, keys []string) (map[string][]float32, error)
	PutVectors(ctx context.Context, entries map[string][]float32) error
}

// InMemoryEmbeddingCache keeps at most size vectors, least recently used go first.
// Restarting the process clears it.
type InMemoryEmbeddingCache struct {
	vectors *expirable.LRU[string, []float32]
}

func InitInMemoryEmbeddingCache(size int, ttl time.Duration) *InMemoryEmbeddingCache {
	if size <= 0 {
		size = config.MemoryEmbeddingCacheSize
	}
	if ttl <= 0 {
		ttl = config.RedisEmbeddingCacheTTL
	}
	return &InMemoryEmbeddingCache{
		vectors: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

func (c *InMemoryEmbeddingCache) GetVectors(ctx context.Context, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	for _, key := range keys {
		if v, ok := c.vectors.Get(key); ok {
			out[key] = v
		}
	}
	return out, nil
}

func (c *InMemoryEmbeddingCache) PutVectors(ctx context.Context, entries map[string][]float32) error {
	for key, v := range entries {
		c.vectors.Add(key, v)
	}
	return nil
}

func (c *InMemoryEmbeddingCache) Len() int {
	return c.vectors.Len()
}
