package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/akolanti/DocTalk/internal/metrics"
	"github.com/akolanti/DocTalk/pkg/logger_i"
)

// VectorCache is an advisory store of embeddings keyed by CacheKey.
type VectorCache interface {
	GetVectors(ctx context.Context, keys []string) (map[string][]float32, error)
	PutVectors(ctx context.Context, entries map[string][]float32) error
}

type cachedEmbedder struct {
	inner  Embedder
	cache  VectorCache
	logger *logger_i.Logger
}

// NewCachedEmbedder only sends cache misses to inner. Cache failures are
// logged and the call falls through to the remote.
func NewCachedEmbedder(inner Embedder, cache VectorCache) Embedder {
	if cache == nil {
		return inner
	}
	return &cachedEmbedder{
		inner:  inner,
		cache:  cache,
		logger: logger_i.NewLogger("embedding_cache"),
	}
}

func CacheKey(model string, purpose Purpose, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + model + ":" + string(purpose) + ":" + hex.EncodeToString(sum[:])
}

func (c *cachedEmbedder) Model() string {
	return c.inner.Model()
}

func (c *cachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	log := c.logger.WithContext(ctx)
	model := c.inner.Model()
	purpose := PurposeFrom(ctx)

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = CacheKey(model, purpose, text)
	}

	cached, err := c.cache.GetVectors(ctx, keys)
	if err != nil {
		log.Warn("embedding cache read failed, bypassing", "error", err)
		cached = nil
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, key := range keys {
		if v, ok := cached[key]; ok && len(v) > 0 {
			out[i] = v
			continue
		}
		missTexts = append(missTexts, texts[i])
		missIdx = append(missIdx, i)
	}
	metrics.CaptureCacheLookups(len(texts)-len(missTexts), len(missTexts))

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if err := CheckVectors(vectors, len(missTexts)); err != nil {
		return nil, err
	}

	fresh := make(map[string][]float32, len(missTexts))
	for j, i := range missIdx {
		out[i] = vectors[j]
		fresh[keys[i]] = vectors[j]
	}
	if err := c.cache.PutVectors(ctx, fresh); err != nil {
		log.Warn("embedding cache write failed", "error", err)
	}
	return out, nil
}
