package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls [][]string
}

func (c *countingEmbedder) Model() string { return "test-model" }

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls = append(c.calls, texts)
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text))}
	}
	return out, nil
}

type mapCache struct {
	mu      sync.Mutex
	data    map[string][]float32
	failGet bool
}

func (m *mapCache) GetVectors(ctx context.Context, keys []string) (map[string][]float32, error) {
	if m.failGet {
		return nil, errors.New("redis down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]float32{}
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *mapCache) PutVectors(ctx context.Context, entries map[string][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range entries {
		m.data[k] = v
	}
	return nil
}

func TestCachedEmbedder_OnlyMissesGoRemote(t *testing.T) {
	inner := &countingEmbedder{}
	cache := &mapCache{data: map[string][]float32{}}
	e := NewCachedEmbedder(inner, cache)

	_, err := e.Embed(context.Background(), []string{"one", "three"})
	require.NoError(t, err)

	vectors, err := e.Embed(context.Background(), []string{"three", "fourth", "one"})
	require.NoError(t, err)

	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"fourth"}, inner.calls[1])
	assert.Equal(t, [][]float32{{5}, {6}, {3}}, vectors)
}

func TestCachedEmbedder_CacheFailureFallsThrough(t *testing.T) {
	inner := &countingEmbedder{}
	cache := &mapCache{data: map[string][]float32{}, failGet: true}
	e := NewCachedEmbedder(inner, cache)

	vectors, err := e.Embed(context.Background(), []string{"ab"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{2}}, vectors)
	assert.Len(t, inner.calls, 1)
}

func TestCacheKeyDependsOnModelAndPurpose(t *testing.T) {
	assert.NotEqual(t, CacheKey("a", PurposeDocument, "text"), CacheKey("b", PurposeDocument, "text"))
	assert.NotEqual(t, CacheKey("a", PurposeDocument, "text"), CacheKey("a", PurposeQuery, "text"))
	assert.Equal(t, CacheKey("a", PurposeQuery, "text"), CacheKey("a", PurposeQuery, "text"))
}

type purposeRecorder struct {
	countingEmbedder
	seen []Purpose
}

func (p *purposeRecorder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.seen = append(p.seen, PurposeFrom(ctx))
	return p.countingEmbedder.Embed(ctx, texts)
}

func TestEmbedOne(t *testing.T) {
	inner := &purposeRecorder{}
	v, err := EmbedOne(context.Background(), inner, "four")

	require.NoError(t, err)
	assert.Equal(t, []float32{4}, v)
	assert.Equal(t, []Purpose{PurposeQuery}, inner.seen)
}

func TestPurposeDefaultsToDocument(t *testing.T) {
	assert.Equal(t, PurposeDocument, PurposeFrom(context.Background()))
}
