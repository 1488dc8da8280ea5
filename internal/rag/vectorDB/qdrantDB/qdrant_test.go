//go:build integration

package qdrantDB

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newQdrantContainer(ctx context.Context, t *testing.T) *qdrant.Client {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "qdrant/qdrant:v1.16.2",
		ExposedPorts: []string{"6334/tcp"},
		WaitingFor:   wait.ForListeningPort("6334/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to create qdrant container: %v", err)
	}
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6334")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: portNum})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.Eventually(t, func() bool {
		_, err := client.HealthCheck(ctx)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	return client
}

func chunksFor(version string, n int) []commonModels.DocChunk {
	chunks := make([]commonModels.DocChunk, n)
	for i := range chunks {
		chunks[i] = commonModels.DocChunk{
			Ordinal:      i,
			Text:         fmt.Sprintf("%s-chunk-%d", version, i),
			SourceOffset: i * 100,
			Embedding:    []float32{1, float32(i) + 1, 0.5, 0.25},
		}
	}
	return chunks
}

func collectionsOf(ctx context.Context, t *testing.T, client *qdrant.Client, id string) []string {
	t.Helper()
	all, err := client.ListCollections(ctx)
	require.NoError(t, err)
	var out []string
	for _, name := range all {
		if strings.HasPrefix(name, aliasName(id)+"_") {
			out = append(out, name)
		}
	}
	return out
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	client := newQdrantContainer(ctx, t)

	t.Run("Build Load List Delete", func(t *testing.T) {
		s := NewStore(client)
		require.NoError(t, s.Build(ctx, "doc-1", chunksFor("v1", 3), "test-model"))

		h, err := s.Load(ctx, "doc-1")
		require.NoError(t, err)
		assert.Equal(t, 4, h.Dimension)
		assert.Equal(t, "test-model", h.EmbeddingModel)
		require.Len(t, h.Chunks, 3)
		assert.Equal(t, "v1-chunk-2", h.Chunks[2].Text)
		assert.Equal(t, 200, h.Chunks[2].SourceOffset)

		ids, err := s.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, "doc-1")

		require.NoError(t, s.Delete(ctx, "doc-1"))
		_, err = s.Load(ctx, "doc-1")
		assert.True(t, ragErrors.IsNotFound(err))
		assert.True(t, ragErrors.IsNotFound(s.Delete(ctx, "doc-1")))
		assert.Empty(t, collectionsOf(ctx, t, client, "doc-1"))
	})

	t.Run("Rebuild replaces instead of merging", func(t *testing.T) {
		s := NewStore(client)
		require.NoError(t, s.Build(ctx, "doc-2", chunksFor("v1", 5), "m"))
		require.NoError(t, s.Build(ctx, "doc-2", chunksFor("v2", 2), "m"))

		h, err := s.Load(ctx, "doc-2")
		require.NoError(t, err)
		require.Len(t, h.Chunks, 2)
		for _, c := range h.Chunks {
			assert.True(t, strings.HasPrefix(c.Text, "v2-"))
		}
		assert.Len(t, collectionsOf(ctx, t, client, "doc-2"), 1)
	})

	t.Run("Load reads past one scroll page", func(t *testing.T) {
		s := NewStore(client)
		require.NoError(t, s.Build(ctx, "doc-3", chunksFor("big", 600), "m"))

		h, err := s.Load(ctx, "doc-3")
		require.NoError(t, err)
		require.Len(t, h.Chunks, 600)
		assert.Equal(t, 599, h.Chunks[599].Ordinal)
	})

	t.Run("Unknown id is not found", func(t *testing.T) {
		_, err := NewStore(client).Load(ctx, "missing")
		assert.True(t, ragErrors.IsNotFound(err))
	})
}

// Readers racing rebuilds of different sizes must always see one whole generation.
func TestConcurrentRebuildKeepsOneGeneration(t *testing.T) {
	ctx := context.Background()
	client := newQdrantContainer(ctx, t)
	s := NewStore(client)
	require.NoError(t, s.Build(ctx, "doc", chunksFor("g0", 10), "m"))

	sizes := map[string]int{"g0": 10}
	var sizesMu sync.Mutex
	var wg sync.WaitGroup
	errs := make(chan error, 64)

	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 4; i++ {
				version := fmt.Sprintf("w%d_%d", w, i)
				n := 10 + 4*((w+i)%2)
				sizesMu.Lock()
				sizes[version] = n
				sizesMu.Unlock()
				if err := s.Build(ctx, "doc", chunksFor(version, n), "m"); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}

	for r := 0; r < 3; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				h, err := s.Load(ctx, "doc")
				if err != nil {
					errs <- err
					return
				}
				version := strings.SplitN(h.Chunks[0].Text, "-", 2)[0]
				sizesMu.Lock()
				want := sizes[version]
				sizesMu.Unlock()
				if len(h.Chunks) != want {
					errs <- fmt.Errorf("generation %s has %d chunks, want %d", version, len(h.Chunks), want)
					return
				}
				for _, c := range h.Chunks {
					if !strings.HasPrefix(c.Text, version+"-") {
						errs <- fmt.Errorf("mixed generations %q and %q", version, c.Text)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assert.Len(t, collectionsOf(ctx, t, client, "doc"), 1)
}

func TestSemanticCache(t *testing.T) {
	ctx := context.Background()
	client := newQdrantContainer(ctx, t)
	cache := NewSemanticCache(client, "semantic-cache-test", 0.95)

	query := []float32{1, 0, 0, 0}
	_, hit, err := cache.Lookup(ctx, "doc-a", query)
	require.NoError(t, err)
	assert.False(t, hit, "lookup before any save")

	require.NoError(t, cache.Save(ctx, "doc-a", query, "Water boils at 100°C."))

	answer, hit, err := cache.Lookup(ctx, "doc-a", []float32{0.99, 0.01, 0, 0})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "Water boils at 100°C.", answer)

	_, hit, err = cache.Lookup(ctx, "doc-b", query)
	require.NoError(t, err)
	assert.False(t, hit, "answers are scoped to their document")

	_, hit, err = cache.Lookup(ctx, "doc-a", []float32{0, 1, 0, 0})
	require.NoError(t, err)
	assert.False(t, hit, "dissimilar question")

	require.NoError(t, cache.Forget(ctx, "doc-a"))
	_, hit, err = cache.Lookup(ctx, "doc-a", query)
	require.NoError(t, err)
	assert.False(t, hit, "forgotten document")
}
