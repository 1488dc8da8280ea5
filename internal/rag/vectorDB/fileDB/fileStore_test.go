package fileDB

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunksFor(version string, n int) []commonModels.DocChunk {
	chunks := make([]commonModels.DocChunk, n)
	for i := range chunks {
		chunks[i] = commonModels.DocChunk{
			Ordinal:      i,
			Text:         fmt.Sprintf("%s-chunk-%d", version, i),
			SourceOffset: i * 100,
			Embedding:    []float32{float32(i), 1, 0.5},
		}
	}
	return chunks
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestBuildThenLoad(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Build(ctx, "doc-1", chunksFor("v1", 3), "test-model"))

	h, err := s.Load(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-1", h.DocumentId)
	assert.Equal(t, 3, h.Dimension)
	assert.Equal(t, "test-model", h.EmbeddingModel)
	require.Len(t, h.Chunks, 3)
	assert.Equal(t, "v1-chunk-2", h.Chunks[2].Text)
	assert.Equal(t, 200, h.Chunks[2].SourceOffset)
	assert.Equal(t, []float32{2, 1, 0.5}, h.Chunks[2].Embedding)

	_, err = os.Stat(filepath.Join(s.Location("doc-1"), config.IndexFileName))
	assert.NoError(t, err)
}

func TestLoadUnknownIdIsNotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.Load(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, ragErrors.IsNotFound(err))
}

func TestRebuildReplacesInsteadOfMerging(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Build(ctx, "doc", chunksFor("v1", 5), "m"))
	require.NoError(t, s.Build(ctx, "doc", chunksFor("v2", 2), "m"))

	h, err := s.Load(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, h.Chunks, 2)
	for _, c := range h.Chunks {
		assert.True(t, strings.HasPrefix(c.Text, "v2-"))
	}
}

func TestIndependentIdsStayIndependent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Build(ctx, "first", chunksFor("a", 2), "m"))
	require.NoError(t, s.Build(ctx, "second", chunksFor("b", 4), "m"))

	first, err := s.Load(ctx, "first")
	require.NoError(t, err)
	second, err := s.Load(ctx, "second")
	require.NoError(t, err)

	assert.Len(t, first.Chunks, 2)
	assert.Len(t, second.Chunks, 4)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ids)
}

func TestListSkipsStagingAndIncompleteDirectories(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Build(ctx, "ready", chunksFor("v", 1), "m"))
	require.NoError(t, os.MkdirAll(filepath.Join(s.root, "half-built"), 0o755))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ready"}, ids)
}

func TestBuildRejectsBadInput(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.Build(ctx, "../escape", chunksFor("v", 1), "m")
	assert.True(t, ragErrors.IsValidation(err))

	mixed := chunksFor("v", 2)
	mixed[1].Embedding = []float32{1}
	err = s.Build(ctx, "mixed", mixed, "m")
	assert.Equal(t, ragErrors.KindPersistence, ragErrors.KindOf(err))

	_, err = s.Load(ctx, "mixed")
	assert.True(t, ragErrors.IsNotFound(err), "failed build must not publish")
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Build(ctx, "doc", chunksFor("v", 1), "m"))
	require.NoError(t, s.Delete(ctx, "doc"))

	_, err := s.Load(ctx, "doc")
	assert.True(t, ragErrors.IsNotFound(err))
	assert.True(t, ragErrors.IsNotFound(s.Delete(ctx, "doc")))
}

func TestNewStoreSweepsStaleStaging(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, stagingDir), 0o755))
	stale := filepath.Join(root, stagingDir, "doc-123.json.gz")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o644))
	old := time.Now().Add(-2 * config.StagingStaleAfter)
	require.NoError(t, os.Chtimes(stale, old, old))

	_, err := NewStore(root)
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

// A CLI command opening the same root must not break a build that is in flight.
func TestSecondStoreKeepsInFlightStaging(t *testing.T) {
	root := t.TempDir()
	first, err := NewStore(root)
	require.NoError(t, err)

	staged, err := first.writeStaging("doc1", toIndexFile("doc1", 3, "m", chunksFor("v1", 2)))
	require.NoError(t, err)

	second, err := NewStore(root)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(first.Location("doc1"), 0o755))
	require.NoError(t, os.Rename(staged, first.artifactPath("doc1")))

	h, err := second.Load(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Len(t, h.Chunks, 2)
}

func TestBuildLocksAreReleased(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("doc-%d", i)
		require.NoError(t, s.Build(ctx, id, chunksFor("v", 1), "m"))
		require.NoError(t, s.Delete(ctx, id))
	}

	assert.Zero(t, s.writers.Len())
}

// Readers racing rebuilds of the same id must always see one complete generation.
func TestConcurrentRebuildNeverExposesMixedIndex(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Build(ctx, "doc", chunksFor("v0", 8), "m"))

	var wg sync.WaitGroup
	errs := make(chan error, 64)

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				version := fmt.Sprintf("w%d_%d", w, i)
				if err := s.Build(ctx, "doc", chunksFor(version, 8), "m"); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 30; i++ {
				h, err := s.Load(ctx, "doc")
				if err != nil {
					errs <- err
					return
				}
				if len(h.Chunks) != 8 {
					errs <- fmt.Errorf("partial index with %d chunks", len(h.Chunks))
					return
				}
				prefix := strings.SplitN(h.Chunks[0].Text, "-", 2)[0]
				for _, c := range h.Chunks {
					if !strings.HasPrefix(c.Text, prefix+"-") {
						errs <- fmt.Errorf("mixed generations %q and %q", prefix, c.Text)
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
}
