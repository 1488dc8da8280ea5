package fileDB

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/rag/vectorDB"
	"github.com/akolanti/DocTalk/pkg/logger_i"
)

const stagingDir = ".staging"

// Store keeps one gzip JSON artifact per document under root/<id>/.
type Store struct {
	root   string
	logger *logger_i.Logger

	writers vectorDB.DocumentLocks
}

type indexFile struct {
	DocumentId     string        `json:"document_id"`
	Dimension      int           `json:"dimension"`
	EmbeddingModel string        `json:"embedding_model"`
	ChunkCount     int           `json:"chunk_count"`
	CreatedAt      time.Time     `json:"created_at"`
	Chunks         []chunkRecord `json:"chunks"`
}

type chunkRecord struct {
	Ordinal   int       `json:"ordinal"`
	Offset    int       `json:"offset"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(root, stagingDir), 0o755); err != nil {
		return nil, ragErrors.Persistence("open", err)
	}
	s := &Store{
		root:   root,
		logger: logger_i.NewLogger("file_index_store"),
	}
	s.sweepStaging(time.Now().Add(-config.StagingStaleAfter))
	return s, nil
}

// sweepStaging drops artifacts left behind by builds that never published.
// Other processes may share the root, so only files last written before
// cutoff are removed.
func (s *Store) sweepStaging(cutoff time.Time) {
	entries, err := os.ReadDir(filepath.Join(s.root, stagingDir))
	if err != nil {
		return
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, stagingDir, e.Name())); err != nil {
			s.logger.Warn("could not remove stale staging file", "name", e.Name(), "error", err)
		}
	}
}

func (s *Store) Location(id string) string {
	return filepath.Join(s.root, id)
}

func (s *Store) artifactPath(id string) string {
	return filepath.Join(s.root, id, config.IndexFileName)
}

// Build writes the whole index to a staging file and publishes it with a
// single rename over the previous artifact.
func (s *Store) Build(ctx context.Context, id string, chunks []commonModels.DocChunk, model string) error {
	if err := vectorDB.ValidateId(id); err != nil {
		return err
	}
	dimension, err := vectorDB.CheckChunks(chunks)
	if err != nil {
		return err
	}

	defer s.writers.Lock(id)()

	if err := ctx.Err(); err != nil {
		return err
	}

	staged, err := s.writeStaging(id, toIndexFile(id, dimension, model, chunks))
	if err != nil {
		return err
	}
	// no-op once the rename below has moved the file
	defer os.Remove(staged)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.Location(id), 0o755); err != nil {
		return ragErrors.Persistence("publish", err)
	}
	if err := os.Rename(staged, s.artifactPath(id)); err != nil {
		return ragErrors.Persistence("publish", err)
	}

	s.logger.WithContext(ctx).Debug("index published", "documentId", id, "chunks", len(chunks), "dimension", dimension)
	return nil
}

func (s *Store) writeStaging(id string, index indexFile) (string, error) {
	f, err := os.CreateTemp(filepath.Join(s.root, stagingDir), id+"-*.json.gz")
	if err != nil {
		return "", ragErrors.Persistence("build", err)
	}
	name := f.Name()

	fail := func(err error) (string, error) {
		_ = f.Close()
		_ = os.Remove(name)
		return "", ragErrors.Persistence("build", err)
	}

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(index); err != nil {
		return fail(err)
	}
	if err := gz.Close(); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", ragErrors.Persistence("build", err)
	}
	return name, nil
}

func (s *Store) Load(ctx context.Context, id string) (*vectorDB.IndexHandle, error) {
	if err := vectorDB.ValidateId(id); err != nil {
		return nil, err
	}

	f, err := os.Open(s.artifactPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ragErrors.NotFound(fmt.Sprintf("No index found for document %s.", id))
	}
	if err != nil {
		return nil, ragErrors.Persistence("load", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, ragErrors.Persistence("load", err)
	}
	defer gz.Close()

	var index indexFile
	if err := json.NewDecoder(gz).Decode(&index); err != nil {
		return nil, ragErrors.Persistence("load", err)
	}
	if len(index.Chunks) != index.ChunkCount {
		return nil, ragErrors.Persistence("load", fmt.Errorf("index %s has %d chunks, header says %d", id, len(index.Chunks), index.ChunkCount))
	}
	return toHandle(index), nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, ragErrors.Persistence("list", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, err := os.Stat(s.artifactPath(e.Name())); err != nil {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := vectorDB.ValidateId(id); err != nil {
		return err
	}

	defer s.writers.Lock(id)()

	if _, err := os.Stat(s.artifactPath(id)); errors.Is(err, fs.ErrNotExist) {
		return ragErrors.NotFound(fmt.Sprintf("No index found for document %s.", id))
	}
	if err := os.RemoveAll(s.Location(id)); err != nil {
		return ragErrors.Persistence("delete", err)
	}
	return nil
}

func toIndexFile(id string, dimension int, model string, chunks []commonModels.DocChunk) indexFile {
	records := make([]chunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = chunkRecord{Ordinal: c.Ordinal, Offset: c.SourceOffset, Text: c.Text, Embedding: c.Embedding}
	}
	return indexFile{
		DocumentId:     id,
		Dimension:      dimension,
		EmbeddingModel: model,
		ChunkCount:     len(records),
		CreatedAt:      time.Now().UTC(),
		Chunks:         records,
	}
}

func toHandle(index indexFile) *vectorDB.IndexHandle {
	chunks := make([]commonModels.DocChunk, len(index.Chunks))
	for i, r := range index.Chunks {
		chunks[i] = commonModels.DocChunk{Ordinal: r.Ordinal, Text: r.Text, SourceOffset: r.Offset, Embedding: r.Embedding}
	}
	return &vectorDB.IndexHandle{
		DocumentId:     index.DocumentId,
		Dimension:      index.Dimension,
		EmbeddingModel: index.EmbeddingModel,
		CreatedAt:      index.CreatedAt,
		Chunks:         chunks,
	}
}
