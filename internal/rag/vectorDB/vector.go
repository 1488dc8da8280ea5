package vectorDB

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
)

// IndexHandle is a fully loaded, read-only document index.
type IndexHandle struct {
	DocumentId     string
	Dimension      int
	EmbeddingModel string
	CreatedAt      time.Time
	Chunks         []commonModels.DocChunk
}

// IndexStore persists one vector index per document id. Build publishes
// atomically: a concurrent Load sees either the previous index or the new
// one, never a mix.
type IndexStore interface {
	Build(ctx context.Context, id string, chunks []commonModels.DocChunk, model string) error
	Load(ctx context.Context, id string) (*IndexHandle, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
	Location(id string) string
}

const maxIdLength = 128

// ValidateId accepts ids that are safe to use as a directory or collection name.
func ValidateId(id string) error {
	if id == "" || len(id) > maxIdLength {
		return ragErrors.Validation("Invalid document id.")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return ragErrors.Validation("Invalid document id.")
		}
	}
	return nil
}

// CheckChunks validates chunks before a build and returns their common dimension.
func CheckChunks(chunks []commonModels.DocChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, ragErrors.Validation("No text could be extracted from the document.")
	}
	dimension := len(chunks[0].Embedding)
	for _, c := range chunks {
		if len(c.Embedding) == 0 || len(c.Embedding) != dimension {
			return 0, ragErrors.Persistence("build", fmt.Errorf("chunk %d has %d dimensions, expected %d", c.Ordinal, len(c.Embedding), dimension))
		}
	}
	return dimension, nil
}
