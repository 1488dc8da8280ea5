package ingest

import (
	"context"
	"time"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/flowModel"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/metrics"
	"github.com/akolanti/DocTalk/internal/rag/embedding"
	"github.com/akolanti/DocTalk/internal/rag/vectorDB"
	"github.com/akolanti/DocTalk/pkg/logger_i"
)

var logger = logger_i.NewLogger("document_ingestion")

type Params struct {
	DocumentId  string
	Filename    string
	Content     []byte
	ChunkSize   int
	Overlap     int
	BatchSize   int
	Parallelism int
}

// ProcessDocumentIngestion runs extract, chunk, embed and build for one
// document. Nothing is published unless every stage succeeds.
func ProcessDocumentIngestion(ctx context.Context, p Params, e embedding.Embedder, store vectorDB.IndexStore) (commonModels.Document, error) {
	log := logger.WithContext(ctx).With("documentId", p.DocumentId, "filename", p.Filename)
	log.Debug("Processing document", "stage", flowModel.Received, "bytes", len(p.Content))

	start := time.Now()
	text, docType, err := ExtractText(p.Filename, p.Content)
	metrics.CaptureExecutionMetrics(ragErrors.StageExtract, time.Since(start))
	if err != nil {
		log.Error("Error extracting document content", "error", err)
		return commonModels.Document{}, err
	}
	log.Debug("Processing document", "stage", flowModel.Extracted, "type", docType, "chars", len(text))

	chunks := PrepareChunks(SplitText(text, p.ChunkSize, p.Overlap))
	if len(chunks) == 0 {
		return commonModels.Document{}, ragErrors.Validation("No text could be extracted from the document.")
	}
	log.Debug("Processing document", "stage", flowModel.Chunked, "chunks", len(chunks))

	start = time.Now()
	err = EmbedChunks(ctx, chunks, e, p.BatchSize, p.Parallelism)
	metrics.CaptureExecutionMetrics(ragErrors.StageEmbedding, time.Since(start))
	if err != nil {
		log.Error("Error embedding document", "error", err)
		return commonModels.Document{}, err
	}
	log.Debug("Processing document", "stage", flowModel.Embedded)

	start = time.Now()
	err = store.Build(ctx, p.DocumentId, chunks, e.Model())
	metrics.CaptureExecutionMetrics(ragErrors.StageIndex, time.Since(start))
	if err != nil {
		log.Error("Error building index", "error", err)
		return commonModels.Document{}, err
	}
	log.Debug("Processing document", "stage", flowModel.Published)

	return commonModels.Document{
		Id:                  p.DocumentId,
		Name:                p.Filename,
		IndexPath:           store.Location(p.DocumentId),
		ChunkCount:          len(chunks),
		EmbeddingModel:      e.Model(),
		LastIngestTimestamp: time.Now(),
		ContentType:         docType,
		Chunks:              chunks,
	}, nil
}
