package rag

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/DocTalk/internal/adapter/utils"
	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/flowModel"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/metrics"
	"github.com/akolanti/DocTalk/internal/rag/embedding"
	"github.com/akolanti/DocTalk/internal/rag/ingest"
	"github.com/akolanti/DocTalk/internal/rag/llm"
	"github.com/akolanti/DocTalk/internal/rag/speech"
	"github.com/akolanti/DocTalk/internal/rag/vectorDB"
	"github.com/akolanti/DocTalk/internal/rag/vision"
	"github.com/akolanti/DocTalk/internal/storage"
	"github.com/akolanti/DocTalk/pkg/logger_i"
)

/*
Service is the only thing the handlers, the MCP tools and the CLI talk to.
The private service struct holds the store and the remote clients, so callers
never reach the vector store or a model directly and tests can swap every
dependency for a mock.
*/
type Service interface {
	IngestDocument(ctx context.Context, req IngestRequest) (commonModels.Document, error)
	Answer(ctx context.Context, q commonModels.QueryContext) (commonModels.AnswerResult, error)
	AnalyzeImage(ctx context.Context, req ImageRequest) (commonModels.AnswerResult, error)
	ListDocuments(ctx context.Context) ([]string, error)
	DeleteDocument(ctx context.Context, id string) error
}

type IngestRequest struct {
	// DocumentId is generated when empty. Reusing an id replaces its index.
	DocumentId string
	Filename   string
	Content    []byte
}

type ImageRequest struct {
	Filename string
	Image    []byte
	Prompt   string
}

// VisionFuser runs the mood and description calls for one image.
type VisionFuser interface {
	Analyze(ctx context.Context, image []byte, mimeType string, prompt string) (vision.VisionResult, error)
}

// AnswerCache reuses answers to near-identical questions about one document.
// It is advisory: failures are logged and the question is answered normally.
type AnswerCache interface {
	Lookup(ctx context.Context, documentId string, query []float32) (string, bool, error)
	Save(ctx context.Context, documentId string, query []float32, answer string) error
	Forget(ctx context.Context, documentId string) error
}

// Dependencies wires the service. Vision, Speech, Archive and AnswerCache may
// be nil: a missing enrichment degrades the response, a missing archive or
// cache is skipped.
type Dependencies struct {
	Store       vectorDB.IndexStore
	Embedder    embedding.Embedder
	Answerer    llm.Answerer
	Vision      VisionFuser
	Speech      speech.Synthesizer
	Archive     storage.Archive
	AnswerCache AnswerCache
}

type Options struct {
	ChunkSize            int
	ChunkOverlap         int
	TopK                 int
	EmbeddingBatchSize   int
	EmbeddingParallelism int
	RequestTimeout       time.Duration
}

func DefaultOptions() Options {
	return Options{
		ChunkSize:            config.DefaultChunkSize,
		ChunkOverlap:         config.DefaultChunkOverlap,
		TopK:                 config.DefaultTopK,
		EmbeddingBatchSize:   config.DefaultEmbeddingBatchSize,
		EmbeddingParallelism: config.DefaultEmbeddingParallelism,
		RequestTimeout:       config.DefaultRequestTTL,
	}
}

type service struct {
	deps   Dependencies
	opts   Options
	logger *logger_i.Logger
}

func NewService(deps Dependencies, opts Options) Service {
	return &service{
		deps:   deps,
		opts:   opts,
		logger: logger_i.NewLogger("rag_service"),
	}
}

func (s *service) IngestDocument(ctx context.Context, req IngestRequest) (doc commonModels.Document, err error) {
	start := time.Now()
	defer func() { s.finishFlow(flowModel.FlowIngest, start, err, false) }()

	if strings.TrimSpace(req.Filename) == "" {
		return commonModels.Document{}, ragErrors.Validation("No selected file")
	}
	if len(req.Content) == 0 {
		return commonModels.Document{}, ragErrors.Validation("Uploaded file is empty.")
	}

	id := req.DocumentId
	if id == "" {
		id = utils.GetNewUUID()
	}
	if err = vectorDB.ValidateId(id); err != nil {
		return commonModels.Document{}, err
	}

	doc, err = ingest.ProcessDocumentIngestion(ctx, ingest.Params{
		DocumentId:  id,
		Filename:    req.Filename,
		Content:     req.Content,
		ChunkSize:   s.opts.ChunkSize,
		Overlap:     s.opts.ChunkOverlap,
		BatchSize:   s.opts.EmbeddingBatchSize,
		Parallelism: s.opts.EmbeddingParallelism,
	}, s.deps.Embedder, s.deps.Store)
	if err != nil {
		return commonModels.Document{}, err
	}
	metrics.IncrementDocumentsIngested()
	s.forgetCachedAnswers(ctx, id)

	doc.ArchivePath = s.archiveUpload(ctx, id, req.Filename, req.Content)
	s.logger.WithContext(ctx).Info("Document ingested", "documentId", id, "chunks", doc.ChunkCount)
	return doc, nil
}

func (s *service) Answer(ctx context.Context, q commonModels.QueryContext) (result commonModels.AnswerResult, err error) {
	start := time.Now()
	defer func() { s.finishFlow(flowModel.FlowAnswer, start, err, len(result.Degraded) > 0) }()

	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return result, ragErrors.Validation("No question provided.")
	}
	if err = vectorDB.ValidateId(q.DocumentId); err != nil {
		return result, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	log := s.logger.WithContext(ctx).With("documentId", q.DocumentId)
	logStage(log, flowModel.Received)

	handle, err := s.executeIndexLoadStep(ctx, log, q.DocumentId)
	if err != nil {
		return result, err
	}

	query, err := s.executeQueryEmbeddingStep(ctx, log, q.Question, handle)
	if err != nil {
		return result, err
	}

	// image and emotion answers depend on more than the question
	cacheable := s.deps.AnswerCache != nil && len(q.Image) == 0 && q.EmotionHint == ""

	answer, hit := "", false
	if cacheable {
		answer, hit = s.executeCacheLookupStep(ctx, log, q.DocumentId, query)
	}
	if !hit {
		chunks := s.executeRetrievalStep(log, handle, query)

		answer, err = s.executeAnswerStep(ctx, log, q, chunks)
		if err != nil {
			return result, err
		}
		if cacheable {
			s.executeCacheSaveStep(ctx, log, q.DocumentId, query, answer)
		}
	}
	result.Text = answer

	if len(q.Image) > 0 {
		s.executeVisionFusionStep(ctx, log, q, &result)
	}

	if !q.TextOnly {
		s.executeSpeechStep(ctx, log, &result)
	}

	logStage(log, flowModel.Responded)
	return result, nil
}

func (s *service) AnalyzeImage(ctx context.Context, req ImageRequest) (result commonModels.AnswerResult, err error) {
	start := time.Now()
	defer func() { s.finishFlow(flowModel.FlowAnalyze, start, err, len(result.Degraded) > 0) }()

	if strings.TrimSpace(req.Filename) == "" {
		return result, ragErrors.Validation("No selected file")
	}
	if !vision.IsAllowedImage(req.Filename) {
		return result, ragErrors.Validation("Unsupported file type")
	}
	if len(req.Image) == 0 {
		return result, ragErrors.Validation("No image uploaded")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	log := s.logger.WithContext(ctx).With("filename", req.Filename)
	logStage(log, flowModel.Validated)

	if s.deps.Vision == nil {
		return result, ragErrors.ExternalMessage(ragErrors.StageVision, "no vision model is configured")
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = vision.DefaultDescriptionPrompt
	}

	fused, err := s.executeVisionStep(ctx, req.Image, vision.MimeTypeFor(req.Filename, req.Image), prompt)
	if err != nil {
		log.Error("Image analysis failed", "error", err)
		return result, err
	}
	logStage(log, flowModel.MoodClassified, "mood", fused.Mood)
	logStage(log, flowModel.Described)

	result.Text = fused.Description
	result.Mood = fused.Mood

	s.executeSpeechStep(ctx, log, &result)

	logStage(log, flowModel.Responded)
	return result, nil
}

func (s *service) ListDocuments(ctx context.Context) (ids []string, err error) {
	start := time.Now()
	defer func() { s.finishFlow(flowModel.FlowListDocs, start, err, false) }()

	ids, err = s.deps.Store.List(ctx)
	if err != nil {
		s.logger.WithContext(ctx).Error("Error fetching documents", "error", err)
		return nil, ragErrors.Persistence("list", err)
	}
	return ids, nil
}

func (s *service) DeleteDocument(ctx context.Context, id string) error {
	if err := vectorDB.ValidateId(id); err != nil {
		return err
	}
	if err := s.deps.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.forgetCachedAnswers(ctx, id)
	s.logger.WithContext(ctx).Info("Document deleted", "documentId", id)
	return nil
}
