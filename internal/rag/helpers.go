package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/domain/flowModel"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/metrics"
	"github.com/akolanti/DocTalk/internal/rag/embedding"
	"github.com/akolanti/DocTalk/internal/rag/llm"
	"github.com/akolanti/DocTalk/internal/rag/vectorDB"
	"github.com/akolanti/DocTalk/internal/rag/vision"
	"github.com/akolanti/DocTalk/internal/telemetry"
	"github.com/akolanti/DocTalk/pkg/logger_i"
)

func logStage(log *logger_i.Logger, stage flowModel.Stage, args ...any) {
	log.Debug("Processing request", append([]any{"stage", stage}, args...)...)
}

func (s *service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.RequestTimeout)
}

func (s *service) finishFlow(flow flowModel.Flow, start time.Time, err error, degraded bool) {
	status := flowModel.StatusOK
	switch {
	case err != nil:
		status = flowModel.StatusFailed
	case degraded:
		status = flowModel.StatusDegraded
	}
	metrics.CaptureFlowMetrics(string(flow), status, time.Since(start))
}

// degrade keeps the response going without an enrichment stage.
func (s *service) degrade(ctx context.Context, log *logger_i.Logger, result *commonModels.AnswerResult, stage string, err error) {
	log.Warn("Enrichment stage failed, responding without it", "stage", stage, "error", err)
	result.MarkDegraded(stage)
	metrics.IncrementDegraded(stage)
	telemetry.Degraded(ctx, stage, err)
}

func (s *service) archiveUpload(ctx context.Context, id string, filename string, content []byte) string {
	if s.deps.Archive == nil {
		return ""
	}
	location, err := s.deps.Archive.Put(ctx, id, filename, content)
	if err != nil {
		s.logger.WithContext(ctx).Warn("Failed to archive upload", "documentId", id, "error", err)
		return ""
	}
	return location
}

func (s *service) executeIndexLoadStep(ctx context.Context, log *logger_i.Logger, id string) (*vectorDB.IndexHandle, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("index_load", time.Since(start)) }()

	handle, err := s.deps.Store.Load(ctx, id)
	if err != nil {
		if !ragErrors.IsNotFound(err) {
			log.Error("Error loading index", "error", err)
		}
		return nil, err
	}
	logStage(log, flowModel.IndexLoaded, "chunks", len(handle.Chunks))
	return handle, nil
}

func (s *service) executeQueryEmbeddingStep(ctx context.Context, log *logger_i.Logger, question string, handle *vectorDB.IndexHandle) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics(ragErrors.StageEmbedding, time.Since(start)) }()

	query, err := embedding.EmbedOne(ctx, s.deps.Embedder, question)
	if err != nil {
		log.Error("Error embedding question", "error", err)
		return nil, ragErrors.External(ragErrors.StageEmbedding, err)
	}
	if handle.Dimension != 0 && len(query) != handle.Dimension {
		return nil, ragErrors.External(ragErrors.StageEmbedding,
			fmt.Errorf("query vector has %d dimensions, index %s has %d", len(query), handle.DocumentId, handle.Dimension))
	}
	logStage(log, flowModel.QueryEmbedded)
	return query, nil
}

func (s *service) executeRetrievalStep(log *logger_i.Logger, handle *vectorDB.IndexHandle, query []float32) []commonModels.ScoredChunk {
	chunks := vectorDB.TopK(handle, query, s.opts.TopK)
	logStage(log, flowModel.Retrieved, "matches", len(chunks))
	return chunks
}

func (s *service) executeCacheLookupStep(ctx context.Context, log *logger_i.Logger, documentId string, query []float32) (string, bool) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("answer_cache", time.Since(start)) }()

	answer, hit, err := s.deps.AnswerCache.Lookup(ctx, documentId, query)
	if err != nil {
		log.Warn("answer cache lookup failed, answering normally", "error", err)
		return "", false
	}
	metrics.CaptureAnswerCacheLookup(hit)
	if hit {
		logStage(log, flowModel.CacheHit)
	}
	return answer, hit
}

func (s *service) executeCacheSaveStep(ctx context.Context, log *logger_i.Logger, documentId string, query []float32, answer string) {
	if err := s.deps.AnswerCache.Save(ctx, documentId, query, answer); err != nil {
		log.Warn("could not cache answer", "error", err)
	}
}

// forgetCachedAnswers drops answers computed against a previous index of id.
func (s *service) forgetCachedAnswers(ctx context.Context, id string) {
	if s.deps.AnswerCache == nil {
		return
	}
	if err := s.deps.AnswerCache.Forget(ctx, id); err != nil {
		s.logger.WithContext(ctx).Warn("could not clear cached answers", "documentId", id, "error", err)
	}
}

func (s *service) executeAnswerStep(ctx context.Context, log *logger_i.Logger, q commonModels.QueryContext, chunks []commonModels.ScoredChunk) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics(ragErrors.StageAnswer, time.Since(start)) }()

	answer, err := s.deps.Answerer.Answer(ctx, q.Question, chunks, q.EmotionHint)
	if err != nil {
		log.Error("Error generating answer", "error", err)
		return "", ragErrors.External(ragErrors.StageAnswer, err)
	}
	logStage(log, flowModel.Answered)
	return answer, nil
}

func (s *service) executeVisionStep(ctx context.Context, image []byte, mimeType string, prompt string) (vision.VisionResult, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics(ragErrors.StageVision, time.Since(start)) }()

	result, err := s.deps.Vision.Analyze(ctx, image, mimeType, prompt)
	if err != nil {
		return vision.VisionResult{}, ragErrors.External(ragErrors.StageVision, err)
	}
	return result, nil
}

// executeVisionFusionStep appends the image description to the answer. The
// description prompt is the question, emotion included.
func (s *service) executeVisionFusionStep(ctx context.Context, log *logger_i.Logger, q commonModels.QueryContext, result *commonModels.AnswerResult) {
	if s.deps.Vision == nil {
		s.degrade(ctx, log, result, ragErrors.StageVision, ragErrors.ExternalMessage(ragErrors.StageVision, "no vision model is configured"))
		return
	}

	mimeType := q.ImageMimeType
	if mimeType == "" {
		mimeType = vision.DetectMimeType(q.Image)
	}

	fused, err := s.executeVisionStep(ctx, q.Image, mimeType, llm.EmotionQuestion(q.Question, q.EmotionHint))
	if err != nil {
		s.degrade(ctx, log, result, ragErrors.StageVision, err)
		return
	}
	result.Text = strings.TrimSpace(result.Text + " " + fused.Description)
	result.Mood = fused.Mood
	logStage(log, flowModel.VisionFused, "mood", fused.Mood)
}

func (s *service) executeSpeechStep(ctx context.Context, log *logger_i.Logger, result *commonModels.AnswerResult) {
	if s.deps.Speech == nil {
		s.degrade(ctx, log, result, ragErrors.StageSpeech, ragErrors.ExternalMessage(ragErrors.StageSpeech, "no speech service is configured"))
		return
	}

	start := time.Now()
	out, err := s.deps.Speech.Synthesize(ctx, result.Text)
	metrics.CaptureExecutionMetrics(ragErrors.StageSpeech, time.Since(start))
	if err != nil {
		s.degrade(ctx, log, result, ragErrors.StageSpeech, err)
		return
	}
	result.Audio = out.Audio
	result.Visemes = out.Visemes
	logStage(log, flowModel.Spoken, "visemes", len(out.Visemes))
}
