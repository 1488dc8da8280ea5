package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/customHttpClient"
	"github.com/akolanti/DocTalk/internal/data/redisStore"
	"github.com/akolanti/DocTalk/internal/data/store"
	"github.com/akolanti/DocTalk/internal/rag"
	"github.com/akolanti/DocTalk/internal/rag/embedding"
	"github.com/akolanti/DocTalk/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/DocTalk/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/DocTalk/internal/rag/llm"
	"github.com/akolanti/DocTalk/internal/rag/llm/gemini"
	"github.com/akolanti/DocTalk/internal/rag/llm/openaiLLM"
	"github.com/akolanti/DocTalk/internal/rag/speech"
	"github.com/akolanti/DocTalk/internal/rag/speech/lipsync"
	"github.com/akolanti/DocTalk/internal/rag/vectorDB"
	"github.com/akolanti/DocTalk/internal/rag/vectorDB/fileDB"
	"github.com/akolanti/DocTalk/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/DocTalk/internal/rag/vision"
	geminiVision "github.com/akolanti/DocTalk/internal/rag/vision/gemini"
	"github.com/akolanti/DocTalk/internal/retry"
	"github.com/akolanti/DocTalk/internal/storage"
	"github.com/akolanti/DocTalk/pkg/logger_i"
)

// buildService creates every adapter named by cfg. Remote clients shut down when
// serviceContext is cancelled.
func buildService(serviceContext context.Context, cfg *config.Config) (rag.Service, error) {
	logger := logger_i.NewLogger("wiring")
	httpClient := customHttpClient.NewPooledClient(0)
	policy := retry.NewPolicy(cfg.RemoteMaxRetries)

	indexStore, err := buildIndexStore(serviceContext, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(serviceContext, cfg)
	if err != nil {
		return nil, err
	}
	embedder = embedding.NewCachedEmbedder(embedder, store.GetEmbeddingCache(serviceContext, redisStore.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}, cfg.EmbeddingCacheTTL, cfg.EmbeddingCacheSize))
	embedder = embedding.WithRetry(embedder, policy)

	chat, err := buildChatProvider(serviceContext, cfg)
	if err != nil {
		return nil, err
	}
	chat = llm.WithRetry(chat, policy)

	deps := rag.Dependencies{
		Store:    indexStore,
		Embedder: embedder,
		Answerer: llm.NewSynthesizer(chat, cfg.ChatTemperature),
	}

	if qs, ok := indexStore.(*qdrantDB.Store); ok && cfg.SemanticCache {
		deps.AnswerCache = qdrantDB.NewSemanticCache(qs.QObj, config.SemanticCacheCollection, cfg.SemanticCacheCutoff)
	}

	if cfg.HasVision() {
		analyzer, err := geminiVision.NewVisionClient(serviceContext, cfg.VisionModel, cfg.GeminiAPIKey, httpClient)
		if err != nil {
			logger.Warn("vision client unavailable, image answers will be degraded", "error", err)
		} else {
			deps.Vision = vision.NewFusion(vision.WithRetry(analyzer, policy))
		}
	} else {
		logger.Info("GEMINI_API_KEY not set, image answers will be degraded")
	}

	if cfg.HasSpeech() {
		var synth speech.Synthesizer = lipsync.NewClient(lipsync.Config{
			URL:      cfg.LipSyncURL,
			APIKey:   cfg.LipSyncAPIKey,
			VoiceID:  cfg.LipSyncVoiceID,
			Gender:   cfg.LipSyncGender,
			Language: cfg.LipSyncLanguage,
		}, httpClient)
		deps.Speech = speech.WithRetry(synth, policy)
	} else {
		logger.Info("LIPSYNC_URL not set, answers will carry no audio")
	}

	archive, err := buildArchive(serviceContext, cfg)
	if err != nil {
		logger.Warn("upload archive unavailable, uploads will not be kept", "error", err)
	} else if archive != nil {
		deps.Archive = archive
	}

	return rag.NewService(deps, rag.Options{
		ChunkSize:            cfg.ChunkSize,
		ChunkOverlap:         cfg.ChunkOverlap,
		TopK:                 cfg.TopK,
		EmbeddingBatchSize:   cfg.EmbeddingBatchSize,
		EmbeddingParallelism: cfg.EmbeddingParallelism,
		RequestTimeout:       cfg.RequestTimeout,
	}), nil
}

func buildIndexStore(ctx context.Context, cfg *config.Config) (vectorDB.IndexStore, error) {
	switch cfg.IndexBackend {
	case config.BackendQdrant:
		s := qdrantDB.GetQuadrantClient(ctx, qdrantDB.Config{
			Host:   cfg.QdrantHost,
			Port:   cfg.QdrantPort,
			APIKey: cfg.QdrantAPIKey,
			UseTLS: cfg.QdrantUseTLS,
		})
		if s == nil {
			return nil, errors.New("qdrant is unreachable")
		}
		return s, nil
	default:
		return fileDB.NewStore(cfg.IndexRoot)
	}
}

func openaiConfig(cfg *config.Config) openaiEmbedding.Config {
	return openaiEmbedding.Config{
		APIKey:          cfg.OpenAIAPIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		AzureEndpoint:   cfg.AzureEndpoint,
		AzureAPIKey:     cfg.AzureAPIKey,
		AzureAPIVersion: cfg.AzureAPIVersion,
		Model:           cfg.EmbeddingModel,
		Dimensions:      cfg.EmbeddingDimensions,
		BatchSize:       cfg.EmbeddingBatchSize,
	}
}

func buildEmbedder(ctx context.Context, cfg *config.Config) (embedding.Embedder, error) {
	httpClient := customHttpClient.NewPooledClient(0)
	switch cfg.EmbeddingProvider {
	case config.ProviderGoogle:
		e := googleEmbedding.GetGoogleEmbeddingClient(ctx, googleEmbedding.Config{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: int32(cfg.EmbeddingDimensions),
			BatchSize:  cfg.EmbeddingBatchSize,
		}, httpClient)
		if e == nil {
			return nil, errors.New("google embedding client could not be created")
		}
		return e, nil
	default:
		return openaiEmbedding.NewClient(openaiConfig(cfg), httpClient), nil
	}
}

func buildChatProvider(ctx context.Context, cfg *config.Config) (llm.ChatProvider, error) {
	httpClient := customHttpClient.NewPooledClient(0)
	switch cfg.ChatProvider {
	case config.ProviderGemini:
		p := gemini.GetGeminiClient(ctx, cfg.ChatModel, cfg.GeminiAPIKey, httpClient)
		if p == nil {
			return nil, errors.New("gemini client could not be created")
		}
		return p, nil
	default:
		return openaiLLM.NewClient(openaiConfig(cfg), cfg.ChatModel, httpClient), nil
	}
}

// buildArchive returns nil, nil when archiving is switched off.
func buildArchive(ctx context.Context, cfg *config.Config) (storage.Archive, error) {
	switch cfg.ArchiveBackend {
	case config.ArchiveNone:
		return nil, nil
	case config.ArchiveS3:
		a, err := storage.NewS3Archive(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 archive: %w", err)
		}
		if err := a.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return a, nil
	default:
		return storage.NewLocalArchive(cfg.UploadRoot)
	}
}
