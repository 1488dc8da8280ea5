package googleEmbedding

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/rag/embedding"
	"github.com/akolanti/DocTalk/pkg/logger_i"
	"google.golang.org/genai"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

type Config struct {
	APIKey     string
	Model      string
	Dimensions int32
	BatchSize  int
}

type client struct {
	genAi      *genai.Client
	model      string
	dimensions *int32
	batchSize  int
}

func newGoogleEmbedder(ctx context.Context, cfg Config, httpClient *http.Client) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		return
	}

	embeddingClient = &client{
		genAi:     c,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
	}
	if cfg.Dimensions > 0 {
		dims := cfg.Dimensions
		embeddingClient.dimensions = &dims
	}
	if embeddingClient.batchSize <= 0 {
		embeddingClient.batchSize = config.DefaultEmbeddingBatchSize
	}
	logger.Info("Google Embedding client created", "model", cfg.Model)
	go closeClient(ctx)
}

func closeClient(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Google Embedding client")
}

// GetGoogleEmbeddingClient returns nil when the client cannot be created.
func GetGoogleEmbeddingClient(ctx context.Context, cfg Config, httpClient *http.Client) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, cfg, httpClient)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

func (c *client) Model() string {
	return c.model
}

func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	log := logger.WithContext(ctx)
	out := make([][]float32, 0, len(texts))

	for _, batch := range splitBatches(texts, c.batchSize) {
		res, err := c.doCall(ctx, getContent(batch))
		if err != nil {
			log.Error("Error getting Embeddings from Google", "error", err, "rateLimited", isRateLimited(err))
			return nil, ragErrors.External(ragErrors.StageEmbedding, err)
		}
		if res == nil {
			return nil, ragErrors.External(ragErrors.StageEmbedding, errors.New("empty embedding response"))
		}

		vectors := make([][]float32, 0, len(res.Embeddings))
		for _, r := range res.Embeddings {
			if r == nil {
				vectors = append(vectors, nil)
				continue
			}
			vectors = append(vectors, r.Values)
		}
		if err := embedding.CheckVectors(vectors, len(batch)); err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	log.Debug("embedded texts", "count", len(out))
	return out, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: c.dimensions,
		TaskType:             taskType(ctx),
	})
}

func taskType(ctx context.Context) string {
	if embedding.PurposeFrom(ctx) == embedding.PurposeQuery {
		return config.QueryEmbeddingTaskType
	}
	return config.EmbeddingTaskType
}
