package openaiEmbedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/rag/embedding"
	"github.com/akolanti/DocTalk/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

type Config struct {
	APIKey          string
	BaseURL         string
	AzureEndpoint   string
	AzureAPIKey     string
	AzureAPIVersion string
	Model           string
	Dimensions      int
	BatchSize       int
}

type client struct {
	api        openai.Client
	model      string
	dimensions int
	batchSize  int
	logger     *logger_i.Logger
}

// RequestOptions builds the shared OpenAI or Azure OpenAI client options. The
// SDK's own retries are disabled, retrying is a deployment policy.
func RequestOptions(cfg Config, httpClient *http.Client) []option.RequestOption {
	opts := []option.RequestOption{option.WithMaxRetries(0)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if cfg.AzureEndpoint != "" {
		apiVersion := cfg.AzureAPIVersion
		if apiVersion == "" {
			apiVersion = config.DefaultAzureAPIVersion
		}
		return append(opts,
			azure.WithEndpoint(cfg.AzureEndpoint, apiVersion),
			azure.WithAPIKey(cfg.AzureAPIKey),
		)
	}
	opts = append(opts, option.WithAPIKey(cfg.APIKey))
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return opts
}

func NewClient(cfg Config, httpClient *http.Client) embedding.Embedder {
	c := &client{
		api:        openai.NewClient(RequestOptions(cfg, httpClient)...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
		logger:     logger_i.NewLogger("openai_embedding"),
	}
	if c.model == "" {
		c.model = config.OpenAIEmbeddingModel
	}
	if c.batchSize <= 0 {
		c.batchSize = config.DefaultEmbeddingBatchSize
	}
	return c
}

func (c *client) Model() string {
	return c.model
}

func (c *client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	log := c.logger.WithContext(ctx)
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			log.Error("Error getting Embeddings from OpenAI", "error", err, "batchStart", start)
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if c.dimensions > 0 {
		params.Dimensions = openai.Int(int64(c.dimensions))
	}

	resp, err := c.api.Embeddings.New(ctx, params)
	if err != nil {
		return nil, ragErrors.External(ragErrors.StageEmbedding, err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(vectors) {
			return nil, ragErrors.External(ragErrors.StageEmbedding, fmt.Errorf("embedding index %d out of range", d.Index))
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}
	if err := embedding.CheckVectors(vectors, len(texts)); err != nil {
		return nil, err
	}
	return vectors, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
