package openaiLLM

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/DocTalk/internal/rag/llm"
	"github.com/akolanti/DocTalk/pkg/logger_i"
	"github.com/openai/openai-go"
)

type client struct {
	api    openai.Client
	model  string
	logger *logger_i.Logger
}

// NewClient talks to OpenAI, or to an Azure OpenAI deployment named model when
// cfg.AzureEndpoint is set.
func NewClient(cfg openaiEmbedding.Config, model string, httpClient *http.Client) llm.ChatProvider {
	if model == "" {
		model = config.OpenAIChatModel
	}
	return &client{
		api:    openai.NewClient(openaiEmbedding.RequestOptions(cfg, httpClient)...),
		model:  model,
		logger: logger_i.NewLogger("llm_openai"),
	}
}

func (c *client) Chat(ctx context.Context, req llm.ChatRequest) (string, error) {
	log := c.logger.WithContext(ctx)

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.User))

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(float64(req.Temperature)),
	})
	if err != nil {
		log.Error("OpenAI chat completion failed", "error", err)
		return "", ragErrors.External(ragErrors.StageAnswer, err)
	}
	if len(resp.Choices) == 0 {
		return "", ragErrors.External(ragErrors.StageAnswer, errors.New("no choices in completion"))
	}
	return resp.Choices[0].Message.Content, nil
}
