package llm

import (
	"context"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/retry"
)

type ChatRequest struct {
	System      string
	User        string
	Temperature float32
}

// ChatProvider is a remote chat completion model.
type ChatProvider interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// Answerer produces the grounded answer for a question.
type Answerer interface {
	Answer(ctx context.Context, question string, chunks []commonModels.ScoredChunk, emotionHint string) (string, error)
}

type retryingProvider struct {
	inner  ChatProvider
	policy retry.Policy
}

func WithRetry(p ChatProvider, policy retry.Policy) ChatProvider {
	if !policy.Enabled() {
		return p
	}
	return &retryingProvider{inner: p, policy: policy}
}

func (r *retryingProvider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.inner.Chat(ctx, req)
	})
}
