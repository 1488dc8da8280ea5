package embedding

import (
	"context"
	"fmt"

	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/akolanti/DocTalk/internal/retry"
)

// Embedder returns one vector per input text, in input order. Adapters make a
// single attempt per remote call and report failures as embedding stage errors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Purpose tells providers with asymmetric models which side of retrieval a
// text is on. Texts are embedded as PurposeDocument unless marked otherwise.
type Purpose string

const (
	PurposeDocument Purpose = "document"
	PurposeQuery    Purpose = "query"
)

type purposeKey struct{}

func WithPurpose(ctx context.Context, p Purpose) context.Context {
	return context.WithValue(ctx, purposeKey{}, p)
}

func PurposeFrom(ctx context.Context) Purpose {
	if p, ok := ctx.Value(purposeKey{}).(Purpose); ok {
		return p
	}
	return PurposeDocument
}

// EmbedOne embeds a single search query.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vectors, err := e.Embed(WithPurpose(ctx, PurposeQuery), []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, ragErrors.External(ragErrors.StageEmbedding, fmt.Errorf("expected 1 vector, got %d", len(vectors)))
	}
	return vectors[0], nil
}

// CheckVectors validates a provider response against the request size.
func CheckVectors(vectors [][]float32, want int) error {
	if len(vectors) != want {
		return ragErrors.External(ragErrors.StageEmbedding, fmt.Errorf("expected %d vectors, got %d", want, len(vectors)))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return ragErrors.External(ragErrors.StageEmbedding, fmt.Errorf("empty vector at position %d", i))
		}
	}
	return nil
}

type retryingEmbedder struct {
	inner  Embedder
	policy retry.Policy
}

func WithRetry(e Embedder, policy retry.Policy) Embedder {
	if !policy.Enabled() {
		return e
	}
	return &retryingEmbedder{inner: e, policy: policy}
}

func (r *retryingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) ([][]float32, error) {
		return r.inner.Embed(ctx, texts)
	})
}

func (r *retryingEmbedder) Model() string {
	return r.inner.Model()
}
