package speech

import (
	"context"

	"github.com/akolanti/DocTalk/internal/domain/commonModels"
	"github.com/akolanti/DocTalk/internal/retry"
)

// Speech is synthesized audio with its mouth-shape timeline.
type Speech struct {
	Audio   []byte
	Visemes []commonModels.Viseme
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Speech, error)
}

type retryingSynthesizer struct {
	inner  Synthesizer
	policy retry.Policy
}

func WithRetry(s Synthesizer, policy retry.Policy) Synthesizer {
	if !policy.Enabled() {
		return s
	}
	return &retryingSynthesizer{inner: s, policy: policy}
}

func (r *retryingSynthesizer) Synthesize(ctx context.Context, text string) (Speech, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) (Speech, error) {
		return r.inner.Synthesize(ctx, text)
	})
}
