package retry

import (
	"context"
	"time"

	"github.com/akolanti/DocTalk/internal/config"
	"github.com/akolanti/DocTalk/internal/domain/ragErrors"
	"github.com/cenkalti/backoff/v4"
)

// Policy is the uniform retry policy for remote calls. MaxRetries of zero
// means a single attempt.
type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func NewPolicy(maxRetries uint64) Policy {
	return Policy{
		MaxRetries:      maxRetries,
		InitialInterval: config.RemoteRetryInitialInterval,
		MaxInterval:     config.RemoteRetryMaxInterval,
	}
}

func (p Policy) Enabled() bool {
	return p.MaxRetries > 0
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	// bounded by the retry count and the request context, not elapsed time
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, p.MaxRetries), ctx)
}

// Do runs op until it succeeds, returns a permanent error or the policy is exhausted.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	if !p.Enabled() {
		return op(ctx)
	}

	var out T
	err := backoff.Retry(func() error {
		v, err := op(ctx)
		if err != nil {
			if ragErrors.IsPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = v
		return nil
	}, p.backOff(ctx))
	return out, err
}
