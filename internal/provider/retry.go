package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jeanpaul/loci/internal/config"
)

// RetryPolicy bounds how a failed provider call is repeated. The wait
// starts at Backoff and doubles per attempt up to MaxBackoff.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// PolicyFromConfig reads the retry knobs of the generation section.
func PolicyFromConfig(g config.GenerationConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries: g.MaxRetries,
		Backoff:    g.RetryBackoff,
		MaxBackoff: g.MaxBackoff,
	}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	d := p.Backoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxBackoff > 0 && d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// Retryable reports whether err is worth another attempt: a rate limit, a
// server error, or a service that refused or dropped the connection.
// Cancellation never is.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// RetryProvider repeats failed attempts to open a stream or list models.
// Errors inside an open stream are passed through: part of the answer has
// already been delivered.
type RetryProvider struct {
	inner  Provider
	policy RetryPolicy
}

func WithRetry(p Provider, policy RetryPolicy) *RetryProvider {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &RetryProvider{inner: p, policy: policy}
}

func (r *RetryProvider) Name() string { return r.inner.Name() }

func (r *RetryProvider) ModelName() string { return r.inner.ModelName() }

func (r *RetryProvider) Models(ctx context.Context) ([]string, error) {
	return withRetry(ctx, r.policy, func() ([]string, error) {
		return r.inner.Models(ctx)
	})
}

func (r *RetryProvider) Chat(ctx context.Context, msgs []Message, opts ChatOptions) (<-chan StreamChunk, error) {
	return withRetry(ctx, r.policy, func() (<-chan StreamChunk, error) {
		return r.inner.Chat(ctx, msgs, opts)
	})
}

func withRetry[T any](ctx context.Context, policy RetryPolicy, call func() (T, error)) (T, error) {
	for attempt := 0; ; attempt++ {
		v, err := call()
		if err == nil {
			return v, nil
		}
		if attempt >= policy.MaxRetries || !Retryable(err) || ctx.Err() != nil {
			if attempt > 0 {
				err = fmt.Errorf("after %d retries: %w", attempt, err)
			}
			return v, err
		}

		timer := time.NewTimer(policy.delay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return v, err
		}
	}
}
