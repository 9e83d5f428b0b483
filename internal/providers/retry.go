package providers

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryPolicy governs retries of provider calls. Only rate and
// transient failures are retried; quota, auth and parse problems fail
// fast because repetition cannot fix them.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 10 * time.Second}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 3
	}
	return p.MaxAttempts
}

func (p RetryPolicy) run(ctx context.Context, op func() error) error {
	delay := p.BaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}
	var err error
	for attempt := 1; ; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !Retryable(err) || attempt >= p.attempts() {
			return err
		}
		sleep := delay + time.Duration(rand.Int63n(int64(delay/2)+1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// RetryingEmbedder wraps an EmbeddingProvider with the retry policy.
// Once attempts are exhausted the error is wrapped in
// ErrEmbeddingUnavailable so callers can match it with errors.Is.
type RetryingEmbedder struct {
	inner  EmbeddingProvider
	policy RetryPolicy
}

func NewRetryingEmbedder(inner EmbeddingProvider, policy RetryPolicy) *RetryingEmbedder {
	return &RetryingEmbedder{inner: inner, policy: policy}
}

func (r *RetryingEmbedder) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	var (
		vectors [][]float32
		info    ProviderInfo
	)
	err := r.policy.run(ctx, func() error {
		var callErr error
		vectors, info, callErr = r.inner.Embed(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, info, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	return vectors, info, nil
}

// RetryingLLM wraps an LLMProvider the same way, surfacing
// ErrGenerationUnavailable on exhaustion.
type RetryingLLM struct {
	inner  LLMProvider
	policy RetryPolicy
}

func NewRetryingLLM(inner LLMProvider, policy RetryPolicy) *RetryingLLM {
	return &RetryingLLM{inner: inner, policy: policy}
}

func (r *RetryingLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	var (
		resp GenerateResponse
		info ProviderInfo
	)
	err := r.policy.run(ctx, func() error {
		var callErr error
		resp, info, callErr = r.inner.Generate(ctx, req)
		return callErr
	})
	if err != nil {
		return GenerateResponse{}, info, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	return resp, info, nil
}
