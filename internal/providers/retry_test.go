package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyEmbedder struct {
	failures int
	calls    int
	err      error
	dim      int
}

func (f *flakyEmbedder) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, ProviderInfo{Name: "flaky"}, f.err
	}
	out := make([][]float32, len(req.Inputs))
	for i := range out {
		out[i] = make([]float32, f.dim)
		out[i][0] = 1
	}
	return out, ProviderInfo{Name: "flaky"}, nil
}

type failingLLM struct {
	calls int
	err   error
}

func (f *failingLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	f.calls++
	return GenerateResponse{}, ProviderInfo{Name: "failing"}, f.err
}

func testPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryingEmbedderRecoversFromTransient(t *testing.T) {
	inner := &flakyEmbedder{failures: 2, err: errors.New("connection reset by peer"), dim: 4}
	r := NewRetryingEmbedder(inner, testPolicy(3))

	vectors, _, err := r.Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}, Dimension: 4})
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingEmbedderExhaustsAttempts(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: errors.New("rate limit exceeded"), dim: 4}
	r := NewRetryingEmbedder(inner, testPolicy(3))

	_, _, err := r.Embed(context.Background(), EmbedRequest{Inputs: []string{"a"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbeddingUnavailable))
	assert.Equal(t, 3, inner.calls)
}

func TestRetryingEmbedderFailsFastOnPermanent(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, err: errors.New("status 401: unauthorized"), dim: 4}
	r := NewRetryingEmbedder(inner, testPolicy(5))

	_, _, err := r.Embed(context.Background(), EmbedRequest{Inputs: []string{"a"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbeddingUnavailable))
	assert.Equal(t, 1, inner.calls, "permanent errors must not be retried")
}

func TestRetryingLLMExhaustsAttempts(t *testing.T) {
	inner := &failingLLM{err: errors.New("status 503: service unavailable")}
	r := NewRetryingLLM(inner, testPolicy(2))

	_, _, err := r.Generate(context.Background(), GenerateRequest{Operation: "score_clause", Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGenerationUnavailable))
	assert.Equal(t, 2, inner.calls)
}

func TestRetryingLLMStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inner := &failingLLM{err: errors.New("timeout while waiting")}
	r := NewRetryingLLM(inner, testPolicy(5))

	_, _, err := r.Generate(ctx, GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGenerationUnavailable))
	assert.LessOrEqual(t, inner.calls, 2)
}
