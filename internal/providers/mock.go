package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// MockProvider is a deterministic stand-in for real vendors. Embeddings
// are derived from a hash of the input text, so the same text always
// maps to the same unit vector. Generation returns a canned verdict
// payload that the scoring parser accepts.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) info() ProviderInfo {
	return ProviderInfo{Name: "mock", Model: "mock-deterministic"}
}

func (m *MockProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, m.info(), err
	}
	dim := req.Dimension
	if dim <= 0 {
		dim = m.dim
	}
	out := make([][]float32, len(req.Inputs))
	for i, text := range req.Inputs {
		out[i] = hashVector(text, dim)
	}
	return out, m.info(), nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	if err := ctx.Err(); err != nil {
		return GenerateResponse{}, m.info(), err
	}
	if req.Operation == "score_clause" {
		citations := "[]"
		if len(req.Context) > 0 {
			citations = "[1]"
		}
		text := fmt.Sprintf(`{"verdict":"ambiguous","confidence":0.5,"citations":%s,"rationale":"Deterministic mock assessment based on the provided regulation context."}`, citations)
		return GenerateResponse{Text: text}, m.info(), nil
	}
	return GenerateResponse{Text: "Mock response."}, m.info(), nil
}

// hashVector expands a sha256 digest of the text into dim floats and
// normalizes the result to unit length.
func hashVector(text string, dim int) []float32 {
	v := make([]float32, dim)
	seed := sha256.Sum256([]byte(text))
	buf := seed[:]
	for i := 0; i < dim; i++ {
		if i%len(buf) == 0 && i > 0 {
			next := sha256.Sum256(buf)
			buf = next[:]
		}
		word := binary.BigEndian.Uint32(buf[(i*4)%(len(buf)-3):][:4])
		v[i] = float32(word%2000)/1000.0 - 1.0
	}
	return normalizeUnit(v)
}

func normalizeUnit(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
