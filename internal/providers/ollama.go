package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// OllamaProvider embeds against a local Ollama daemon. Useful when the
// regulation corpus cannot leave the machine.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewOllamaProvider() *OllamaProvider {
	base := os.Getenv("CLAUSECHECK_OLLAMA_BASE_URL")
	if base == "" {
		base = "http://localhost:11434"
	}
	model := os.Getenv("CLAUSECHECK_OLLAMA_EMBED_MODEL")
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		baseURL: base,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *OllamaProvider) info() ProviderInfo {
	return ProviderInfo{Name: "ollama", Model: p.model}
}

func (p *OllamaProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	payload := map[string]any{
		"model": p.model,
		"input": req.Inputs,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, p.info(), fmt.Errorf("ollama: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(raw))
	if err != nil {
		return nil, p.info(), fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, p.info(), fmt.Errorf("ollama: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.info(), fmt.Errorf("ollama: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, p.info(), fmt.Errorf("ollama: status %d: %s", resp.StatusCode, truncateBody(body))
	}
	var parsed struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, p.info(), fmt.Errorf("ollama: decode response: %w", err)
	}
	if len(parsed.Embeddings) != len(req.Inputs) {
		return nil, p.info(), fmt.Errorf("ollama: got %d embeddings for %d inputs", len(parsed.Embeddings), len(req.Inputs))
	}
	return parsed.Embeddings, p.info(), nil
}
