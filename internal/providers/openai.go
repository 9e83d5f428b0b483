package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	openaiChatURL  = "https://api.openai.com/v1/chat/completions"
	openaiEmbedURL = "https://api.openai.com/v1/embeddings"

	complianceSystemPrompt = "You are a compliance analyst. You compare contract clauses against the regulation excerpts supplied in the prompt and respond with a single JSON object, no prose, no markdown fences."
)

// OpenAIProvider speaks the OpenAI REST API for both chat completions
// and embeddings. An alias selects a keyed credential so multiple
// accounts can be rotated through the provider list.
type OpenAIProvider struct {
	apiKey     string
	alias      string
	chatModel  string
	embedModel string
	client     *http.Client
}

func NewOpenAIProvider(alias string) (*OpenAIProvider, error) {
	key := ""
	if alias != "" {
		key = os.Getenv("CLAUSECHECK_OPENAI_KEY_" + strings.ToUpper(alias))
	}
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("openai: no API key for alias %q", alias)
	}
	chatModel := os.Getenv("CLAUSECHECK_OPENAI_MODEL")
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	embedModel := os.Getenv("CLAUSECHECK_OPENAI_EMBED_MODEL")
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	return &OpenAIProvider{
		apiKey:     key,
		alias:      alias,
		chatModel:  chatModel,
		embedModel: embedModel,
		client:     &http.Client{Timeout: 90 * time.Second},
	}, nil
}

func (p *OpenAIProvider) chatInfo() ProviderInfo {
	return ProviderInfo{Name: "openai", Model: p.chatModel, Key: p.alias}
}

func (p *OpenAIProvider) embedInfo() ProviderInfo {
	return ProviderInfo{Name: "openai", Model: p.embedModel, Key: p.alias}
}

func (p *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	payload := map[string]any{
		"model": p.chatModel,
		"messages": []map[string]string{
			{"role": "system", "content": complianceSystemPrompt},
			{"role": "user", "content": req.Prompt},
		},
		"temperature": 0,
	}
	body, err := p.post(ctx, openaiChatURL, payload)
	if err != nil {
		return GenerateResponse{}, p.chatInfo(), err
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateResponse{}, p.chatInfo(), fmt.Errorf("openai: decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return GenerateResponse{}, p.chatInfo(), fmt.Errorf("openai: empty choices")
	}
	return GenerateResponse{Text: parsed.Choices[0].Message.Content}, p.chatInfo(), nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	payload := map[string]any{
		"model": p.embedModel,
		"input": req.Inputs,
	}
	if req.Dimension > 0 {
		payload["dimensions"] = req.Dimension
	}
	body, err := p.post(ctx, openaiEmbedURL, payload)
	if err != nil {
		return nil, p.embedInfo(), err
	}
	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, p.embedInfo(), fmt.Errorf("openai: decode embed response: %w", err)
	}
	if len(parsed.Data) != len(req.Inputs) {
		return nil, p.embedInfo(), fmt.Errorf("openai: got %d embeddings for %d inputs", len(parsed.Data), len(req.Inputs))
	}
	out := make([][]float32, len(req.Inputs))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, p.embedInfo(), fmt.Errorf("openai: embedding index %d out of range", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	return out, p.embedInfo(), nil
}

func (p *OpenAIProvider) post(ctx context.Context, url string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai: status %d: %s", resp.StatusCode, truncateBody(body))
	}
	return body, nil
}

func truncateBody(b []byte) string {
	const max = 300
	s := string(b)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
