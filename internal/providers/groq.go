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

const groqChatURL = "https://api.groq.com/openai/v1/chat/completions"

// GroqProvider is generation-only. Groq exposes an OpenAI-compatible
// chat endpoint but no embedding models.
type GroqProvider struct {
	apiKey string
	alias  string
	model  string
	client *http.Client
}

func NewGroqProvider(alias string) (*GroqProvider, error) {
	key := ""
	if alias != "" {
		key = os.Getenv("CLAUSECHECK_GROQ_KEY_" + strings.ToUpper(alias))
	}
	if key == "" {
		key = os.Getenv("GROQ_API_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("groq: no API key for alias %q", alias)
	}
	model := os.Getenv("CLAUSECHECK_GROQ_MODEL")
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqProvider{
		apiKey: key,
		alias:  alias,
		model:  model,
		client: &http.Client{Timeout: 90 * time.Second},
	}, nil
}

func (p *GroqProvider) info() ProviderInfo {
	return ProviderInfo{Name: "groq", Model: p.model, Key: p.alias}
}

func (p *GroqProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	payload := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": complianceSystemPrompt},
			{"role": "user", "content": req.Prompt},
		},
		"temperature": 0,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return GenerateResponse{}, p.info(), fmt.Errorf("groq: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, groqChatURL, bytes.NewReader(raw))
	if err != nil {
		return GenerateResponse{}, p.info(), fmt.Errorf("groq: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return GenerateResponse{}, p.info(), fmt.Errorf("groq: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return GenerateResponse{}, p.info(), fmt.Errorf("groq: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return GenerateResponse{}, p.info(), fmt.Errorf("groq: status %d: %s", resp.StatusCode, truncateBody(body))
	}
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return GenerateResponse{}, p.info(), fmt.Errorf("groq: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return GenerateResponse{}, p.info(), fmt.Errorf("groq: empty choices")
	}
	return GenerateResponse{Text: parsed.Choices[0].Message.Content}, p.info(), nil
}
