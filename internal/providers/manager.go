package providers

import (
	"fmt"
	"log"
)

// Manager holds the configured provider chains. Order in the env list
// is preference order; callers start at index 0 and fail over.
type Manager struct {
	llms      []LLMProvider
	llmRefs   []ProviderRef
	embeds    []EmbeddingProvider
	embedRefs []ProviderRef
}

// NewManager builds provider chains from pipe-separated lists such as
// "groq:primary|openai|mock". Entries that fail to construct (missing
// key and so on) are logged and skipped rather than aborting startup.
func NewManager(llmList, embedList string, embedDim int) (*Manager, error) {
	m := &Manager{}

	llmRefs, err := ParseProviderList(llmList)
	if err != nil {
		return nil, fmt.Errorf("parse llm providers: %w", err)
	}
	for _, ref := range llmRefs {
		p, err := buildLLM(ref, embedDim)
		if err != nil {
			log.Printf("skipping llm provider %s: %v", ref, err)
			continue
		}
		m.llms = append(m.llms, p)
		m.llmRefs = append(m.llmRefs, ref)
	}

	embedRefs, err := ParseProviderList(embedList)
	if err != nil {
		return nil, fmt.Errorf("parse embed providers: %w", err)
	}
	for _, ref := range embedRefs {
		p, err := buildEmbedder(ref, embedDim)
		if err != nil {
			log.Printf("skipping embed provider %s: %v", ref, err)
			continue
		}
		m.embeds = append(m.embeds, p)
		m.embedRefs = append(m.embedRefs, ref)
	}

	if len(m.llms) == 0 {
		return nil, fmt.Errorf("no usable llm providers in %q", llmList)
	}
	if len(m.embeds) == 0 {
		return nil, fmt.Errorf("no usable embedding providers in %q", embedList)
	}
	return m, nil
}

func buildLLM(ref ProviderRef, embedDim int) (LLMProvider, error) {
	switch ref.Name {
	case "mock":
		return NewMockProvider(embedDim), nil
	case "openai":
		return NewOpenAIProvider(ref.Alias)
	case "groq":
		return NewGroqProvider(ref.Alias)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", ref.Name)
	}
}

func buildEmbedder(ref ProviderRef, embedDim int) (EmbeddingProvider, error) {
	switch ref.Name {
	case "mock":
		return NewMockProvider(embedDim), nil
	case "openai":
		return NewOpenAIProvider(ref.Alias)
	case "ollama":
		return NewOllamaProvider(), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", ref.Name)
	}
}

func (m *Manager) LLMCount() int   { return len(m.llms) }
func (m *Manager) EmbedCount() int { return len(m.embeds) }

func (m *Manager) LLMByIndex(i int) (LLMProvider, ProviderRef, bool) {
	if i < 0 || i >= len(m.llms) {
		return nil, ProviderRef{}, false
	}
	return m.llms[i], m.llmRefs[i], true
}

func (m *Manager) EmbedderByIndex(i int) (EmbeddingProvider, ProviderRef, bool) {
	if i < 0 || i >= len(m.embeds) {
		return nil, ProviderRef{}, false
	}
	return m.embeds[i], m.embedRefs[i], true
}

// FirstLLM returns the most-preferred generation provider.
func (m *Manager) FirstLLM() LLMProvider { return m.llms[0] }

// FirstEmbedder returns the most-preferred embedding provider.
func (m *Manager) FirstEmbedder() EmbeddingProvider { return m.embeds[0] }
