package providers

import (
	"fmt"
	"strings"

	"github.com/corvid-labs/corpusmind/internal/config"
)

// Manager resolves the configured embedding and LLM providers. Unlike the
// ancestor's multi-provider failover pool, corpusmind names exactly one
// model per role (EMBEDDING_MODEL, LLM_CHAT_MODEL); the failover pattern
// survives inside WithRetry's backoff loop instead of a provider list.
type Manager struct {
	embed EmbeddingProvider
	llm   LLMProvider
}

func NewManager(cfg config.Config) (*Manager, error) {
	embed, err := buildEmbedProvider(cfg)
	if err != nil {
		return nil, err
	}
	llm, err := buildLLMProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{embed: embed, llm: llm}, nil
}

func (m *Manager) Embedding() EmbeddingProvider { return m.embed }
func (m *Manager) LLM() LLMProvider             { return m.llm }

func buildEmbedProvider(cfg config.Config) (EmbeddingProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.EmbedProvider)) {
	case "", "mock":
		return NewMockProvider(cfg.EmbedDim), nil
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{APIKey: cfg.OpenAIAPIKey, EmbedModel: cfg.EmbedModel}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbedProvider)
	}
}

func buildLLMProvider(cfg config.Config) (LLMProvider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.LLMProvider)) {
	case "", "mock":
		return NewMockProvider(cfg.EmbedDim), nil
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:         cfg.OpenAIAPIKey,
			ChatModel:      cfg.LLMModel,
			Temperature:    cfg.LLMTemperature,
			TopP:           cfg.LLMTopP,
			MaxOutputToken: cfg.LLMMaxOutputToken,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.LLMProvider)
	}
}
