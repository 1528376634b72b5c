package providers

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

type EmbedResult struct {
	Vector []float32 `json:"vector"`
	Tokens int       `json:"tokens"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type GenerateRequest struct {
	Prompt         string  `json:"prompt"`
	Temperature    float64 `json:"temperature"`
	TopP           float64 `json:"top_p"`
	MaxOutputToken int     `json:"max_output_tokens"`
}

type GenerateResponse struct {
	Text       string `json:"text"`
	Tokens     int    `json:"tokens"`
	DurationMS int64  `json:"duration_ms"`
}

// StreamChunk is one piece of a generate_stream response; Done marks the
// terminal chunk with no further text.
type StreamChunk struct {
	Text string
	Done bool
}

// EmbeddingProvider wraps an external embedding model.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) (EmbedResult, ProviderInfo, error)
	EmbedBatch(ctx context.Context, texts []string) ([]EmbedResult, ProviderInfo, error)
	HealthCheck(ctx context.Context) error
}

// LLMProvider wraps an external generative model. All operations are
// one-shot; cancellation propagates via ctx into any in-flight request.
type LLMProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error)
	GenerateStream(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error)
	Chat(ctx context.Context, messages []ChatMessage) (GenerateResponse, ProviderInfo, error)
}
