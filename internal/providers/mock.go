package providers

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/corvid-labs/corpusmind/internal/apperrors"
)

// MockProvider is the zero-config default: deterministic sha256-seeded
// vectors for embeddings, canned text for generation. It implements both
// EmbeddingProvider and LLMProvider so a fresh checkout with no API key
// still runs end to end.
type MockProvider struct {
	dim int
}

func NewMockProvider(dim int) *MockProvider {
	if dim <= 0 {
		dim = 1536
	}
	return &MockProvider{dim: dim}
}

func (m *MockProvider) Embed(ctx context.Context, text string) (EmbedResult, ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", m.dim)}
	if strings.TrimSpace(text) == "" {
		return EmbedResult{}, info, apperrors.ErrInvalidInput
	}
	vec := deterministicVector(text, m.dim)
	return EmbedResult{Vector: vec, Tokens: estimateTokens(text)}, info, nil
}

func (m *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([]EmbedResult, ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Model: fmt.Sprintf("mock-embed-%d", m.dim)}
	out := make([]EmbedResult, 0, len(texts))
	for _, t := range texts {
		r, _, err := m.Embed(ctx, t)
		if err != nil {
			return nil, info, err
		}
		out = append(out, r)
	}
	return out, info, nil
}

func (m *MockProvider) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "mock", Model: "mock-llm-v1"}
	text := "Deterministic mock answer based on the supplied prompt."
	if strings.Contains(req.Prompt, "No relevant context") || strings.Contains(req.Prompt, "No context") {
		text = "I don't have enough retrieved context to answer that confidently."
	}
	return GenerateResponse{Text: text, Tokens: estimateTokens(text)}, info, nil
}

func (m *MockProvider) GenerateStream(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error) {
	resp, _, err := m.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		words := strings.Fields(resp.Text)
		for _, w := range words {
			select {
			case <-ctx.Done():
				return
			case out <- StreamChunk{Text: w + " "}:
			}
			time.Sleep(5 * time.Millisecond)
		}
		out <- StreamChunk{Done: true}
	}()
	return out, nil
}

func (m *MockProvider) Chat(ctx context.Context, messages []ChatMessage) (GenerateResponse, ProviderInfo, error) {
	var last string
	for _, msg := range messages {
		if msg.Role == "user" {
			last = msg.Content
		}
	}
	return m.Generate(ctx, GenerateRequest{Prompt: last})
}

func deterministicVector(input string, dim int) []float32 {
	vec := make([]float32, dim)
	seed := []byte(input)
	if len(seed) == 0 {
		seed = []byte("empty")
	}
	for i := 0; i < dim; i++ {
		h := sha256.Sum256(append(seed, byte(i%251)))
		u := binary.BigEndian.Uint32(h[:4])
		v := float32(u%2000)/1000.0 - 1.0
		vec[i] = v
	}
	return normalize(vec)
}

func normalize(v []float32) []float32 {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// estimateTokens is a cost-accounting estimate only (1 token ~= 4
// characters), never used for correctness decisions.
func estimateTokens(s string) int {
	n := len(s) / 4
	if n == 0 && s != "" {
		n = 1
	}
	return n
}
