package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/corvid-labs/corpusmind/internal/apperrors"
)

// OpenAIProvider wraps the official OpenAI SDK for both embeddings and
// chat completions. Left unconfigured (no API key), Embed/Generate return
// apperrors.ErrUnauthorized at once instead of making a doomed HTTP call;
// no caller falls back to another provider on that error.
type OpenAIProvider struct {
	client       openai.Client
	embedModel   string
	chatModel    string
	temperature  float64
	topP         float64
	maxOutputTok int
	configured   bool
}

type OpenAIConfig struct {
	APIKey         string
	EmbedModel     string
	ChatModel      string
	Temperature    float64
	TopP           float64
	MaxOutputToken int
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		client:       openai.NewClient(opts...),
		embedModel:   embedModel,
		chatModel:    chatModel,
		temperature:  cfg.Temperature,
		topP:         cfg.TopP,
		maxOutputTok: cfg.MaxOutputToken,
		configured:   cfg.APIKey != "",
	}
}

func (o *OpenAIProvider) Embed(ctx context.Context, text string) (EmbedResult, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.embedModel}
	if strings.TrimSpace(text) == "" {
		return EmbedResult{}, info, apperrors.ErrInvalidInput
	}
	results, info, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return EmbedResult{}, info, err
	}
	return results[0], info, nil
}

func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]EmbedResult, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.embedModel}
	if !o.configured {
		return nil, info, apperrors.ErrUnauthorized
	}
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: o.embedModel,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, info, classifyOpenAIErr(err)
	}
	out := make([]EmbedResult, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = EmbedResult{Vector: vec, Tokens: estimateTokens(texts[i])}
	}
	return out, info, nil
}

func (o *OpenAIProvider) HealthCheck(ctx context.Context) error {
	if !o.configured {
		return apperrors.ErrUnauthorized
	}
	_, _, err := o.Embed(ctx, "healthcheck")
	return err
}

func (o *OpenAIProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	return o.Chat(ctx, []ChatMessage{{Role: "user", Content: req.Prompt}})
}

func (o *OpenAIProvider) Chat(ctx context.Context, messages []ChatMessage) (GenerateResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.chatModel}
	if !o.configured {
		return GenerateResponse{}, info, apperrors.ErrUnauthorized
	}
	params := openai.ChatCompletionNewParams{
		Model:    o.chatModel,
		Messages: toOpenAIMessages(messages),
	}
	if o.temperature > 0 {
		params.Temperature = openai.Float(o.temperature)
	}
	if o.topP > 0 {
		params.TopP = openai.Float(o.topP)
	}
	if o.maxOutputTok > 0 {
		params.MaxCompletionTokens = openai.Int(int64(o.maxOutputTok))
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return GenerateResponse{}, info, classifyOpenAIErr(err)
	}
	if len(resp.Choices) == 0 {
		return GenerateResponse{}, info, apperrors.ErrTransient
	}
	text := resp.Choices[0].Message.Content
	return GenerateResponse{Text: text, Tokens: int(resp.Usage.CompletionTokens)}, info, nil
}

func (o *OpenAIProvider) GenerateStream(ctx context.Context, req GenerateRequest) (<-chan StreamChunk, error) {
	if !o.configured {
		return nil, apperrors.ErrUnauthorized
	}
	params := openai.ChatCompletionNewParams{
		Model:    o.chatModel,
		Messages: toOpenAIMessages([]ChatMessage{{Role: "user", Content: req.Prompt}}),
	}
	stream := o.client.Chat.Completions.NewStreaming(ctx, params)

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- StreamChunk{Text: delta}:
			}
		}
		out <- StreamChunk{Done: true}
	}()
	return out, nil
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func classifyOpenAIErr(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return fmt.Errorf("%w: %s", apperrors.ErrRateLimited, apiErr.Error())
		case 401, 403:
			return fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, apiErr.Error())
		case 400:
			return fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, apiErr.Error())
		}
	}
	return err
}
