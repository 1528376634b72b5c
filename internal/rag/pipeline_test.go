package rag

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/corvid-labs/corpusmind/internal/config"
	"github.com/corvid-labs/corpusmind/internal/models"
	"github.com/corvid-labs/corpusmind/internal/providers"
	"github.com/corvid-labs/corpusmind/internal/vector"
)

type stubSearcher struct {
	results []models.SearchResult
}

func (s *stubSearcher) Search(ctx context.Context, queryVec []float32, opts vector.Options) ([]models.SearchResult, error) {
	return s.results, nil
}

func (s *stubSearcher) HybridSearch(ctx context.Context, queryVec []float32, keywords []string, opts vector.Options) ([]models.SearchResult, error) {
	return s.results, nil
}

func (s *stubSearcher) SearchWithExpansion(ctx context.Context, queryVec []float32, keywords []string, opts vector.Options) ([]models.SearchResult, error) {
	return s.results, nil
}

func testConfig() config.Config {
	return config.Config{
		RankerWeightVector:  0.45,
		RankerWeightRecency: 0.15,
		RankerWeightKeyword: 0.25,
		RankerWeightSource:  0.10,
		RankerWeightLength:  0.05,
		RankerDecayDays:     60,
		RankerIntentBoost:   1.3,
		RankerDiversity:     true,
		RankerDiversityMax:  0.85,
		ContextTokenBudget:  28000,
		RAGMinResults:       3,
		RAGMinSimilarity:    0.5,
		RAGFallbackMinSim:   0.25,
	}
}

func TestPipelineRunProducesPromptAndCitations(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	search := &stubSearcher{results: []models.SearchResult{
		{Document: models.Document{DocumentID: "email_1", Source: models.SourceEmail, Content: "Meeting notes about the roadmap.", Timestamp: now}, Similarity: 0.8},
		{Document: models.Document{DocumentID: "email_2", Source: models.SourceEmail, Content: "Followup on the roadmap decision.", Timestamp: now}, Similarity: 0.7},
		{Document: models.Document{DocumentID: "email_3", Source: models.SourceEmail, Content: "Budget approval for next quarter.", Timestamp: now}, Similarity: 0.6},
	}}
	pipeline := NewPipeline(providers.NewMockProvider(1536), search, vector.NewEmbeddingCache(100, 5*time.Minute), testConfig())

	resp, err := pipeline.Run(context.Background(), now, "What did we decide about the roadmap?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resp.Prompt, "Question: What did we decide about the roadmap?") {
		t.Fatalf("expected question in prompt, got %q", resp.Prompt)
	}
	if len(resp.Citations) == 0 {
		t.Fatal("expected at least one citation")
	}
	if resp.RetrievalMeta.ResultCount == 0 {
		t.Fatal("expected non-zero result count in metadata")
	}
}

func TestPipelineRunRejectsEmptyQuery(t *testing.T) {
	pipeline := NewPipeline(providers.NewMockProvider(1536), &stubSearcher{}, vector.NewEmbeddingCache(100, 5*time.Minute), testConfig())
	if _, err := pipeline.Run(context.Background(), time.Now(), ""); err == nil {
		t.Fatal("expected error for empty query")
	}
}

// countingProvider counts Embed calls so the cache test can assert a second
// byte-identical (after trim+lowercase) query never reaches the provider.
type countingProvider struct {
	*providers.MockProvider
	calls int
}

func (c *countingProvider) Embed(ctx context.Context, text string) (providers.EmbedResult, providers.ProviderInfo, error) {
	c.calls++
	return c.MockProvider.Embed(ctx, text)
}

func TestPipelineCachesQueryEmbedding(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	search := &stubSearcher{results: []models.SearchResult{
		{Document: models.Document{DocumentID: "email_1", Source: models.SourceEmail, Content: "Roadmap notes.", Timestamp: now}, Similarity: 0.8},
	}}
	embedder := &countingProvider{MockProvider: providers.NewMockProvider(1536)}
	pipeline := NewPipeline(embedder, search, vector.NewEmbeddingCache(100, 5*time.Minute), testConfig())

	if _, err := pipeline.Run(context.Background(), now, "  What about the Roadmap?  "); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := pipeline.Run(context.Background(), now, "what about the roadmap?"); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if embedder.calls != 1 {
		t.Fatalf("expected exactly one provider call across identical-after-normalization queries, got %d", embedder.calls)
	}
}
