// Package rag orchestrates query processing, retrieval, ranking, and
// context formatting into a single prompt, generalized from the teacher's
// handleAsk end-to-end flow (embed query, search, build prompt) into the
// three selectable templates and fallback-retry behavior of the wider spec.
package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/corvid-labs/corpusmind/internal/config"
	"github.com/corvid-labs/corpusmind/internal/contextfmt"
	"github.com/corvid-labs/corpusmind/internal/models"
	"github.com/corvid-labs/corpusmind/internal/providers"
	"github.com/corvid-labs/corpusmind/internal/query"
	"github.com/corvid-labs/corpusmind/internal/ranker"
	"github.com/corvid-labs/corpusmind/internal/vector"
)

// Searcher is the subset of vector.Searcher the pipeline depends on.
type Searcher interface {
	Search(ctx context.Context, queryVec []float32, opts vector.Options) ([]models.SearchResult, error)
	HybridSearch(ctx context.Context, queryVec []float32, keywords []string, opts vector.Options) ([]models.SearchResult, error)
	SearchWithExpansion(ctx context.Context, queryVec []float32, keywords []string, opts vector.Options) ([]models.SearchResult, error)
}

// Metadata describes how retrieval actually proceeded, for observability
// and for the caller deciding whether to warn the user about a fallback.
type Metadata struct {
	Strategy        string `json:"strategy"`
	ResultCount     int    `json:"result_count"`
	UsedFallback    bool   `json:"used_fallback"`
	MinSimilarity   float64 `json:"min_similarity"`
	TokensEstimated int    `json:"tokens_estimated"`
}

// Response is what the pipeline hands back to the caller, who is
// responsible for the actual LLM call.
type Response struct {
	Prompt          string                `json:"prompt"`
	Context         string                `json:"context"`
	Citations       []contextfmt.Citation `json:"citations"`
	ProcessedQuery  query.Processed       `json:"processed_query"`
	RetrievalMeta   Metadata              `json:"retrieval_metadata"`
}

// Pipeline glues G (query processing) -> H (vector search) -> I (ranking)
// -> J (context formatting) -> prompt assembly.
type Pipeline struct {
	embedder providers.EmbeddingProvider
	search   Searcher
	cache    *vector.EmbeddingCache
	cfg      config.Config
}

func NewPipeline(embedder providers.EmbeddingProvider, search Searcher, cache *vector.EmbeddingCache, cfg config.Config) *Pipeline {
	return &Pipeline{embedder: embedder, search: search, cache: cache, cfg: cfg}
}

// Run executes the full retrieval-to-prompt pipeline for one user query.
func (p *Pipeline) Run(ctx context.Context, now time.Time, rawQuery string) (Response, error) {
	if rawQuery == "" {
		return Response{}, fmt.Errorf("rag: empty query")
	}
	processed := query.Process(now, rawQuery)

	queryVec, err := p.embedQuery(ctx, rawQuery)
	if err != nil {
		return Response{}, fmt.Errorf("rag: embed query: %w", err)
	}

	strategy := "plain"
	if len(processed.Keywords) >= 2 {
		strategy = "hybrid"
	}

	minSim := p.cfg.RAGMinSimilarity
	results, err := p.retrieve(ctx, strategy, processed, queryVec, minSim)
	if err != nil {
		return Response{}, err
	}

	usedFallback := false
	minResults := p.cfg.RAGMinResults
	if minResults <= 0 {
		minResults = 3
	}
	if len(results) < minResults {
		floor := p.cfg.RAGFallbackMinSim
		if floor <= 0 {
			floor = 0.25
		}
		if floor < minSim {
			fallbackResults, err := p.retrieve(ctx, strategy, processed, queryVec, floor)
			if err == nil && len(fallbackResults) > len(results) {
				results = fallbackResults
				usedFallback = true
				minSim = floor
			}
		}
	}

	ranked := ranker.Rank(p.cfg, now, processed, results, usedFallback)
	formatted := contextfmt.Format(ranked, rawQuery, p.cfg.ContextSnippetChars, p.cfg.ContextTokenBudget)

	prompt := buildPrompt(processed, formatted.Context)

	return Response{
		Prompt:         prompt,
		Context:        formatted.Context,
		Citations:      formatted.Citations,
		ProcessedQuery: processed,
		RetrievalMeta: Metadata{
			Strategy:        strategy,
			ResultCount:     len(results),
			UsedFallback:    usedFallback,
			MinSimilarity:   minSim,
			TokensEstimated: formatted.EstimateTokens,
		},
	}, nil
}

// embedQuery consults the bounded LRU cache (4.H step 1) before calling the
// embedding provider; a cache hit means identical-after-trim+lowercase
// queries within the TTL never incur a second provider call.
func (p *Pipeline) embedQuery(ctx context.Context, rawQuery string) ([]float32, error) {
	if p.cache == nil {
		result, _, err := p.embedder.Embed(ctx, rawQuery)
		return result.Vector, err
	}
	key := vector.NormalizeKey(rawQuery)
	if vec, ok := p.cache.Get(key); ok {
		return vec, nil
	}
	result, _, err := p.embedder.Embed(ctx, rawQuery)
	if err != nil {
		return nil, err
	}
	p.cache.Put(key, result.Vector)
	return result.Vector, nil
}

func (p *Pipeline) retrieve(ctx context.Context, strategy string, processed query.Processed, queryVec []float32, minSim float64) ([]models.SearchResult, error) {
	opts := vector.Options{TopK: 20, MinSimilarity: minSim, Filters: processed.Filters}
	keywords := processed.Keywords
	if strategy != "hybrid" {
		keywords = nil
	}
	return p.search.SearchWithExpansion(ctx, queryVec, keywords, opts)
}

// buildPrompt concatenates the system block, retrieved context, the fixed
// instruction block, and the user's question. An empty context switches to
// the dedicated no-context system block.
func buildPrompt(processed query.Processed, context string) string {
	systemBlock := systemBlockFor(processed.QueryType)
	if context == contextfmt.NoContextSentinel {
		systemBlock = systemBlockFor("no_context")
	}
	return fmt.Sprintf("%s\n\n--- Retrieved Context ---\n%s\n\n%s\n\nQuestion: %s",
		systemBlock, context, instructionBlock, processed.Original)
}
