package ranker

import (
	"testing"
	"time"

	"github.com/corvid-labs/corpusmind/internal/config"
	"github.com/corvid-labs/corpusmind/internal/models"
	"github.com/corvid-labs/corpusmind/internal/query"
)

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
	}
}

func TestRankOrdersBySimilarityWhenSignalsTie(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	results := []models.SearchResult{
		{Document: models.Document{DocumentID: "a", Source: models.SourceEmail, Content: strRepeat("x", 500), Timestamp: now}, Similarity: 0.5},
		{Document: models.Document{DocumentID: "b", Source: models.SourceEmail, Content: strRepeat("y", 500), Timestamp: now}, Similarity: 0.9},
	}
	ranked := Rank(testConfig(), now, query.Processed{}, results, false)
	if ranked[0].Result.Document.DocumentID != "b" {
		t.Fatalf("expected higher similarity result first, got %s", ranked[0].Result.Document.DocumentID)
	}
}

func TestRankIntentBoostPromotesMatchingSource(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	results := []models.SearchResult{
		{Document: models.Document{DocumentID: "email-doc", Source: models.SourceEmail, Content: strRepeat("x", 500), Timestamp: now}, Similarity: 0.6},
		{Document: models.Document{DocumentID: "music-doc", Source: models.SourceMusic, Content: strRepeat("y", 500), Timestamp: now}, Similarity: 0.62},
	}
	q := query.Processed{Source: models.SourceEmail}
	ranked := Rank(testConfig(), now, q, results, false)
	if ranked[0].Result.Document.DocumentID != "email-doc" {
		t.Fatalf("expected intent boost to promote email-doc, got %s", ranked[0].Result.Document.DocumentID)
	}
	if !ranked[0].Breakdown.IntentBoosted {
		t.Fatal("expected IntentBoosted to be set")
	}
}

func TestRecencyScoreDecaysWithAge(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := recencyScore(now, now, 60)
	old := recencyScore(now, now.AddDate(0, -6, 0), 60)
	if !(fresh > old) {
		t.Fatalf("expected fresh score %f > old score %f", fresh, old)
	}
}

func TestLengthScoreWindow(t *testing.T) {
	if lengthScore(1000) != 1.0 {
		t.Fatalf("expected full score inside window, got %f", lengthScore(1000))
	}
	if lengthScore(50) >= 1.0 {
		t.Fatal("expected below-window score to be penalized")
	}
	if lengthScore(10000) >= 1.0 {
		t.Fatal("expected above-window score to be penalized")
	}
}

func TestDiversifyDropsNearDuplicateContent(t *testing.T) {
	now := time.Now()
	shared := strRepeat("alpha beta gamma delta epsilon ", 10)
	results := []models.SearchResult{
		{Document: models.Document{DocumentID: "a", Source: models.SourceEmail, Content: shared, Timestamp: now}, Similarity: 0.9},
		{Document: models.Document{DocumentID: "b", Source: models.SourceEmail, Content: shared, Timestamp: now}, Similarity: 0.8},
	}
	ranked := Rank(testConfig(), now, query.Processed{}, results, false)
	if len(ranked) != 1 {
		t.Fatalf("expected near-duplicate to be dropped, got %d results", len(ranked))
	}
}

func TestDiversifyLoosensOnFallback(t *testing.T) {
	now := time.Now()
	shared := strRepeat("alpha beta gamma delta epsilon ", 10)
	results := []models.SearchResult{
		{Document: models.Document{DocumentID: "a", Source: models.SourceEmail, Content: shared, Timestamp: now}, Similarity: 0.9},
		{Document: models.Document{DocumentID: "b", Source: models.SourceEmail, Content: shared, Timestamp: now}, Similarity: 0.8},
	}
	ranked := Rank(testConfig(), now, query.Processed{}, results, true)
	if len(ranked) != 2 {
		t.Fatalf("expected fallback ranking to keep near-duplicates in a scarce result set, got %d results", len(ranked))
	}
}

func strRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
