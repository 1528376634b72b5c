package query

import (
	"testing"
	"time"

	"github.com/corvid-labs/corpusmind/internal/models"
)

func TestProcessDetectsEmailIntent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := Process(now, "Find the email from Priya about the roadmap")
	if p.Intent != IntentSearchEmail {
		t.Fatalf("expected email intent, got %s", p.Intent)
	}
	if p.Source != models.SourceEmail {
		t.Fatalf("expected source filter %s, got %s", models.SourceEmail, p.Source)
	}
	if p.QueryType != QueryTypeMemoryRecall {
		t.Fatalf("expected memory_recall query type, got %s", p.QueryType)
	}
}

func TestProcessFallsBackToGeneralSearch(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := Process(now, "what is the weather like")
	if p.Intent != IntentGeneralSearch {
		t.Fatalf("expected general_search intent, got %s", p.Intent)
	}
	if p.QueryType != QueryTypeGeneral {
		t.Fatalf("expected general query type, got %s", p.QueryType)
	}
}

func TestProcessExtractsPersonFromPreposition(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := Process(now, "What did I discuss with Ravi Kumar about the budget?")
	if p.Person != "Ravi Kumar" {
		t.Fatalf("expected person Ravi Kumar, got %q", p.Person)
	}
	if p.Filters.Author != "Ravi Kumar" {
		t.Fatalf("expected filters.Author to mirror person, got %q", p.Filters.Author)
	}
}

func TestProcessFallsBackToPotentialAuthorWhenNoPerson(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := Process(now, "Notes about Roadmap Planning")
	if p.Person != "" {
		t.Fatalf("expected no person match, got %q", p.Person)
	}
	if len(p.Entities) == 0 {
		t.Fatalf("expected at least one capitalized entity")
	}
	if p.Filters.PotentialAuthor != p.Entities[0] {
		t.Fatalf("expected potential_author to fall back to first entity, got %q", p.Filters.PotentialAuthor)
	}
}

func TestProcessKeywordExtractionDropsStopWordsAndShortTokens(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := Process(now, "the roadmap and the sync with the team about the roadmap")
	for _, kw := range p.Keywords {
		if len(kw) < 3 {
			t.Fatalf("keyword %q shorter than 3 chars survived extraction", kw)
		}
		if _, stop := stopWords[kw]; stop {
			t.Fatalf("stop word %q survived extraction", kw)
		}
	}
	if len(p.Keywords) == 0 || p.Keywords[0] != "roadmap" {
		t.Fatalf("expected most frequent keyword 'roadmap' first, got %v", p.Keywords)
	}
}

func TestProcessTimeRangeRecognizesFixedLabel(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := Process(now, "what happened yesterday")
	if p.TimeRange == nil {
		t.Fatalf("expected a time range for 'yesterday'")
	}
	if p.TimeRange.Label != "yesterday" {
		t.Fatalf("expected label yesterday, got %q", p.TimeRange.Label)
	}
	if p.Filters.TimeStart == nil || p.Filters.TimeEnd == nil {
		t.Fatalf("expected filters to carry the resolved time range")
	}
}

func TestProcessIsPure(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	a := Process(now, "email from Sam about the launch")
	b := Process(now, "email from Sam about the launch")
	if a.Intent != b.Intent || a.Person != b.Person || len(a.Keywords) != len(b.Keywords) {
		t.Fatalf("expected identical output for identical input, got %+v vs %+v", a, b)
	}
}
