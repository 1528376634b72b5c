package contextfmt

import (
	"strings"
	"testing"
	"time"

	"github.com/corvid-labs/corpusmind/internal/models"
	"github.com/corvid-labs/corpusmind/internal/ranker"
)

func TestFormatEmptyReturnsSentinel(t *testing.T) {
	res := Format(nil, "", 1500, 28000)
	if res.Context != NoContextSentinel {
		t.Fatalf("expected sentinel, got %q", res.Context)
	}
}

func TestFormatIncludesDocumentAndCitation(t *testing.T) {
	ranked := []ranker.Ranked{
		{
			FinalScore: 0.8,
			Result: models.SearchResult{
				Document: models.Document{
					DocumentID: "email_1",
					Source:     models.SourceEmail,
					Title:      "Quarterly Update",
					Author:     "alice@example.com",
					Content:    "The quarterly numbers are in.",
					Timestamp:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
					Metadata:   models.Metadata{"to": "bob@example.com", "labels": "inbox"},
				},
			},
		},
	}
	res := Format(ranked, "quarterly numbers", 1500, 28000)
	if !strings.Contains(res.Context, "[Document 1]") {
		t.Fatalf("expected document wrapper, got %q", res.Context)
	}
	if !strings.Contains(res.Context, "Quarterly Update") {
		t.Fatal("expected title in rendered block")
	}
	if len(res.Citations) != 1 || res.Citations[0].DocumentID != "email_1" {
		t.Fatalf("expected one citation for email_1, got %+v", res.Citations)
	}
}

func TestFormatSkipsOversizedDocument(t *testing.T) {
	big := strings.Repeat("x", 200000)
	ranked := []ranker.Ranked{
		{Result: models.SearchResult{Document: models.Document{DocumentID: "huge", Content: big}}},
	}
	res := Format(ranked, "", 1500, 100)
	if res.Included != 0 {
		t.Fatalf("expected oversized document to be skipped, got Included=%d", res.Included)
	}
	if res.Context != NoContextSentinel {
		t.Fatalf("expected sentinel when everything skipped, got %q", res.Context)
	}
}
