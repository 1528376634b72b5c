// Package contextfmt builds the LLM-facing context block from ranked
// documents, generalized from the teacher's evidence-snippet assembly in
// handleAsk into a token-budgeted, per-source-metadata formatter.
package contextfmt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corvid-labs/corpusmind/internal/ranker"
	"github.com/corvid-labs/corpusmind/internal/util"
)

// NoContextSentinel is emitted when no documents fit the budget or none
// were supplied.
const NoContextSentinel = "No relevant context was retrieved for this query."

// charsPerToken approximates token count the same way the embedding
// provider does for cost accounting: never used for correctness, only budgeting.
const charsPerToken = 4

// Citation is a numbered reference a prompt can ask the model to cite by.
type Citation struct {
	ID         int    `json:"id"`
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	Author     string `json:"author,omitempty"`
}

// Result is the formatted context plus bookkeeping the RAG pipeline needs.
type Result struct {
	Context        string
	Citations      []Citation
	EstimateTokens int
	Included       int
	Skipped        int
}

// Format sorts a copy of ranked by FinalScore, highest first (ranker.Rank's
// output is already in that order), greedily includes documents whose rendered text fits under budget, and
// appends a footer with a per-source breakdown. rawQuery and snippetChars
// control how much of each document's content survives into the block: the
// sentence(s) most relevant to rawQuery are kept, not just the head of the
// document, so a long document doesn't crowd out everything ranked below it.
func Format(ranked []ranker.Ranked, rawQuery string, snippetChars, tokenBudget int) Result {
	if tokenBudget <= 0 {
		tokenBudget = 28000
	}
	if snippetChars <= 0 {
		snippetChars = 1500
	}
	if len(ranked) == 0 {
		return Result{Context: NoContextSentinel}
	}
	ranked = append([]ranker.Ranked(nil), ranked...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})

	var (
		blocks       []string
		citations    []Citation
		usedTokens   int
		bySource     = map[string]int{}
		skipped      int
	)

	for _, r := range ranked {
		block := renderDocument(len(citations)+1, r, rawQuery, snippetChars)
		tokens := estimateTokens(block)
		if usedTokens+tokens > tokenBudget {
			skipped++
			continue
		}
		usedTokens += tokens
		blocks = append(blocks, block)
		citations = append(citations, citationFor(len(citations)+1, r))
		bySource[r.Result.Document.Source]++
	}

	if len(blocks) == 0 {
		return Result{Context: NoContextSentinel, Skipped: skipped}
	}

	footer := renderFooter(len(blocks), bySource)
	context := strings.Join(blocks, "\n") + "\n" + footer
	return Result{
		Context:        context,
		Citations:      citations,
		EstimateTokens: usedTokens + estimateTokens(footer),
		Included:       len(blocks),
		Skipped:        skipped,
	}
}

func renderDocument(n int, r ranker.Ranked, rawQuery string, snippetChars int) string {
	doc := r.Result.Document
	var b strings.Builder
	fmt.Fprintf(&b, "[Document %d]\n", n)
	if doc.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", doc.Title)
	}
	fmt.Fprintf(&b, "Source: %s\n", doc.Source)
	if !doc.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Date: %s\n", doc.Timestamp.Format("2006-01-02"))
	}
	if doc.Author != "" {
		fmt.Fprintf(&b, "Author: %s\n", doc.Author)
	}
	fmt.Fprintf(&b, "Relevance: %.2f\n", r.FinalScore)
	if line := metadataLine(doc.Source, doc.Metadata); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(util.DisplayEvidenceSnippet(doc.Content, rawQuery, snippetChars))
	b.WriteString("\n---")
	return b.String()
}

func metadataLine(source string, md map[string]any) string {
	if md == nil {
		return ""
	}
	switch source {
	case "email":
		return labeledLine(md, "To", "to", "Labels", "labels")
	case "calendar":
		return labeledLine(md, "Attendees", "attendees", "Location", "location")
	case "music":
		return labeledLine(md, "Artist", "artist", "Album", "album")
	default:
		return ""
	}
}

func labeledLine(md map[string]any, label1, key1, label2, key2 string) string {
	var parts []string
	if v, ok := md[key1]; ok && v != nil {
		parts = append(parts, fmt.Sprintf("%s: %v", label1, v))
	}
	if v, ok := md[key2]; ok && v != nil {
		parts = append(parts, fmt.Sprintf("%s: %v", label2, v))
	}
	return strings.Join(parts, " | ")
}

func citationFor(id int, r ranker.Ranked) Citation {
	doc := r.Result.Document
	date := ""
	if !doc.Timestamp.IsZero() {
		date = doc.Timestamp.Format("2006-01-02")
	}
	return Citation{
		ID:         id,
		DocumentID: doc.DocumentID,
		Source:     doc.Source,
		Title:      doc.Title,
		Date:       date,
		Author:     doc.Author,
	}
}

func renderFooter(total int, bySource map[string]int) string {
	parts := make([]string, 0, len(bySource))
	for source, count := range bySource {
		parts = append(parts, fmt.Sprintf("%s: %d", source, count))
	}
	return fmt.Sprintf("(%d documents retrieved — %s)", total, strings.Join(parts, ", "))
}

func estimateTokens(s string) int {
	return (len(s) + charsPerToken - 1) / charsPerToken
}
