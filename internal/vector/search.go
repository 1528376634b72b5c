package vector

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/corvid-labs/corpusmind/internal/models"
)

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Searcher runs the parameterized cosine-distance queries backing 4.H
// Vector Search over the Document Store's `documents` table.
type Searcher struct {
	q Queryer
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

// Options bounds a search call; TopK and MinSimilarity are clamped to their
// documented ranges before use.
type Options struct {
	TopK          int
	MinSimilarity float64
	Filters       models.SearchFilters
}

func (o Options) clamp() Options {
	if o.TopK <= 0 {
		o.TopK = 10
	}
	if o.TopK > 100 {
		o.TopK = 100
	}
	if o.MinSimilarity < 0 {
		o.MinSimilarity = 0
	}
	if o.MinSimilarity > 1 {
		o.MinSimilarity = 1
	}
	return o
}

// Search runs a plain cosine-similarity query, ordered descending by
// similarity, filtered by the composed predicates.
func (s *Searcher) Search(ctx context.Context, queryVec []float32, opts Options) ([]models.SearchResult, error) {
	opts = opts.clamp()
	vecLiteral := ToLiteral(queryVec)
	args := []any{vecLiteral, opts.MinSimilarity, opts.TopK}
	filterSQL, args := appendFilters(opts.Filters, args)

	query := documentSelectSQL + `,
       1 - (embedding <=> $1::vector) AS similarity
FROM documents
WHERE embedding IS NOT NULL
  AND 1 - (embedding <=> $1::vector) >= $2` + filterSQL + `
ORDER BY embedding <=> $1::vector
LIMIT $3`

	return s.runSearch(ctx, query, args)
}

// HybridSearch adds a small keyword boost when any keyword substring-matches
// the document, then orders by similarity + keyword_boost.
func (s *Searcher) HybridSearch(ctx context.Context, queryVec []float32, keywords []string, opts Options) ([]models.SearchResult, error) {
	opts = opts.clamp()
	vecLiteral := ToLiteral(queryVec)
	args := []any{vecLiteral, opts.MinSimilarity, opts.TopK}

	keywordSQL := "0"
	if len(keywords) > 0 {
		lowered := make([]string, len(keywords))
		for i, k := range keywords {
			lowered[i] = strings.ToLower(k)
		}
		idx := len(args) + 1
		args = append(args, lowered)
		keywordSQL = fmt.Sprintf("CASE WHEN EXISTS (SELECT 1 FROM unnest($%d::text[]) kw WHERE LOWER(content) LIKE '%%' || kw || '%%') THEN 0.1 ELSE 0 END", idx)
	}

	filterSQL, args := appendFilters(opts.Filters, args)

	query := documentSelectSQL + fmt.Sprintf(`,
       (1 - (embedding <=> $1::vector)) + (%s) AS similarity
FROM documents
WHERE embedding IS NOT NULL
  AND (1 - (embedding <=> $1::vector)) >= $2`, keywordSQL) + filterSQL + `
ORDER BY similarity DESC
LIMIT $3`

	return s.runSearch(ctx, query, args)
}

// SearchWithExpansion implements the 4.H search_with_expansion rule: if the
// initial call (hybrid when keywords are supplied, plain otherwise) returns
// fewer than 3 results and opts.MinSimilarity is above 0.3, it re-issues the
// same search at exactly min_similarity = 0.3 and keeps whichever result set
// is larger. This is distinct from the RAG pipeline's later, looser
// min-results fallback (which relaxes all the way to a configurable floor
// and also loosens ranking diversity) — this rule fires earlier, inside
// vector search itself, and always expands to the fixed value 0.3.
func (s *Searcher) SearchWithExpansion(ctx context.Context, queryVec []float32, keywords []string, opts Options) ([]models.SearchResult, error) {
	run := func(o Options) ([]models.SearchResult, error) {
		if len(keywords) > 0 {
			return s.HybridSearch(ctx, queryVec, keywords, o)
		}
		return s.Search(ctx, queryVec, o)
	}

	results, err := run(opts)
	if err != nil {
		return nil, err
	}
	if len(results) >= 3 || opts.MinSimilarity <= 0.3 {
		return results, nil
	}

	expanded := opts
	expanded.MinSimilarity = 0.3
	expandedResults, err := run(expanded)
	if err != nil || len(expandedResults) <= len(results) {
		return results, nil
	}
	return expandedResults, nil
}

// FindSimilar looks up the stored vector for documentID and runs the same
// ordering, excluding the seed document itself.
func (s *Searcher) FindSimilar(ctx context.Context, documentID string, k int) ([]models.SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	rows, err := s.q.Query(ctx, `
SELECT `+documentColumns+`,
       1 - (d.embedding <=> seed.embedding) AS similarity
FROM documents d, (SELECT embedding FROM documents WHERE document_id = $1) seed
WHERE d.document_id <> $1 AND d.embedding IS NOT NULL AND seed.embedding IS NOT NULL
ORDER BY d.embedding <=> seed.embedding
LIMIT $2`, documentID, k)
	if err != nil {
		return nil, fmt.Errorf("find similar: %w", err)
	}
	return scanResults(rows)
}

func (s *Searcher) runSearch(ctx context.Context, query string, args []any) ([]models.SearchResult, error) {
	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search query: %w", err)
	}
	return scanResults(rows)
}

func scanResults(rows pgx.Rows) ([]models.SearchResult, error) {
	defer rows.Close()
	out := make([]models.SearchResult, 0, 16)
	for rows.Next() {
		var r models.SearchResult
		var metaRaw []byte
		if err := rows.Scan(&r.Document.DocumentID, &r.Document.UserID, &r.Document.Source, &r.Document.Type,
			&r.Document.Content, &r.Document.Title, &r.Document.Author, &r.Document.Timestamp, &metaRaw,
			&r.Similarity); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		// Round to 4 decimals per the documented contract.
		r.Similarity = math.Round(r.Similarity*10000) / 10000
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return out, nil
}

const documentColumns = `document_id, user_id, source, type, content, COALESCE(title,''), COALESCE(author,''), timestamp, metadata`

const documentSelectSQL = `SELECT ` + documentColumns

func appendFilters(f models.SearchFilters, args []any) (string, []any) {
	var b strings.Builder
	if f.Source != "" {
		args = append(args, f.Source)
		fmt.Fprintf(&b, " AND source = $%d", len(args))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		fmt.Fprintf(&b, " AND type = $%d", len(args))
	}
	author := f.Author
	if author == "" {
		author = f.PotentialAuthor
	}
	if author != "" {
		args = append(args, author)
		fmt.Fprintf(&b, " AND author = $%d", len(args))
	}
	if f.TimeStart != nil {
		args = append(args, *f.TimeStart)
		fmt.Fprintf(&b, " AND timestamp >= $%d", len(args))
	}
	if f.TimeEnd != nil {
		args = append(args, *f.TimeEnd)
		fmt.Fprintf(&b, " AND timestamp <= $%d", len(args))
	}
	return b.String(), args
}

func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, fmt.Sprintf("%f", x))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
