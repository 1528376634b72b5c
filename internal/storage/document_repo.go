package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/corvid-labs/corpusmind/internal/apperrors"
	"github.com/corvid-labs/corpusmind/internal/models"
	"github.com/corvid-labs/corpusmind/internal/vector"
)

const uniqueViolation = "23505"

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// CreateDocument inserts a new document. A unique violation on document_id
// is translated to apperrors.ErrDuplicate rather than bubbling up raw.
func (r *DocumentRepo) CreateDocument(ctx context.Context, d models.Document) error {
	meta, err := json.Marshal(d.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO documents (document_id, user_id, source, type, content, title, author, timestamp, metadata, needs_embedding)
VALUES ($1, $2, $3, $4, $5, NULLIF($6,''), NULLIF($7,''), $8, $9::jsonb, $10)`,
		d.DocumentID, d.UserID, d.Source, d.Type, d.Content, d.Title, d.Author, d.Timestamp, string(meta), d.NeedsEmbedding,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrDuplicate
		}
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) FindByID(ctx context.Context, documentID string) (models.Document, error) {
	d, err := scanDocument(r.db.Pool.QueryRow(ctx, documentSelectColumns+` FROM documents WHERE document_id=$1`, documentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Document{}, apperrors.ErrNotFound
		}
		return models.Document{}, fmt.Errorf("find document by id: %w", err)
	}
	return d, nil
}

func (r *DocumentRepo) FetchNeedingEmbedding(ctx context.Context, limit int) ([]models.Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool.Query(ctx, documentSelectColumns+`
FROM documents
WHERE needs_embedding = true AND content <> ''
ORDER BY created_at ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch documents needing embedding: %w", err)
	}
	defer rows.Close()

	out := make([]models.Document, 0, limit)
	for rows.Next() {
		d, err := scanDocumentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document needing embedding: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// EmbeddingUpdate is one outcome of an embedding call, ready to be applied
// transactionally against a batch of documents.
type EmbeddingUpdate struct {
	DocumentID string
	Vector     []float32
	Tokens     int
	Model      string
}

// BatchUpdateEmbeddings applies all updates in a single transaction: either
// every document in the chunk lands, or none do.
func (r *DocumentRepo) BatchUpdateEmbeddings(ctx context.Context, updates []EmbeddingUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx batch update embeddings: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()
	for _, u := range updates {
		_, err := tx.Exec(ctx, `
UPDATE documents
SET embedding = $2::vector, embedding_model = $3, embedding_tokens = $4,
    embedding_generated_at = $5, needs_embedding = false, updated_at = NOW()
WHERE document_id = $1`,
			u.DocumentID, vector.ToLiteral(u.Vector), u.Model, u.Tokens, now,
		)
		if err != nil {
			return fmt.Errorf("update embedding for %s: %w", u.DocumentID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch update embeddings: %w", err)
	}
	return nil
}

// MarkForReembedding flags the given ids (or every document when ids is
// empty) as needing a fresh embedding.
func (r *DocumentRepo) MarkForReembedding(ctx context.Context, ids []string) error {
	var err error
	if len(ids) == 0 {
		_, err = r.db.Pool.Exec(ctx, `UPDATE documents SET needs_embedding = true WHERE content <> ''`)
	} else {
		_, err = r.db.Pool.Exec(ctx, `UPDATE documents SET needs_embedding = true WHERE document_id = ANY($1) AND content <> ''`, ids)
	}
	if err != nil {
		return fmt.Errorf("mark for reembedding: %w", err)
	}
	return nil
}

const documentSelectColumns = `
SELECT document_id, user_id, source, type, content, COALESCE(title,''), COALESCE(author,''),
       timestamp, metadata, needs_embedding, COALESCE(embedding_model,''), COALESCE(embedding_tokens,0),
       embedding_generated_at, created_at, updated_at`

func scanDocument(row pgx.Row) (models.Document, error) {
	var d models.Document
	var metaRaw []byte
	if err := row.Scan(&d.DocumentID, &d.UserID, &d.Source, &d.Type, &d.Content, &d.Title, &d.Author,
		&d.Timestamp, &metaRaw, &d.NeedsEmbedding, &d.EmbeddingModel, &d.EmbeddingTokens,
		&d.EmbeddingGeneratedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return models.Document{}, err
	}
	if len(metaRaw) > 0 {
		_ = json.Unmarshal(metaRaw, &d.Metadata)
	}
	return d, nil
}

func scanDocumentRow(rows pgx.Rows) (models.Document, error) {
	return scanDocument(rows)
}
