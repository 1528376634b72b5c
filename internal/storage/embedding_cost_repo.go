package storage

import (
	"context"
	"fmt"
)

type EmbeddingCostRepo struct {
	db *DB
}

func NewEmbeddingCostRepo(db *DB) *EmbeddingCostRepo {
	return &EmbeddingCostRepo{db: db}
}

func (r *EmbeddingCostRepo) Insert(ctx context.Context, batchID, model string, documentCount, totalTokens int, estimatedCost float64, status string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO embedding_costs (batch_id, model, document_count, total_tokens, estimated_cost, status)
VALUES ($1, $2, $3, $4, $5, $6)`, batchID, model, documentCount, totalTokens, estimatedCost, status)
	if err != nil {
		return fmt.Errorf("insert embedding cost: %w", err)
	}
	return nil
}

type EmbeddingStats struct {
	TotalBatches  int
	TotalTokens   int
	TotalCost     float64
	PendingCount  int
}

func (r *EmbeddingCostRepo) Stats(ctx context.Context) (EmbeddingStats, error) {
	var s EmbeddingStats
	err := r.db.Pool.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(SUM(total_tokens),0), COALESCE(SUM(estimated_cost),0)
FROM embedding_costs`).Scan(&s.TotalBatches, &s.TotalTokens, &s.TotalCost)
	if err != nil {
		return EmbeddingStats{}, fmt.Errorf("embedding cost stats: %w", err)
	}
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE needs_embedding = true`).Scan(&s.PendingCount); err != nil {
		return EmbeddingStats{}, fmt.Errorf("embedding pending count: %w", err)
	}
	return s, nil
}
