package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/corvid-labs/corpusmind/internal/apperrors"
	"github.com/corvid-labs/corpusmind/internal/models"
)

type SyncLogRepo struct {
	db *DB
}

func NewSyncLogRepo(db *DB) *SyncLogRepo {
	return &SyncLogRepo{db: db}
}

func (r *SyncLogRepo) Create(ctx context.Context, id, userID, source string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO sync_logs (id, user_id, source, status, started_at)
VALUES ($1, $2, $3, $4, NOW())`, id, userID, source, models.SyncStatusInProgress)
	if err != nil {
		return fmt.Errorf("create sync log: %w", err)
	}
	return nil
}

// Complete transitions a sync log to a terminal status. It refuses to touch
// a row that already reached a terminal status, enforcing immutability
// after success/failed in the application layer.
func (r *SyncLogRepo) Complete(ctx context.Context, id, status string, fetched, stored, skipped, failed int, lastSyncTimestamp *time.Time, errMsg string) error {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.IsTerminal() {
		return nil
	}
	_, err = r.db.Pool.Exec(ctx, `
UPDATE sync_logs
SET status=$2, completed_at=NOW(), documents_fetched=$3, documents_stored=$4,
    documents_skipped=$5, documents_failed=$6, last_sync_timestamp=$7, error_message=NULLIF($8,'')
WHERE id=$1`, id, status, fetched, stored, skipped, failed, lastSyncTimestamp, errMsg)
	if err != nil {
		return fmt.Errorf("complete sync log: %w", err)
	}
	return nil
}

func (r *SyncLogRepo) Get(ctx context.Context, id string) (models.SyncLog, error) {
	var s models.SyncLog
	var errMsg string
	err := r.db.Pool.QueryRow(ctx, `
SELECT id, user_id, source, status, started_at, completed_at, documents_fetched,
       documents_stored, documents_skipped, documents_failed, last_sync_timestamp, COALESCE(error_message,'')
FROM sync_logs WHERE id=$1`, id).Scan(
		&s.ID, &s.UserID, &s.Source, &s.Status, &s.StartedAt, &s.CompletedAt, &s.DocumentsFetched,
		&s.DocumentsStored, &s.DocumentsSkipped, &s.DocumentsFailed, &s.LastSyncTimestamp, &errMsg,
	)
	s.ErrorMessage = errMsg
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.SyncLog{}, apperrors.ErrNotFound
		}
		return models.SyncLog{}, fmt.Errorf("get sync log: %w", err)
	}
	return s, nil
}

// LastSuccessfulCursor returns the most recent successful run's
// last_sync_timestamp, used to resume the next incremental sync.
func (r *SyncLogRepo) LastSuccessfulCursor(ctx context.Context, userID, source string) (*time.Time, error) {
	var ts *time.Time
	err := r.db.Pool.QueryRow(ctx, `
SELECT last_sync_timestamp FROM sync_logs
WHERE user_id=$1 AND source=$2 AND status=$3
ORDER BY completed_at DESC LIMIT 1`, userID, source, models.SyncStatusSuccess).Scan(&ts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("last successful cursor: %w", err)
	}
	return ts, nil
}

func (r *SyncLogRepo) History(ctx context.Context, userID, source string, limit int) ([]models.SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, user_id, source, status, started_at, completed_at, documents_fetched,
       documents_stored, documents_skipped, documents_failed, last_sync_timestamp, COALESCE(error_message,'')
FROM sync_logs
WHERE ($1 = '' OR user_id=$1) AND ($2 = '' OR source=$2)
ORDER BY started_at DESC LIMIT $3`, userID, source, limit)
	if err != nil {
		return nil, fmt.Errorf("sync log history: %w", err)
	}
	defer rows.Close()

	out := make([]models.SyncLog, 0, limit)
	for rows.Next() {
		var s models.SyncLog
		if err := rows.Scan(&s.ID, &s.UserID, &s.Source, &s.Status, &s.StartedAt, &s.CompletedAt,
			&s.DocumentsFetched, &s.DocumentsStored, &s.DocumentsSkipped, &s.DocumentsFailed,
			&s.LastSyncTimestamp, &s.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan sync log history: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
