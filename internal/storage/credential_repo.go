package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/corvid-labs/corpusmind/internal/apperrors"
	"github.com/corvid-labs/corpusmind/internal/models"
)

// CredentialRepo is the single converged credential table, scoped by
// (user_id, source) — there is no separate api_credentials schema.
type CredentialRepo struct {
	db *DB
}

func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

func (r *CredentialRepo) Upsert(ctx context.Context, c models.Credential) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO credentials (user_id, source, access_token, refresh_token, expires_at, scopes)
VALUES ($1, $2, $3, NULLIF($4,''), $5, $6)
ON CONFLICT (user_id, source)
DO UPDATE SET access_token=EXCLUDED.access_token, refresh_token=COALESCE(EXCLUDED.refresh_token, credentials.refresh_token),
              expires_at=EXCLUDED.expires_at, scopes=EXCLUDED.scopes`,
		c.UserID, c.Source, c.AccessToken, c.RefreshToken, c.ExpiresAt, c.Scopes)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

func (r *CredentialRepo) Get(ctx context.Context, userID, source string) (models.Credential, error) {
	var c models.Credential
	var refresh string
	err := r.db.Pool.QueryRow(ctx, `
SELECT user_id, source, access_token, COALESCE(refresh_token,''), expires_at, scopes
FROM credentials WHERE user_id=$1 AND source=$2`, userID, source).
		Scan(&c.UserID, &c.Source, &c.AccessToken, &refresh, &c.ExpiresAt, &c.Scopes)
	c.RefreshToken = refresh
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Credential{}, apperrors.ErrNotFound
		}
		return models.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	return c, nil
}
