package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/corvid-labs/corpusmind/internal/models"
)

type ConversationRepo struct {
	db *DB
}

func NewConversationRepo(db *DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) CreateConversation(ctx context.Context, conversationID, userID string) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO conversations (conversation_id, user_id) VALUES ($1, $2)`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) AppendTurn(ctx context.Context, t models.ConversationTurn) error {
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return fmt.Errorf("marshal turn metadata: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO conversation_turns (id, conversation_id, user_id, query, response, metadata)
VALUES ($1, $2, $3, $4, $5, $6::jsonb)`, t.ID, t.ConversationID, t.UserID, t.Query, t.Response, string(meta))
	if err != nil {
		return fmt.Errorf("append conversation turn: %w", err)
	}
	return nil
}

// History returns up to limit most recent turns, chronological (oldest
// first) so they can be replayed directly into a chat prompt.
func (r *ConversationRepo) History(ctx context.Context, conversationID string, limit int) ([]models.ConversationTurn, error) {
	if limit <= 0 {
		limit = 6
	}
	rows, err := r.db.Pool.Query(ctx, `
SELECT id, conversation_id, user_id, query, response, metadata, created_at
FROM conversation_turns
WHERE conversation_id=$1
ORDER BY created_at DESC
LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("conversation history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ConversationTurn, 0, limit)
	for rows.Next() {
		var t models.ConversationTurn
		var metaRaw []byte
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.UserID, &t.Query, &t.Response, &metaRaw, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation turn: %w", err)
		}
		if len(metaRaw) > 0 {
			_ = json.Unmarshal(metaRaw, &t.Metadata)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// rows come back newest-first; reverse to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
