package models

import "time"

// Document is one normalized record from any connected source.
type Document struct {
	DocumentID            string     `json:"document_id"`
	UserID                string     `json:"user_id"`
	Source                string     `json:"source"`
	Type                  string     `json:"type"`
	Content               string     `json:"content"`
	Title                 string     `json:"title,omitempty"`
	Author                string     `json:"author,omitempty"`
	Timestamp             time.Time  `json:"timestamp"`
	Metadata              Metadata   `json:"metadata,omitempty"`
	Embedding             []float32  `json:"embedding,omitempty"`
	NeedsEmbedding        bool       `json:"needs_embedding"`
	EmbeddingModel        string     `json:"embedding_model,omitempty"`
	EmbeddingTokens       int        `json:"embedding_tokens,omitempty"`
	EmbeddingGeneratedAt  *time.Time `json:"embedding_generated_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Metadata is a source-specific structured blob (recipients/labels for
// email, attendees/location for calendar, artist/album for music).
type Metadata map[string]any

const (
	SourceEmail    = "email"
	SourceCalendar = "calendar"
	SourceMusic    = "music"

	TypeMessage = "message"
	TypeEvent   = "event"
	TypeTrack   = "track"
)

// SyncLog records one ingestion run for a (user, source).
type SyncLog struct {
	ID                string     `json:"id"`
	UserID            string     `json:"user_id"`
	Source            string     `json:"source"`
	Status            string     `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	DocumentsFetched  int        `json:"documents_fetched"`
	DocumentsStored   int        `json:"documents_stored"`
	DocumentsSkipped  int        `json:"documents_skipped"`
	DocumentsFailed   int        `json:"documents_failed"`
	LastSyncTimestamp *time.Time `json:"last_sync_timestamp,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
}

const (
	SyncStatusInProgress = "in_progress"
	SyncStatusSuccess    = "success"
	SyncStatusFailed     = "failed"
)

// IsTerminal reports whether the SyncLog has reached success or failed,
// after which it must not be mutated further.
func (s SyncLog) IsTerminal() bool {
	return s.Status == SyncStatusSuccess || s.Status == SyncStatusFailed
}

// Credential is treated as an opaque collaborator: the ingestion core only
// ever asks for "a currently valid access token for (user, source)".
type Credential struct {
	UserID       string    `json:"user_id"`
	Source       string    `json:"source"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scopes       []string  `json:"scopes,omitempty"`
}

func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// EmbeddingCost is an audit row for one embedding batch run.
type EmbeddingCost struct {
	BatchID        string    `json:"batch_id"`
	Model          string    `json:"model"`
	DocumentCount  int       `json:"document_count"`
	TotalTokens    int       `json:"total_tokens"`
	EstimatedCost  float64   `json:"estimated_cost"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationTurn is a chronological user-query/model-answer pair.
type ConversationTurn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Query          string    `json:"query"`
	Response       string    `json:"response"`
	Metadata       Metadata  `json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SearchResult is one row returned by the vector store, before ranking.
type SearchResult struct {
	Document     Document `json:"document"`
	Similarity   float64  `json:"similarity"`
	KeywordBoost float64  `json:"keyword_boost,omitempty"`
}

// SearchFilters narrows a vector or hybrid search.
type SearchFilters struct {
	Source          string
	Type            string
	Author          string
	PotentialAuthor string
	TimeStart       *time.Time
	TimeEnd         *time.Time
}
