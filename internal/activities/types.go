package activities

import "time"

// FetchAndNormalizeInput drives one full or incremental pull. Fetch and
// normalize run inside a single activity because the connector's raw
// upstream records (e.g. an UpstreamMessage struct riding in
// connectors.RawRecord.Body) never need to survive a Temporal payload
// round-trip; only the normalized result does.
type FetchAndNormalizeInput struct {
	UserID string `json:"user_id"`
	Source string `json:"source"`
	Mode   string `json:"mode"`
	Since  int64  `json:"since,omitempty"`
}

type FetchAndNormalizeOutput struct {
	Documents []DocumentPayload `json:"documents"`
	Fetched   int               `json:"fetched"`
	Dropped   int               `json:"dropped"`
}

// DocumentPayload is models.Document flattened to primitives that survive
// a Temporal payload round-trip without a custom converter.
type DocumentPayload struct {
	DocumentID string         `json:"document_id"`
	UserID     string         `json:"user_id"`
	Source     string         `json:"source"`
	Type       string         `json:"type"`
	Content    string         `json:"content"`
	Title      string         `json:"title,omitempty"`
	Author     string         `json:"author,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type StoreInput struct {
	Documents []DocumentPayload `json:"documents"`
}

type StoreOutput struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type FetchPendingEmbeddingsInput struct {
	Limit int `json:"limit"`
}

type FetchPendingEmbeddingsOutput struct {
	DocumentIDs []string `json:"document_ids"`
	Texts       []string `json:"texts"`
}

type EmbedBatchInput struct {
	DocumentIDs []string `json:"document_ids"`
	Texts       []string `json:"texts"`
}

type EmbedBatchOutput struct {
	DocumentIDs []string    `json:"document_ids"`
	Vectors     [][]float32 `json:"vectors"`
	TotalTokens int         `json:"total_tokens"`
	Model       string      `json:"model"`
}

type LogEmbeddingCostInput struct {
	BatchID       string  `json:"batch_id"`
	Model         string  `json:"model"`
	DocumentCount int     `json:"document_count"`
	TotalTokens   int     `json:"total_tokens"`
	Status        string  `json:"status"`
}

type UpdateSyncLogInput struct {
	SyncID            string     `json:"sync_id"`
	Status            string     `json:"status"`
	DocumentsFetched  int        `json:"documents_fetched"`
	DocumentsStored   int        `json:"documents_stored"`
	DocumentsSkipped  int        `json:"documents_skipped"`
	DocumentsFailed   int        `json:"documents_failed"`
	LastSyncTimestamp *time.Time `json:"last_sync_timestamp,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
}

type CreateSyncLogInput struct {
	SyncID string `json:"sync_id"`
	UserID string `json:"user_id"`
	Source string `json:"source"`
}
