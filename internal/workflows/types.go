package workflows

// IngestSyncInput starts one Ingestion Coordinator run for (user_id,
// source). Since is only consulted when Mode is "incremental".
type IngestSyncInput struct {
	SyncID string `json:"sync_id"`
	UserID string `json:"user_id"`
	Source string `json:"source"`
	Mode   string `json:"mode"`
	Since  int64  `json:"since,omitempty"`
}

// IngestSyncProgress is the queryable state of a running sync, mirroring
// the linear state machine of spec.md 4.E.
type IngestSyncProgress struct {
	SyncID           string `json:"sync_id"`
	Source           string `json:"source"`
	State            string `json:"state"`
	DocumentsFetched int    `json:"documents_fetched"`
	DocumentsAdded   int    `json:"documents_added"`
	DocumentsSkipped int    `json:"documents_skipped"`
	DocumentsFailed  int    `json:"documents_failed"`
	ErrorMessage     string `json:"error_message,omitempty"`
}

// EmbeddingDrainInput drains the embedding backlog, optionally scoped to a
// SyncID for progress-stream correlation; SyncID is empty for a
// standalone drain not triggered by an ingestion run.
type EmbeddingDrainInput struct {
	SyncID string `json:"sync_id,omitempty"`
}

// EmbeddingDrainProgress is the queryable state of a running drain.
type EmbeddingDrainProgress struct {
	BatchesProcessed  int  `json:"batches_processed"`
	DocumentsEmbedded int  `json:"documents_embedded"`
	DocumentsFailed   int  `json:"documents_failed"`
	Done              bool `json:"done"`
}

// ProcessPendingInput bounds one lightweight embedding pass to Limit
// documents (default 50), the periodic-trigger counterpart to
// EmbeddingDrainInput's loop-until-empty drain.
type ProcessPendingInput struct {
	Limit int `json:"limit,omitempty"`
}
