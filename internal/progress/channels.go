package progress

import "fmt"

// Channel name helpers for the checkpoints the Ingestion Coordinator,
// Embedding Pipeline, and RAG Pipeline publish at.

func SyncProgressChannel(source string) string { return fmt.Sprintf("sync:%s:progress", source) }
func SyncCompleteChannel(source string) string { return fmt.Sprintf("sync:%s:complete", source) }
func SyncErrorChannel(source string) string    { return fmt.Sprintf("sync:%s:error", source) }

const (
	EmbeddingProgressChannel = "embeddings:progress"
	RAGProgressChannel       = "rag:progress"
	RAGCompleteChannel       = "rag:complete"
	RAGErrorChannel          = "rag:error"
)

// SyncProgress describes an ingestion run's position in its state machine.
// The API server's sync poller publishes workflows.IngestSyncProgress
// values, not this type.
type SyncProgress struct {
	SyncID           string `json:"sync_id"`
	Source           string `json:"source"`
	State            string `json:"state"`
	DocumentsFetched int    `json:"documents_fetched"`
	DocumentsStored  int    `json:"documents_stored"`
}

// EmbeddingProgress describes how far the embedding pipeline has drained its
// backlog. The API server's drain poller publishes
// workflows.EmbeddingDrainProgress values, not this type.
type EmbeddingProgress struct {
	BatchID   string `json:"batch_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}
