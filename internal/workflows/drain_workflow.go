package workflows

import (
	"fmt"
	"time"

	"github.com/corvid-labs/corpusmind/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetDrainProgress         = "GetDrainProgress"
	QueryGetProcessPendingProgress = "GetProcessPendingProgress"

	drainBatchLimit        = 50
	defaultPendingBatchLimit = 50
	drainChunkSize          = 10
	interChunkDelay         = 400 * time.Millisecond
	interDrainDelay         = 500 * time.Millisecond
)

// EmbeddingDrainWorkflow implements 4.F's drain_all_pending: it calls
// process_pending in a loop until a fetch of the backlog comes back empty.
// Each pending batch is embedded in chunks of drainChunkSize so a single bad
// document can't stall or void an entire batch's progress; a chunk failure
// is logged, its documents are counted as failed, and the drain continues.
// Progress carries running counts (batches, documents embedded, documents
// failed), not a percentage; Done is set only once a fetch of the backlog
// comes back empty, since the total pending count keeps shifting while a
// live ingestion run is still storing new documents.
func EmbeddingDrainWorkflow(ctx workflow.Context, input EmbeddingDrainInput) (EmbeddingDrainProgress, error) {
	progress := EmbeddingDrainProgress{}
	if err := workflow.SetQueryHandler(ctx, QueryGetDrainProgress, func() (EmbeddingDrainProgress, error) {
		return progress, nil
	}); err != nil {
		return progress, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	for {
		var pending activities.FetchPendingEmbeddingsOutput
		if err := workflow.ExecuteActivity(ctx, "FetchPendingEmbeddingsActivity", activities.FetchPendingEmbeddingsInput{
			Limit: drainBatchLimit,
		}).Get(ctx, &pending); err != nil {
			return progress, err
		}
		if len(pending.DocumentIDs) == 0 {
			break
		}

		if err := embedOneBatch(ctx, input.SyncID, pending, &progress); err != nil {
			return progress, err
		}

		_ = workflow.Sleep(ctx, interDrainDelay)
	}

	progress.Done = true
	return progress, nil
}

// ProcessPendingWorkflow implements 4.F's process_pending(limit): one
// bounded batch, not a loop. It is the lightweight counterpart to
// EmbeddingDrainWorkflow, meant for a periodic trigger (cmd/worker's
// EMBEDDING_CRON_SCHEDULE) that should nibble at the backlog on a fixed
// cadence rather than hold a worker slot draining it to empty.
func ProcessPendingWorkflow(ctx workflow.Context, input ProcessPendingInput) (EmbeddingDrainProgress, error) {
	progress := EmbeddingDrainProgress{}
	if err := workflow.SetQueryHandler(ctx, QueryGetProcessPendingProgress, func() (EmbeddingDrainProgress, error) {
		return progress, nil
	}); err != nil {
		return progress, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 3 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	limit := input.Limit
	if limit <= 0 {
		limit = defaultPendingBatchLimit
	}

	var pending activities.FetchPendingEmbeddingsOutput
	if err := workflow.ExecuteActivity(ctx, "FetchPendingEmbeddingsActivity", activities.FetchPendingEmbeddingsInput{
		Limit: limit,
	}).Get(ctx, &pending); err != nil {
		return progress, err
	}
	if len(pending.DocumentIDs) == 0 {
		progress.Done = true
		return progress, nil
	}

	if err := embedOneBatch(ctx, "pending", pending, &progress); err != nil {
		return progress, err
	}
	progress.Done = true
	return progress, nil
}

func embedOneBatch(ctx workflow.Context, syncID string, pending activities.FetchPendingEmbeddingsOutput, progress *EmbeddingDrainProgress) error {
	batchID := fmt.Sprintf("batch-%s-%d", syncID, workflow.Now(ctx).UnixNano())
	totalTokens := 0
	embedded := 0
	model := ""

	for i := 0; i < len(pending.DocumentIDs); i += drainChunkSize {
		end := i + drainChunkSize
		if end > len(pending.DocumentIDs) {
			end = len(pending.DocumentIDs)
		}

		var out activities.EmbedBatchOutput
		err := workflow.ExecuteActivity(ctx, "EmbedBatchActivity", activities.EmbedBatchInput{
			DocumentIDs: pending.DocumentIDs[i:end],
			Texts:       pending.Texts[i:end],
		}).Get(ctx, &out)
		if err != nil {
			workflow.GetLogger(ctx).Warn("embedding chunk failed", "batch_id", batchID, "documents", end-i, "error", err)
			progress.DocumentsFailed += end - i
			continue
		}

		embedded += len(out.DocumentIDs)
		totalTokens += out.TotalTokens
		progress.DocumentsEmbedded += len(out.DocumentIDs)
		if out.Model != "" {
			model = out.Model
		}

		if i+drainChunkSize < len(pending.DocumentIDs) {
			_ = workflow.Sleep(ctx, interChunkDelay)
		}
	}

	progress.BatchesProcessed++
	status := "complete"
	if embedded < len(pending.DocumentIDs) {
		status = "partial"
	}
	return workflow.ExecuteActivity(ctx, "LogEmbeddingCostActivity", activities.LogEmbeddingCostInput{
		BatchID:       batchID,
		Model:         model,
		DocumentCount: embedded,
		TotalTokens:   totalTokens,
		Status:        status,
	}).Get(ctx, nil)
}
