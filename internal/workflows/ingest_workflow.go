package workflows

import (
	"time"

	"github.com/corvid-labs/corpusmind/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetIngestProgress = "GetIngestProgress"

// IngestSyncWorkflow drives the Ingestion Coordinator's linear state
// machine: fetching -> normalizing -> storing -> embedding_start ->
// embedding -> complete. Any state may transition to failed. Fetch and
// normalize collapse into one activity call (see FetchAndNormalizeActivity),
// so "normalizing" is set and replaced by "storing" with no blocking call in
// between: a caller polling the query handler sees fetching followed
// directly by storing.
func IngestSyncWorkflow(ctx workflow.Context, input IngestSyncInput) (IngestSyncProgress, error) {
	progress := IngestSyncProgress{SyncID: input.SyncID, Source: input.Source, State: "fetching"}
	if err := workflow.SetQueryHandler(ctx, QueryGetIngestProgress, func() (IngestSyncProgress, error) {
		return progress, nil
	}); err != nil {
		return progress, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	fail := func(err error) (IngestSyncProgress, error) {
		progress.State = "failed"
		progress.ErrorMessage = err.Error()
		_ = workflow.ExecuteActivity(ctx, "UpdateSyncLogActivity", activities.UpdateSyncLogInput{
			SyncID:           input.SyncID,
			Status:           "failed",
			DocumentsFetched: progress.DocumentsFetched,
			DocumentsStored:  progress.DocumentsAdded,
			DocumentsSkipped: progress.DocumentsSkipped,
			DocumentsFailed:  progress.DocumentsFailed,
			ErrorMessage:     progress.ErrorMessage,
		}).Get(ctx, nil)
		return progress, err
	}

	if err := workflow.ExecuteActivity(ctx, "CreateSyncLogActivity", activities.CreateSyncLogInput{
		SyncID: input.SyncID,
		UserID: input.UserID,
		Source: input.Source,
	}).Get(ctx, nil); err != nil {
		return fail(err)
	}

	var fetchOut activities.FetchAndNormalizeOutput
	if err := workflow.ExecuteActivity(ctx, "FetchAndNormalizeActivity", activities.FetchAndNormalizeInput{
		UserID: input.UserID,
		Source: input.Source,
		Mode:   input.Mode,
		Since:  input.Since,
	}).Get(ctx, &fetchOut); err != nil {
		return fail(err)
	}
	progress.DocumentsFetched = fetchOut.Fetched
	progress.DocumentsFailed = fetchOut.Dropped
	progress.State = "normalizing"

	progress.State = "storing"
	const storeChunkSize = 25
	for i := 0; i < len(fetchOut.Documents); i += storeChunkSize {
		end := i + storeChunkSize
		if end > len(fetchOut.Documents) {
			end = len(fetchOut.Documents)
		}
		var storeOut activities.StoreOutput
		if err := workflow.ExecuteActivity(ctx, "StoreActivity", activities.StoreInput{
			Documents: fetchOut.Documents[i:end],
		}).Get(ctx, &storeOut); err != nil {
			return fail(err)
		}
		progress.DocumentsAdded += storeOut.Added
		progress.DocumentsSkipped += storeOut.Skipped
		progress.DocumentsFailed += storeOut.Failed
	}

	progress.State = "embedding_start"
	now := workflow.Now(ctx)
	if err := workflow.ExecuteActivity(ctx, "UpdateSyncLogActivity", activities.UpdateSyncLogInput{
		SyncID:            input.SyncID,
		Status:            "success",
		DocumentsFetched:  progress.DocumentsFetched,
		DocumentsStored:   progress.DocumentsAdded,
		DocumentsSkipped:  progress.DocumentsSkipped,
		DocumentsFailed:   progress.DocumentsFailed,
		LastSyncTimestamp: &now,
	}).Get(ctx, nil); err != nil {
		return fail(err)
	}

	progress.State = "embedding"
	var drainProgress EmbeddingDrainProgress
	drainCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID: "drain-" + input.SyncID,
	})
	if err := workflow.ExecuteChildWorkflow(drainCtx, EmbeddingDrainWorkflow, EmbeddingDrainInput{
		SyncID: input.SyncID,
	}).Get(ctx, &drainProgress); err != nil {
		return fail(err)
	}

	progress.State = "complete"
	return progress, nil
}
