package workflows

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker) {
	w.RegisterWorkflow(IngestSyncWorkflow)
	w.RegisterWorkflow(EmbeddingDrainWorkflow)
	w.RegisterWorkflow(ProcessPendingWorkflow)
}
