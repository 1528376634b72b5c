package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.FetchAndNormalizeActivity)
	w.RegisterActivity(a.StoreActivity)
	w.RegisterActivity(a.FetchPendingEmbeddingsActivity)
	w.RegisterActivity(a.EmbedBatchActivity)
	w.RegisterActivity(a.LogEmbeddingCostActivity)
	w.RegisterActivity(a.CreateSyncLogActivity)
	w.RegisterActivity(a.UpdateSyncLogActivity)
}
