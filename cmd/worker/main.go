package main

import (
	"context"
	"log"
	"time"

	"github.com/corvid-labs/corpusmind/internal/activities"
	"github.com/corvid-labs/corpusmind/internal/config"
	"github.com/corvid-labs/corpusmind/internal/storage"
	"github.com/corvid-labs/corpusmind/internal/workflows"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := storage.Bootstrap(migrateCtx, cfg.PostgresURL); err != nil {
		migrateCancel()
		log.Fatalf("schema bootstrap: %v", err)
	}
	migrateCancel()

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	a, err := activities.New(cfg, db)
	if err != nil {
		log.Fatal(err)
	}
	activities.Register(w, a)

	if cfg.EmbeddingCronSchedule != "" {
		startEmbeddingCron(c, cfg)
	}

	log.Printf("corpusmind worker listening on %s queue=%s llm_provider=%s embed_provider=%s", cfg.TemporalAddress, cfg.TemporalTaskQueue, cfg.LLMProvider, cfg.EmbedProvider)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatal(err)
	}
}

// startEmbeddingCron schedules a periodic ProcessPendingWorkflow run on
// EMBEDDING_CRON_SCHEDULE — the lightweight, bounded-batch path (4.F
// process_pending), not the loop-until-empty EmbeddingDrainWorkflow that
// /embedding/generate triggers. A fixed cadence nibbling at the backlog in
// bounded batches is the point of the cron trigger; a full drain belongs to
// an explicit, user-initiated request.
func startEmbeddingCron(c client.Client, cfg config.Config) {
	sched := cron.New()
	err := sched.AddFunc(cfg.EmbeddingCronSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		we, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:                                       "process-pending-cron-" + uuid.NewString(),
			TaskQueue:                                cfg.TemporalTaskQueue,
			WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
			WorkflowExecutionErrorWhenAlreadyStarted: true,
		}, workflows.ProcessPendingWorkflow, workflows.ProcessPendingInput{
			Limit: cfg.EmbeddingProcessPendingLimit,
		})
		if err != nil {
			log.Printf("embedding cron: start process-pending: %v", err)
			return
		}
		log.Printf("embedding cron: started process-pending workflow %s", we.GetID())
	})
	if err != nil {
		log.Fatalf("embedding cron: invalid schedule %q: %v", cfg.EmbeddingCronSchedule, err)
	}
	sched.Start()
}
