package activities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corvid-labs/corpusmind/internal/apperrors"
	"github.com/corvid-labs/corpusmind/internal/config"
	"github.com/corvid-labs/corpusmind/internal/connectors"
	"github.com/corvid-labs/corpusmind/internal/connectors/email"
	"github.com/corvid-labs/corpusmind/internal/models"
	"github.com/corvid-labs/corpusmind/internal/providers"
	"github.com/corvid-labs/corpusmind/internal/storage"
	"github.com/corvid-labs/corpusmind/internal/vector"
)

type Activities struct {
	cfg config.Config

	documentRepo      *storage.DocumentRepo
	syncLogRepo       *storage.SyncLogRepo
	embeddingCostRepo *storage.EmbeddingCostRepo
	credentialRepo    *storage.CredentialRepo

	searcher  *vector.Searcher
	providers *providers.Manager

	connectors map[string]connectors.Connector
}

func New(cfg config.Config, db *storage.DB) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	credentialRepo := storage.NewCredentialRepo(db)

	return &Activities{
		cfg:               cfg,
		documentRepo:      storage.NewDocumentRepo(db),
		syncLogRepo:       storage.NewSyncLogRepo(db),
		embeddingCostRepo: storage.NewEmbeddingCostRepo(db),
		credentialRepo:    credentialRepo,
		searcher:          vector.NewSearcher(db.Pool),
		providers:         pm,
		connectors:        buildConnectors(cfg, credentialRepo),
	}, nil
}

func buildConnectors(cfg config.Config, credentialRepo *storage.CredentialRepo) map[string]connectors.Connector {
	emailFactory := email.NewMockClientFactory()
	if strings.EqualFold(strings.TrimSpace(cfg.EmailProvider), "gmail") {
		emailFactory = func(ctx context.Context, accessToken string) (email.UpstreamClient, error) {
			return email.NewGmailClient(ctx, accessToken)
		}
	}
	return map[string]connectors.Connector{
		models.SourceEmail: email.New(credentialRepo, emailFactory, cfg.SyncRateLimitPerSecond),
	}
}

// FetchAndNormalizeActivity authenticates against the requested source,
// drains its fetch channel, and normalizes every record before returning.
// Fetch and normalize share one activity because connectors.RawRecord.Body
// carries a concrete upstream struct that a JSON payload round-trip between
// two separate activities would flatten into an untyped map.
func (a *Activities) FetchAndNormalizeActivity(ctx context.Context, in FetchAndNormalizeInput) (FetchAndNormalizeOutput, error) {
	conn, ok := a.connectors[in.Source]
	if !ok {
		return FetchAndNormalizeOutput{}, fmt.Errorf("no connector registered for source %q", in.Source)
	}
	if err := conn.Authenticate(ctx, in.UserID); err != nil {
		return FetchAndNormalizeOutput{}, fmt.Errorf("authenticate %s: %w", in.Source, err)
	}

	var raws <-chan connectors.RawRecord
	var errs <-chan error
	since := in.Since
	if in.Mode == "incremental" && since <= 0 {
		cursor, err := a.syncLogRepo.LastSuccessfulCursor(ctx, in.UserID, in.Source)
		if err != nil {
			return FetchAndNormalizeOutput{}, fmt.Errorf("resume cursor %s: %w", in.Source, err)
		}
		if cursor != nil {
			since = cursor.Unix()
		}
	}
	if in.Mode == "incremental" && since > 0 {
		raws, errs = conn.FetchNew(ctx, time.Unix(since, 0).UTC())
	} else {
		raws, errs = conn.FetchAll(ctx, connectors.FetchOptions{})
	}

	attachConn, _ := conn.(connectors.AttachmentNormalizer)

	out := FetchAndNormalizeOutput{}
	for raw := range raws {
		out.Fetched++
		doc, ok, err := conn.Normalize(raw)
		if err != nil || !ok {
			out.Dropped++
			continue
		}
		out.Documents = append(out.Documents, documentToPayload(doc))

		if attachConn == nil {
			continue
		}
		for _, attDoc := range attachConn.NormalizeAttachments(raw) {
			out.Documents = append(out.Documents, documentToPayload(attDoc))
		}
	}
	if err := <-errs; err != nil {
		return out, fmt.Errorf("fetch %s: %w", in.Source, err)
	}
	return out, nil
}

// StoreActivity persists normalized documents idempotently: a document_id
// already on file is skipped rather than treated as a failure.
func (a *Activities) StoreActivity(ctx context.Context, in StoreInput) (StoreOutput, error) {
	out := StoreOutput{}
	for _, p := range in.Documents {
		doc := payloadToDocument(p)
		err := a.documentRepo.CreateDocument(ctx, doc)
		switch {
		case err == nil:
			out.Added++
		case isDuplicate(err):
			out.Skipped++
		default:
			out.Failed++
		}
	}
	return out, nil
}

func (a *Activities) FetchPendingEmbeddingsActivity(ctx context.Context, in FetchPendingEmbeddingsInput) (FetchPendingEmbeddingsOutput, error) {
	docs, err := a.documentRepo.FetchNeedingEmbedding(ctx, in.Limit)
	if err != nil {
		return FetchPendingEmbeddingsOutput{}, err
	}
	out := FetchPendingEmbeddingsOutput{
		DocumentIDs: make([]string, 0, len(docs)),
		Texts:       make([]string, 0, len(docs)),
	}
	for _, d := range docs {
		out.DocumentIDs = append(out.DocumentIDs, d.DocumentID)
		out.Texts = append(out.Texts, embeddingInput(d))
	}
	return out, nil
}

// EmbedBatchActivity embeds a chunk of pending documents and writes the
// vectors back transactionally. A provider failure aborts the whole chunk;
// the caller logs it and moves on, so partial progress from earlier chunks
// in the same drain survives.
func (a *Activities) EmbedBatchActivity(ctx context.Context, in EmbedBatchInput) (EmbedBatchOutput, error) {
	if len(in.Texts) == 0 {
		return EmbedBatchOutput{}, nil
	}
	var results []providers.EmbedResult
	var info providers.ProviderInfo
	err := providers.WithRetry(ctx, 3, func() error {
		var embedErr error
		results, info, embedErr = a.providers.Embedding().EmbedBatch(ctx, in.Texts)
		return embedErr
	})
	if err != nil {
		return EmbedBatchOutput{}, fmt.Errorf("embed batch: %w", err)
	}

	updates := make([]storage.EmbeddingUpdate, 0, len(results))
	vectors := make([][]float32, 0, len(results))
	totalTokens := 0
	for i, r := range results {
		if i >= len(in.DocumentIDs) {
			break
		}
		updates = append(updates, storage.EmbeddingUpdate{
			DocumentID: in.DocumentIDs[i],
			Vector:     r.Vector,
			Tokens:     r.Tokens,
			Model:      info.Model,
		})
		vectors = append(vectors, r.Vector)
		totalTokens += r.Tokens
	}
	if err := a.documentRepo.BatchUpdateEmbeddings(ctx, updates); err != nil {
		return EmbedBatchOutput{}, fmt.Errorf("batch update embeddings: %w", err)
	}
	return EmbedBatchOutput{
		DocumentIDs: in.DocumentIDs[:len(updates)],
		Vectors:     vectors,
		TotalTokens: totalTokens,
		Model:       info.Model,
	}, nil
}

func (a *Activities) LogEmbeddingCostActivity(ctx context.Context, in LogEmbeddingCostInput) error {
	cost := estimateEmbeddingCost(a.cfg.CostPerMillionTokens, in.TotalTokens)
	return a.embeddingCostRepo.Insert(ctx, in.BatchID, in.Model, in.DocumentCount, in.TotalTokens, cost, in.Status)
}

func (a *Activities) CreateSyncLogActivity(ctx context.Context, in CreateSyncLogInput) error {
	return a.syncLogRepo.Create(ctx, in.SyncID, in.UserID, in.Source)
}

func (a *Activities) UpdateSyncLogActivity(ctx context.Context, in UpdateSyncLogInput) error {
	return a.syncLogRepo.Complete(ctx, in.SyncID, in.Status, in.DocumentsFetched, in.DocumentsStored, in.DocumentsSkipped, in.DocumentsFailed, in.LastSyncTimestamp, in.ErrorMessage)
}

func documentToPayload(d models.Document) DocumentPayload {
	return DocumentPayload{
		DocumentID: d.DocumentID,
		UserID:     d.UserID,
		Source:     d.Source,
		Type:       d.Type,
		Content:    d.Content,
		Title:      d.Title,
		Author:     d.Author,
		Timestamp:  d.Timestamp,
		Metadata:   d.Metadata,
	}
}

func payloadToDocument(p DocumentPayload) models.Document {
	return models.Document{
		DocumentID:     p.DocumentID,
		UserID:         p.UserID,
		Source:         p.Source,
		Type:           p.Type,
		Content:        p.Content,
		Title:          p.Title,
		Author:         p.Author,
		Timestamp:      p.Timestamp,
		Metadata:       p.Metadata,
		NeedsEmbedding: true,
	}
}

// embeddingInput builds the text an embedding model sees for a document,
// folding the title in so a subject line counts toward the vector.
func embeddingInput(d models.Document) string {
	if d.Title == "" {
		return d.Content
	}
	return d.Title + "\n\n" + d.Content
}

func isDuplicate(err error) bool {
	return errors.Is(err, apperrors.ErrDuplicate)
}

// estimateEmbeddingCost applies the operator-configured COST_PER_MILLION_TOKENS
// rate (config.Config.CostPerMillionTokens) rather than a rate hardcoded to
// one provider's pricing, so a deployment can track spend against whatever
// embedding model it actually runs.
func estimateEmbeddingCost(costPerMillionTokens float64, tokens int) float64 {
	return float64(tokens) / 1_000_000 * costPerMillionTokens
}
