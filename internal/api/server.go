package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/corvid-labs/corpusmind/internal/apperrors"
	"github.com/corvid-labs/corpusmind/internal/config"
	"github.com/corvid-labs/corpusmind/internal/models"
	"github.com/corvid-labs/corpusmind/internal/progress"
	"github.com/corvid-labs/corpusmind/internal/providers"
	"github.com/corvid-labs/corpusmind/internal/rag"
	"github.com/corvid-labs/corpusmind/internal/storage"
	"github.com/corvid-labs/corpusmind/internal/vector"
	"github.com/corvid-labs/corpusmind/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

// Server wires the HTTP surface to the document store, the provider
// manager, the RAG pipeline, and a Temporal client for the long-running
// ingestion and embedding workflows.
type Server struct {
	cfg config.Config
	db  *storage.DB

	documentRepo      *storage.DocumentRepo
	syncLogRepo       *storage.SyncLogRepo
	conversationRepo  *storage.ConversationRepo
	embeddingCostRepo *storage.EmbeddingCostRepo

	searcher  *vector.Searcher
	providers *providers.Manager
	pipeline  *rag.Pipeline
	bus       *progress.Bus
	temporal  tclient.Client
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}

	searcher := vector.NewSearcher(db.Pool)
	cache := vector.NewEmbeddingCache(cfg.EmbeddingCacheSize, time.Duration(cfg.EmbeddingCacheTTL)*time.Second)

	s := &Server{
		cfg:               cfg,
		db:                db,
		documentRepo:      storage.NewDocumentRepo(db),
		syncLogRepo:       storage.NewSyncLogRepo(db),
		conversationRepo:  storage.NewConversationRepo(db),
		embeddingCostRepo: storage.NewEmbeddingCostRepo(db),
		searcher:          searcher,
		providers:         pm,
		pipeline:          rag.NewPipeline(pm.Embedding(), searcher, cache, cfg),
		bus:               progress.NewBus(),
		temporal:          tc,
	}
	return s
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/chat/message", s.handleChatMessage)
	mux.HandleFunc("/chat/message/stream", s.handleChatMessageStream)
	mux.HandleFunc("/chat/conversation", s.handleChatConversation)
	mux.HandleFunc("/chat/history/", s.handleChatHistory)
	mux.HandleFunc("/sync/status/", s.handleSyncStatus)
	mux.HandleFunc("/sync/history", s.handleSyncHistory)
	mux.HandleFunc("/sync/", s.handleSyncTrigger)
	mux.HandleFunc("/embedding/generate", s.handleEmbeddingGenerate)
	mux.HandleFunc("/embedding/status", s.handleEmbeddingStatus)
	mux.HandleFunc("/embedding/stats", s.handleEmbeddingStats)
	mux.HandleFunc("/embedding/reprocess", s.handleEmbeddingReprocess)
	mux.HandleFunc("/embedding/mark-pending", s.handleEmbeddingMarkPending)
	mux.HandleFunc("/embedding/diagnose", s.handleEmbeddingDiagnose)
	mux.HandleFunc("/events", s.handleEvents)
	return withCORS(s.cfg, mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]any{"ok": true})
}

// --- chat ---------------------------------------------------------------

type chatMessageRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
		if err := s.conversationRepo.CreateConversation(r.Context(), conversationID, req.UserID); err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
	}

	start := time.Now()
	resp, err := s.pipeline.Run(r.Context(), time.Now().UTC(), req.Message)
	if err != nil {
		s.bus.Publish(progress.RAGErrorChannel, progress.Event{Channel: progress.RAGErrorChannel, UserID: req.UserID, Payload: err.Error()})
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	s.bus.Publish(progress.RAGProgressChannel, progress.Event{Channel: progress.RAGProgressChannel, UserID: req.UserID, Payload: resp.RetrievalMeta})

	genResp, genInfo, err := s.providers.LLM().Generate(r.Context(), providers.GenerateRequest{
		Prompt:         resp.Prompt,
		Temperature:    s.cfg.LLMTemperature,
		TopP:           s.cfg.LLMTopP,
		MaxOutputToken: s.cfg.LLMMaxOutputToken,
	})
	if err != nil {
		s.bus.Publish(progress.RAGErrorChannel, progress.Event{Channel: progress.RAGErrorChannel, UserID: req.UserID, Payload: err.Error()})
		writeErr(w, http.StatusBadGateway, err)
		return
	}

	queryID := uuid.NewString()
	selected := make([]string, 0, len(resp.Citations))
	for _, c := range resp.Citations {
		selected = append(selected, c.DocumentID)
	}

	turn := models.ConversationTurn{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		UserID:         req.UserID,
		Query:          req.Message,
		Response:       genResp.Text,
		Metadata: models.Metadata{
			"intent": resp.ProcessedQuery.Intent,
			"model":  genInfo.Model,
		},
	}
	if err := s.conversationRepo.AppendTurn(r.Context(), turn); err != nil {
		log.Printf("chat: append turn: %v", err)
	}

	s.bus.Publish(progress.RAGCompleteChannel, progress.Event{Channel: progress.RAGCompleteChannel, UserID: req.UserID, Payload: queryID})

	writeData(w, http.StatusOK, map[string]any{
		"queryId": queryID,
		"response": genResp.Text,
		"context": map[string]any{
			"documentsUsed":     len(resp.Citations),
			"totalDocuments":    resp.RetrievalMeta.ResultCount,
			"selectedDocuments": selected,
		},
		"metadata": map[string]any{
			"intent":   resp.ProcessedQuery.Intent,
			"tokens":   genResp.Tokens,
			"duration": time.Since(start).Milliseconds(),
			"model":    genInfo.Model,
		},
		"conversationId": conversationID,
	})
}

// handleChatMessageStream mirrors handleChatMessage but streams the answer
// as server-sent events: one "context" frame, one or more "text" frames,
// a "done" frame, then the literal [DONE] terminator.
func (s *Server) handleChatMessageStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	setSSEHeaders(w)

	queryID := uuid.NewString()
	resp, err := s.pipeline.Run(r.Context(), time.Now().UTC(), req.Message)
	if err != nil {
		writeSSE(w, flusher, "error", queryID, err.Error())
		return
	}
	writeSSE(w, flusher, "context", queryID, map[string]any{
		"documentsUsed":  len(resp.Citations),
		"totalDocuments": resp.RetrievalMeta.ResultCount,
		"citations":      resp.Citations,
	})

	chunks, err := s.providers.LLM().GenerateStream(r.Context(), providers.GenerateRequest{
		Prompt:         resp.Prompt,
		Temperature:    s.cfg.LLMTemperature,
		TopP:           s.cfg.LLMTopP,
		MaxOutputToken: s.cfg.LLMMaxOutputToken,
	})
	if err != nil {
		writeSSE(w, flusher, "error", queryID, err.Error())
		return
	}
	var full strings.Builder
	for chunk := range chunks {
		if chunk.Done {
			break
		}
		full.WriteString(chunk.Text)
		writeSSE(w, flusher, "text", queryID, chunk.Text)
	}
	writeSSE(w, flusher, "done", queryID, nil)
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()

	turn := models.ConversationTurn{
		ID:             uuid.NewString(),
		ConversationID: strings.TrimSpace(req.ConversationID),
		UserID:         req.UserID,
		Query:          req.Message,
		Response:       full.String(),
	}
	if turn.ConversationID != "" {
		if err := s.conversationRepo.AppendTurn(r.Context(), turn); err != nil {
			log.Printf("chat stream: append turn: %v", err)
		}
	}
}

func (s *Server) handleChatConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		UserID string `json:"userId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	conversationID := uuid.NewString()
	if err := s.conversationRepo.CreateConversation(r.Context(), conversationID, req.UserID); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]any{"conversationId": conversationID})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	conversationID := strings.TrimPrefix(r.URL.Path, "/chat/history/")
	if conversationID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("conversationId is required"))
		return
	}
	limit := parseIntDefault(r.URL.Query().Get("limit"), 0)
	turns, err := s.conversationRepo.History(r.Context(), conversationID, limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"turns": turns})
}

// --- sync -----------------------------------------------------------------

func (s *Server) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	source := strings.Trim(strings.TrimPrefix(r.URL.Path, "/sync/"), "/")
	if source == "" || strings.Contains(source, "/") {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		UserID    string `json:"userId"`
		SyncType  string `json:"syncType"`
		SinceDate string `json:"sinceDate"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("userId is required"))
		return
	}
	mode := "incremental"
	if req.SyncType == "full" {
		mode = "full"
	}
	var since int64
	if mode == "incremental" && req.SinceDate != "" {
		if t, err := time.Parse(time.RFC3339, req.SinceDate); err == nil {
			since = t.Unix()
		}
	}

	syncID := uuid.NewString()
	wfID := "sync-" + syncID
	_, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       wfID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.IngestSyncWorkflow, workflows.IngestSyncInput{
		SyncID: syncID,
		UserID: req.UserID,
		Source: source,
		Mode:   mode,
		Since:  since,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	go s.pollSyncProgress(wfID, source, req.UserID)
	writeData(w, http.StatusAccepted, map[string]any{"syncId": syncID, "status": "running"})
}

// pollSyncProgress republishes a running IngestSyncWorkflow's queryable
// state onto the progress bus until it reaches a terminal state, bridging
// Temporal's poll-based query handler into the live push-channel model of
// 4.L for callers that subscribed via /events instead of /sync/status.
func (s *Server) pollSyncProgress(workflowID, source, userID string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var p workflows.IngestSyncProgress
			resp, err := s.temporal.QueryWorkflow(ctx, workflowID, "", workflows.QueryGetIngestProgress)
			if err != nil || resp.Get(&p) != nil {
				return
			}
			switch p.State {
			case "complete":
				s.bus.Publish(progress.SyncCompleteChannel(source), progress.Event{Channel: progress.SyncCompleteChannel(source), UserID: userID, Payload: p})
				return
			case "failed":
				s.bus.Publish(progress.SyncErrorChannel(source), progress.Event{Channel: progress.SyncErrorChannel(source), UserID: userID, Payload: p})
				return
			default:
				s.bus.Publish(progress.SyncProgressChannel(source), progress.Event{Channel: progress.SyncProgressChannel(source), UserID: userID, Payload: p})
			}
		}
	}
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	syncID := strings.TrimPrefix(r.URL.Path, "/sync/status/")
	if syncID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("syncId is required"))
		return
	}

	var liveProgress workflows.IngestSyncProgress
	resp, err := s.temporal.QueryWorkflow(r.Context(), "sync-"+syncID, "", workflows.QueryGetIngestProgress)
	if err == nil && resp.Get(&liveProgress) == nil {
		writeData(w, http.StatusOK, liveProgress)
		return
	}

	log, err := s.syncLogRepo.Get(r.Context(), syncID)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeData(w, http.StatusOK, log)
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	q := r.URL.Query()
	limit := parseIntDefault(q.Get("limit"), 20)
	history, err := s.syncLogRepo.History(r.Context(), q.Get("userId"), q.Get("source"), limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"history": history})
}

// --- embedding --------------------------------------------------------

func (s *Server) handleEmbeddingGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "drain-" + uuid.NewString(),
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.EmbeddingDrainWorkflow, workflows.EmbeddingDrainInput{})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	go s.pollDrainProgress(we.GetID())
	writeData(w, http.StatusAccepted, map[string]any{"workflowId": we.GetID()})
}

func (s *Server) pollDrainProgress(workflowID string) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var p workflows.EmbeddingDrainProgress
			resp, err := s.temporal.QueryWorkflow(ctx, workflowID, "", workflows.QueryGetDrainProgress)
			if err != nil || resp.Get(&p) != nil {
				return
			}
			s.bus.Publish(progress.EmbeddingProgressChannel, progress.Event{Channel: progress.EmbeddingProgressChannel, Payload: p})
			if p.Done {
				return
			}
		}
	}
}

func (s *Server) handleEmbeddingStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	stats, err := s.embeddingCostRepo.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"pendingCount": stats.PendingCount,
	})
}

func (s *Server) handleEmbeddingStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	stats, err := s.embeddingCostRepo.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"totalBatches": stats.TotalBatches,
		"totalTokens":  stats.TotalTokens,
		"totalCost":    stats.TotalCost,
		"pendingCount": stats.PendingCount,
	})
}

func (s *Server) handleEmbeddingReprocess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		DocumentIDs []string `json:"documentIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if len(req.DocumentIDs) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("documentIds is required"))
		return
	}
	if err := s.documentRepo.MarkForReembedding(r.Context(), req.DocumentIDs); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"marked": len(req.DocumentIDs)})
}

func (s *Server) handleEmbeddingMarkPending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		DocumentIDs []string `json:"documentIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if len(req.DocumentIDs) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("documentIds is required"))
		return
	}
	if err := s.documentRepo.MarkForReembedding(r.Context(), req.DocumentIDs); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{"marked": len(req.DocumentIDs)})
}

func (s *Server) handleEmbeddingDiagnose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	healthErr := s.providers.Embedding().HealthCheck(r.Context())
	stats, err := s.embeddingCostRepo.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	report := map[string]any{
		"providerHealthy": healthErr == nil,
		"pendingCount":    stats.PendingCount,
	}
	if healthErr != nil {
		report["providerError"] = healthErr.Error()
	}
	writeData(w, http.StatusOK, report)
}

// --- push channel -------------------------------------------------------

// handleEvents is the push channel: an SSE stream of progress events for
// one channel name, optionally scoped to a single user. The client reads a
// long-lived GET request rather than a raw socket, the same duplex-over-HTTP
// posture the chat stream uses.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("channel is required"))
		return
	}
	userID := r.URL.Query().Get("userId")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	setSSEHeaders(w)

	events, cancel := s.bus.Subscribe(channel, userID)
	defer cancel()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeSSE(w, flusher, channel, "", ev.Payload)
		case <-r.Context().Done():
			return
		}
	}
}

// --- helpers --------------------------------------------------------------

func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, eventType, queryID string, data any) {
	payload := map[string]any{"type": eventType}
	if queryID != "" {
		payload["queryId"] = queryID
	}
	if data != nil {
		payload["data"] = data
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", b)
	flusher.Flush()
}

func parseIntDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func writeData(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeErr(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": userFacingMessage(code, err)})
}

// userFacingMessage collapses an internal error into a short message safe
// to show a client; the original error still reaches the process log.
func userFacingMessage(code int, err error) string {
	if err == nil {
		return "request failed"
	}
	log.Printf("api: request failed (status %d): %v", code, err)
	if code >= 500 {
		switch apperrors.Classify(err) {
		case apperrors.KindTransient:
			return "Temporary failure, please retry."
		default:
			return "Internal server error. Please retry or check service logs."
		}
	}
	return err.Error()
}

func withCORS(cfg config.Config, next http.Handler) http.Handler {
	allowed := corsOrigins(cfg)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(allowed, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func corsOrigins(cfg config.Config) []string {
	var out []string
	if cfg.FrontendURL != "" {
		out = append(out, cfg.FrontendURL)
	}
	for _, o := range strings.Split(cfg.CORSOrigin, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
