package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ryanDing26/career-gpt/engine/domain"
	"github.com/ryanDing26/career-gpt/engine/ingest"
	"github.com/ryanDing26/career-gpt/engine/rag"
	"github.com/ryanDing26/career-gpt/pkg/metrics"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ChatRequest is the JSON body for POST /api/chat: the conversation so far,
// oldest message first.
type ChatRequest struct {
	Messages []domain.Message `json:"messages"`
}

// ChatResponse is the JSON response for POST /api/chat.
type ChatResponse struct {
	Answer      string `json:"answer"`
	Refreshed   bool   `json:"refreshed"`
	ContextDocs int    `json:"context_docs"`
}

// chatService is what the chat handler needs from the orchestrator.
type chatService interface {
	Query(ctx context.Context, history []domain.Message) (*rag.Answer, error)
}

// refreshService is what the refresh handler needs from the pipeline.
type refreshService interface {
	Refresh(ctx context.Context) (ingest.Summary, error)
}

// postingCatalog is what the company handlers need from the graph store.
type postingCatalog interface {
	PostingsByCompany(ctx context.Context, company string) ([]domain.Posting, error)
	CompanyCounts(ctx context.Context) (map[string]int64, error)
}

func handleChat(ragSvc chatService, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	turns := reg.Counter("chat_turns_total", "chat turns served")
	failures := reg.Counter("chat_failures_total", "chat turns that errored")
	refreshes := reg.Counter("refresh_triggered_total", "refreshes triggered by the gate")
	latency := reg.Histogram("chat_turn_seconds", "chat turn latency", nil)

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		turns.Inc()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(req.Messages) == 0 {
			writeError(w, http.StatusBadRequest, "messages are required")
			return
		}

		answer, err := ragSvc.Query(r.Context(), req.Messages)
		if err != nil {
			failures.Inc()
			if domain.IsKind(err, domain.KindData) {
				writeError(w, http.StatusBadRequest, "no user message in history")
				return
			}
			logger.Error("chat turn failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if answer.Refreshed {
			refreshes.Inc()
		}
		latency.Since(start)

		writeJSON(w, http.StatusOK, ChatResponse{
			Answer:      answer.Text,
			Refreshed:   answer.Refreshed,
			ContextDocs: answer.ContextDocs,
		})
	}
}

func handleRefresh(refresher refreshService, reg *metrics.Registry, logger *slog.Logger) http.HandlerFunc {
	cycles := reg.Counter("refresh_cycles_total", "manual and gated refresh cycles")
	skipped := reg.Counter("refresh_rows_skipped_total", "rows dropped by validation")
	failedBatches := reg.Counter("refresh_failed_batches_total", "upsert batches that failed")

	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := refresher.Refresh(r.Context())
		cycles.Inc()
		if err != nil {
			logger.Error("manual refresh failed", "err", err)
			writeError(w, http.StatusBadGateway, "refresh failed")
			return
		}
		skipped.Add(int64(sum.SkippedRows))
		failedBatches.Add(int64(sum.FailedBatches))
		writeJSON(w, http.StatusOK, sum)
	}
}

func handlePostings(store postingCatalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		company := r.PathValue("name")
		postings, err := store.PostingsByCompany(r.Context(), company)
		if err != nil {
			logger.Error("postings lookup failed", "company", company, "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"company": company, "postings": postings})
	}
}

func handleCompanies(store postingCatalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counts, err := store.CompanyCounts(r.Context())
		if err != nil {
			logger.Error("company counts failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, counts)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
