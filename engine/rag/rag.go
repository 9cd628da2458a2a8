// Package rag orchestrates a chat turn: decide via the similarity gate
// whether to refresh the knowledge base, retrieve context for the latest
// user utterance, and generate the assistant's reply. Retrieval degrades
// gracefully: a failed refresh or search never blocks the answer.
package rag

import (
	"context"
	"log/slog"
	"time"

	"github.com/ryanDing26/career-gpt/engine/domain"
	"github.com/ryanDing26/career-gpt/engine/ingest"
	"github.com/ryanDing26/career-gpt/engine/semantic"
)

// defaultSystemPrompt frames the assistant; retrieval context is appended
// after the trailing newline.
const defaultSystemPrompt = "You are a helpful assistant that is tailored to give advice to users in topics to advance someone's career, from accessing relevant network connections through the provided web scraper and general advising on different career-related fields in computer science. Additionally, here is some more information context regarding recent internship offerings:\n"

// Gatekeeper decides whether a user turn warrants refreshing the index.
type Gatekeeper interface {
	ShouldRefresh(ctx context.Context, utterance string) bool
}

// Refresher runs one refresh cycle against the knowledge base.
type Refresher interface {
	Refresh(ctx context.Context) (ingest.Summary, error)
}

// Embedder converts texts into positionally aligned embeddings.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher performs k-NN similarity search, best hits first.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
}

// Completer generates the assistant reply from a system prompt and history.
type Completer interface {
	Complete(ctx context.Context, system string, history []domain.Message) (string, error)
}

// Options configures the chat turn pipeline.
type Options struct {
	TopK           int
	SystemPrompt   string
	RefreshTimeout time.Duration
	SearchTimeout  time.Duration
	ChatTimeout    time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:           250,
		SystemPrompt:   defaultSystemPrompt,
		RefreshTimeout: 2 * time.Minute,
		SearchTimeout:  10 * time.Second,
		ChatTimeout:    90 * time.Second,
	}
}

// Service is the chat turn orchestrator.
type Service struct {
	gate      Gatekeeper
	refresher Refresher
	embed     Embedder
	search    Searcher
	chat      Completer
	opts      Options
	logger    *slog.Logger
}

// New creates a Service. Zero-valued Options fields fall back to defaults.
func New(gate Gatekeeper, refresher Refresher, embed Embedder, search Searcher, chat Completer, opts Options, logger *slog.Logger) *Service {
	def := DefaultOptions()
	if opts.TopK <= 0 {
		opts.TopK = def.TopK
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = def.SystemPrompt
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = def.RefreshTimeout
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = def.SearchTimeout
	}
	if opts.ChatTimeout <= 0 {
		opts.ChatTimeout = def.ChatTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gate:      gate,
		refresher: refresher,
		embed:     embed,
		search:    search,
		chat:      chat,
		opts:      opts,
		logger:    logger,
	}
}

// Answer is the structured result of one chat turn.
type Answer struct {
	Text        string          `json:"text"`
	Refreshed   bool            `json:"refreshed"`
	ContextDocs int             `json:"context_docs"`
	Summary     *ingest.Summary `json:"refresh_summary,omitempty"`
}

// Query runs one full chat turn for the conversation history. The reply is
// generated even when refresh or retrieval fails; only a missing user
// message or a failed completion is an error.
func (s *Service) Query(ctx context.Context, history []domain.Message) (*Answer, error) {
	utterance := domain.LatestUserContent(history)
	if utterance == "" {
		return nil, domain.Ef(domain.KindData, "rag.query", "no user message in history")
	}

	ans := &Answer{}

	// The refresh is synchronous so this turn's retrieval sees the fresh
	// rows, and bounded so a slow upstream cannot stall the conversation.
	if s.gate != nil && s.refresher != nil && s.gate.ShouldRefresh(ctx, utterance) {
		refreshCtx, cancel := context.WithTimeout(ctx, s.opts.RefreshTimeout)
		sum, err := s.refresher.Refresh(refreshCtx)
		cancel()
		if err != nil {
			s.logger.Warn("refresh failed, answering on existing data", "error", err)
		} else {
			ans.Refreshed = true
			ans.Summary = &sum
		}
	}

	contextText, docs := s.retrieve(ctx, utterance)
	ans.ContextDocs = docs

	chatCtx, cancel := context.WithTimeout(ctx, s.opts.ChatTimeout)
	defer cancel()
	reply, err := s.chat.Complete(chatCtx, s.opts.SystemPrompt+contextText, history)
	if err != nil {
		return nil, domain.Classify("rag.complete", err)
	}
	ans.Text = reply
	return ans, nil
}

// retrieve embeds the utterance and searches the index. Any failure degrades
// to an empty context with a warning.
func (s *Service) retrieve(ctx context.Context, utterance string) (string, int) {
	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	vecs, err := s.embed.Embed(searchCtx, []string{utterance})
	if err != nil || len(vecs) != 1 {
		s.logger.Warn("utterance embedding failed, answering without context", "error", err)
		return "", 0
	}

	results, err := s.search.Search(searchCtx, vecs[0], s.opts.TopK)
	if err != nil {
		s.logger.Warn("semantic search failed, answering without context", "error", err)
		return "", 0
	}
	return semantic.ContextText(results), len(results)
}
