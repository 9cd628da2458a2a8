package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var errMisaligned = errors.New("gate: trigger embedding count mismatch")

// DefaultThreshold is the similarity at or above which a refresh triggers.
const DefaultThreshold = 0.8

// DefaultTriggers are the canonical phrasings of "the user wants fresh
// internship data". Configuration, not runtime state.
var DefaultTriggers = []string{
	"Are there any new internship opportunities available right now?",
	"Can you tell me about the latest internship postings?",
	"What are the recent internships in the tech industry?",
	"What are the latest internships for software development?",
	"What internships are currently open for students or recent graduates?",
	"Are there any new internships suitable for college students?",
}

// Embedder converts texts into positionally aligned embeddings.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Gate holds the reference trigger set and its cached embeddings.
type Gate struct {
	embedder  Embedder
	phrases   []string
	threshold float64
	logger    *slog.Logger

	mu   sync.Mutex
	refs [][]float32 // trigger embeddings, computed on first use
}

// New creates a Gate. Nil phrases fall back to DefaultTriggers; a
// non-positive threshold falls back to DefaultThreshold.
func New(embedder Embedder, phrases []string, threshold float64, logger *slog.Logger) *Gate {
	if len(phrases) == 0 {
		phrases = DefaultTriggers
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{embedder: embedder, phrases: phrases, threshold: threshold, logger: logger}
}

// ShouldRefresh reports whether the utterance is close enough to a trigger
// phrase to warrant refreshing. Embedding failures fail closed: the gate
// returns false and the turn proceeds on existing data.
func (g *Gate) ShouldRefresh(ctx context.Context, utterance string) bool {
	refs, err := g.triggerEmbeddings(ctx)
	if err != nil {
		g.logger.Warn("gate: trigger embeddings unavailable", "err", err)
		return false
	}

	vecs, err := g.embedder.Embed(ctx, []string{utterance})
	if err != nil || len(vecs) != 1 {
		g.logger.Warn("gate: utterance embedding unavailable", "err", err)
		return false
	}

	best := 0.0
	for _, ref := range refs {
		if s := Cosine(vecs[0], ref); s > best {
			best = s
		}
	}
	triggered := best >= g.threshold
	g.logger.Debug("gate decision", "max_similarity", best, "threshold", g.threshold, "triggered", triggered)
	return triggered
}

// triggerEmbeddings returns the cached trigger embeddings, computing them on
// first use. A failed computation is retried on the next turn.
func (g *Gate) triggerEmbeddings(ctx context.Context) ([][]float32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refs != nil {
		return g.refs, nil
	}
	refs, err := g.embedder.Embed(ctx, g.phrases)
	if err != nil {
		return nil, err
	}
	if len(refs) != len(g.phrases) {
		g.refs = nil
		return nil, errMisaligned
	}
	g.refs = refs
	return refs, nil
}
