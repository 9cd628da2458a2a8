// Package ingest runs the refresh pipeline: fetch the listing document,
// parse it into postings, embed the resulting sentences, and upsert the
// vectors under content-addressed ids. Re-running against an unchanged
// document rewrites the same points, so the cycle is idempotent.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/ryanDing26/career-gpt/engine/domain"
	"github.com/ryanDing26/career-gpt/engine/listing"
	"github.com/ryanDing26/career-gpt/engine/semantic"
	"github.com/ryanDing26/career-gpt/pkg/fn"
	"github.com/ryanDing26/career-gpt/pkg/resilience"
)

const (
	// DefaultBatchSize is the number of vector records per upsert batch.
	DefaultBatchSize = 25

	// embedBatchSize caps the number of sentences per embedding request.
	embedBatchSize = 100
)

// Source fetches the raw listing document.
type Source interface {
	URL() string
	Fetch(ctx context.Context) (string, error)
}

// Embedder turns sentences into vectors, positionally aligned.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store writes vector records to the semantic index.
type Store interface {
	Upsert(ctx context.Context, records []semantic.VectorRecord) error
}

// Catalog mirrors postings into the graph catalog. Saves are best effort.
type Catalog interface {
	SavePosting(ctx context.Context, p domain.Posting) error
}

// EventSink receives a refresh-completed event after each cycle.
type EventSink interface {
	Publish(ctx context.Context, ev RefreshEvent) error
}

// Deps wires the refresher's collaborators. Source, Embedder and Store are
// required; the rest are optional and skipped when nil.
type Deps struct {
	Source   Source
	Embedder Embedder
	Store    Store
	Catalog  Catalog
	Events   EventSink

	// Breaker guards embedding calls; nil means no breaker.
	Breaker *resilience.Breaker
	// Limiter paces upsert batches; nil means no pacing.
	Limiter *rate.Limiter
	// Retry governs embedding attempts. The inference API returns 503
	// while the model is loading, so a short backoff usually recovers.
	// Zero MaxAttempts means a single attempt.
	Retry fn.RetryOpts

	BatchSize int
	Logger    *slog.Logger
}

// Refresher executes full refresh cycles over the wired dependencies.
type Refresher struct {
	deps   Deps
	stages fn.Stage[struct{}, embeddedSet]
	log    *slog.Logger
}

// New creates a Refresher. Logger defaults to slog.Default and BatchSize
// to DefaultBatchSize.
func New(deps Deps) *Refresher {
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	if deps.Retry.MaxAttempts <= 0 {
		deps.Retry.MaxAttempts = 1
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := &Refresher{deps: deps, log: deps.Logger}

	fetch := fn.TracedStage("ingest.fetch", func(ctx context.Context, _ struct{}) fn.Result[string] {
		return fn.FromPair(deps.Source.Fetch(ctx))
	})
	parse := fn.TracedStage("ingest.parse", func(_ context.Context, markdown string) fn.Result[parsedSet] {
		postings, skipped, err := listing.Parse(markdown)
		if err != nil {
			return fn.Err[parsedSet](err)
		}
		return fn.Ok(parsedSet{Postings: postings, Skipped: skipped})
	})
	embed := fn.TracedStage("ingest.embed", r.embedStage)

	r.stages = fn.Then(fn.Then(fetch, parse), embed)
	return r
}

// embedStage embeds all posting sentences in sub-batches, keeping document
// order. Any embedding failure aborts the cycle: without vectors there is
// nothing to write.
func (r *Refresher) embedStage(ctx context.Context, set parsedSet) fn.Result[embeddedSet] {
	sentences := listing.Sentences(set.Postings)
	embeddings := make([][]float32, 0, len(sentences))

	for _, batch := range fn.Chunk(sentences, embedBatchSize) {
		vectors, err := r.embed(ctx, batch)
		if err != nil {
			return fn.Err[embeddedSet](err)
		}
		embeddings = append(embeddings, vectors...)
	}

	return fn.Ok(embeddedSet{parsedSet: set, Sentences: sentences, Embeddings: embeddings})
}

func (r *Refresher) embed(ctx context.Context, batch []string) ([][]float32, error) {
	call := func(ctx context.Context) fn.Result[[][]float32] {
		if r.deps.Breaker == nil {
			return fn.FromPair(r.deps.Embedder.Embed(ctx, batch))
		}
		return resilience.CallResult(r.deps.Breaker, ctx, func(ctx context.Context) fn.Result[[][]float32] {
			return fn.FromPair(r.deps.Embedder.Embed(ctx, batch))
		})
	}
	return fn.Retry(ctx, r.deps.Retry, call).Unwrap()
}

// Records builds content-addressed vector records from an embedded set,
// dropping duplicate ids so identical rows collapse to one point.
func Records(sentences []string, embeddings [][]float32) []semantic.VectorRecord {
	records := make([]semantic.VectorRecord, len(embeddings))
	for i, emb := range embeddings {
		hash := ContentID(emb)
		records[i] = semantic.VectorRecord{
			ID:        PointID(hash),
			Hash:      hash,
			Embedding: emb,
			Text:      sentences[i],
		}
	}
	return fn.UniqueBy(records, func(rec semantic.VectorRecord) string { return rec.ID })
}

// Refresh runs one full cycle and reports a Summary. A failed upsert batch
// is logged and counted but does not stop later batches; fetch, parse or
// embed failures abort the cycle.
func (r *Refresher) Refresh(ctx context.Context) (Summary, error) {
	start := time.Now()

	set, err := r.stages(ctx, struct{}{}).Unwrap()
	if err != nil {
		return Summary{Duration: time.Since(start)}, err
	}

	records := Records(set.Sentences, set.Embeddings)
	sum := Summary{Rows: len(set.Postings), SkippedRows: set.Skipped}

	for i, batch := range fn.Chunk(records, r.deps.BatchSize) {
		sum.Batches++
		if r.deps.Limiter != nil {
			if err := r.deps.Limiter.Wait(ctx); err != nil {
				return sum, domain.E(domain.KindTimeout, "ingest.upsert", err)
			}
		}
		if err := r.deps.Store.Upsert(ctx, batch); err != nil {
			sum.FailedBatches++
			r.log.Warn("upsert batch failed", "batch", i, "size", len(batch), "error", err)
			continue
		}
		sum.Records += len(batch)
	}

	r.catalog(ctx, set.Postings)

	sum.Duration = time.Since(start)
	r.log.Info("refresh cycle complete",
		"rows", sum.Rows, "skipped", sum.SkippedRows,
		"records", sum.Records, "failed_batches", sum.FailedBatches,
		"duration", sum.Duration)

	r.publish(ctx, sum)
	return sum, nil
}

// catalog mirrors postings into the graph store. Failures are logged only.
func (r *Refresher) catalog(ctx context.Context, postings []domain.Posting) {
	if r.deps.Catalog == nil {
		return
	}
	var failed int
	for _, p := range postings {
		if err := r.deps.Catalog.SavePosting(ctx, p); err != nil {
			failed++
		}
	}
	if failed > 0 {
		r.log.Warn("catalog saves failed", "failed", failed, "total", len(postings))
	}
}

func (r *Refresher) publish(ctx context.Context, sum Summary) {
	if r.deps.Events == nil {
		return
	}
	ev := RefreshEvent{Summary: sum, SourceURL: r.deps.Source.URL(), FinishedAt: time.Now().UTC()}
	if err := r.deps.Events.Publish(ctx, ev); err != nil {
		r.log.Warn("refresh event publish failed", "error", err)
	}
}
