package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/ryanDing26/career-gpt/pkg/fn"

	"github.com/ryanDing26/career-gpt/engine/domain"
	"github.com/ryanDing26/career-gpt/engine/semantic"
)

// --- fakes ---

type fakeSource struct {
	markdown string
	err      error
}

func (f *fakeSource) URL() string { return "test://listing" }

func (f *fakeSource) Fetch(_ context.Context) (string, error) {
	return f.markdown, f.err
}

// fakeEmbedder derives a vector from each sentence so identical sentences
// get identical embeddings.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, s := range texts {
		out[i] = []float32{float32(len(s)), float32(s[0]), float32(s[len(s)-1])}
	}
	return out, nil
}

type fakeStore struct {
	batches [][]semantic.VectorRecord
	failOn  map[int]bool // batch index -> fail
}

func (f *fakeStore) Upsert(_ context.Context, records []semantic.VectorRecord) error {
	idx := len(f.batches)
	f.batches = append(f.batches, records)
	if f.failOn[idx] {
		return errors.New("qdrant unavailable")
	}
	return nil
}

func (f *fakeStore) all() []semantic.VectorRecord {
	var out []semantic.VectorRecord
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

type fakeCatalog struct {
	saved []domain.Posting
	err   error
}

func (f *fakeCatalog) SavePosting(_ context.Context, p domain.Posting) error {
	f.saved = append(f.saved, p)
	return f.err
}

type fakeSink struct {
	events []RefreshEvent
	err    error
}

func (f *fakeSink) Publish(_ context.Context, ev RefreshEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

// doc frames table rows the way the upstream README does.
func doc(rows ...string) string {
	var b strings.Builder
	b.WriteString("# Listings\n\n| Company | Role | Location | Application/Link | Date Posted |\n")
	b.WriteString("| ------- | ---- | -------- | ---------------- | ----------- |\n")
	for _, r := range rows {
		b.WriteString(r + "\n")
	}
	b.WriteString("\n<!-- Please leave a one line gap between this and the table TABLE_END (DO NOT CHANGE THIS LINE) -->\n")
	return b.String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rows(n int) []string {
	names := []string{"Acme", "Beta", "Gamma", "Delta", "Eps"}
	out := make([]string, n)
	for i := range out {
		out[i] = "| " + names[i] + " | Intern " + names[i] + " | NYC | ✅ | Jan 1 |"
	}
	return out
}

// --- tests ---

func TestRefreshHappyPath(t *testing.T) {
	store := &fakeStore{}
	catalog := &fakeCatalog{}
	sink := &fakeSink{}

	r := New(Deps{
		Source:   &fakeSource{markdown: doc(rows(3)...)},
		Embedder: &fakeEmbedder{},
		Store:    store,
		Catalog:  catalog,
		Events:   sink,
		Limiter:  rate.NewLimiter(rate.Inf, 1),
		Logger:   quietLogger(),
	})

	sum, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sum.Rows != 3 || sum.SkippedRows != 0 || sum.Records != 3 || sum.Batches != 1 || sum.FailedBatches != 0 {
		t.Fatalf("summary %+v", sum)
	}

	recs := store.all()
	if len(recs) != 3 {
		t.Fatalf("got %d records", len(recs))
	}
	for _, rec := range recs {
		if rec.Hash != ContentID(rec.Embedding) {
			t.Fatalf("hash not content-addressed for %q", rec.Text)
		}
		if rec.ID != PointID(rec.Hash) {
			t.Fatalf("point id not derived from hash for %q", rec.Text)
		}
	}
	if !strings.HasPrefix(recs[0].Text, "Acme offered") || !strings.HasPrefix(recs[2].Text, "Gamma offered") {
		t.Fatalf("document order lost: %q ... %q", recs[0].Text, recs[2].Text)
	}

	if len(catalog.saved) != 3 {
		t.Fatalf("catalog saved %d postings", len(catalog.saved))
	}
	if len(sink.events) != 1 || sink.events[0].SourceURL != "test://listing" {
		t.Fatalf("events %+v", sink.events)
	}
	if sink.events[0].Summary.Records != 3 {
		t.Fatalf("event summary %+v", sink.events[0].Summary)
	}
}

func TestRefreshBatching(t *testing.T) {
	store := &fakeStore{}
	r := New(Deps{
		Source:    &fakeSource{markdown: doc(rows(5)...)},
		Embedder:  &fakeEmbedder{},
		Store:     store,
		BatchSize: 2,
		Logger:    quietLogger(),
	})

	sum, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sum.Batches != 3 || sum.Records != 5 {
		t.Fatalf("summary %+v", sum)
	}
	if len(store.batches) != 3 || len(store.batches[0]) != 2 || len(store.batches[2]) != 1 {
		t.Fatalf("batch sizes %d/%d/%d", len(store.batches[0]), len(store.batches[1]), len(store.batches[2]))
	}
	if !strings.HasPrefix(store.all()[4].Text, "Eps offered") {
		t.Fatal("order lost across batches")
	}
}

func TestRefreshBatchFailureContinues(t *testing.T) {
	store := &fakeStore{failOn: map[int]bool{0: true}}
	r := New(Deps{
		Source:    &fakeSource{markdown: doc(rows(5)...)},
		Embedder:  &fakeEmbedder{},
		Store:     store,
		BatchSize: 2,
		Logger:    quietLogger(),
	})

	sum, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("failed batch should not abort the cycle: %v", err)
	}
	if sum.Batches != 3 || sum.FailedBatches != 1 || sum.Records != 3 {
		t.Fatalf("summary %+v", sum)
	}
}

func TestRefreshDedupesIdenticalRows(t *testing.T) {
	row := "| Acme | Intern | NYC | ✅ | Jan 1 |"
	store := &fakeStore{}
	r := New(Deps{
		Source:   &fakeSource{markdown: doc(row, row)},
		Embedder: &fakeEmbedder{},
		Store:    store,
		Logger:   quietLogger(),
	})

	sum, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sum.Rows != 2 || sum.Records != 1 {
		t.Fatalf("summary %+v", sum)
	}
}

func TestRefreshSkippedRowsCounted(t *testing.T) {
	r := New(Deps{
		Source: &fakeSource{markdown: doc(
			"| Acme | Intern | NYC | ✅ | Jan 1 |",
			"| Beta | Intern | NYC | 🔒 | Jan 2 |",
		)},
		Embedder: &fakeEmbedder{},
		Store:    &fakeStore{},
		Logger:   quietLogger(),
	})

	sum, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sum.Rows != 1 || sum.SkippedRows != 1 {
		t.Fatalf("summary %+v", sum)
	}
}

func TestRefreshFetchError(t *testing.T) {
	r := New(Deps{
		Source:   &fakeSource{err: errors.New("network down")},
		Embedder: &fakeEmbedder{},
		Store:    &fakeStore{},
		Logger:   quietLogger(),
	})
	if _, err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRefreshParseErrorIsFormatKind(t *testing.T) {
	r := New(Deps{
		Source:   &fakeSource{markdown: "no table here"},
		Embedder: &fakeEmbedder{},
		Store:    &fakeStore{},
		Logger:   quietLogger(),
	})
	_, err := r.Refresh(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !domain.IsKind(err, domain.KindFormat) {
		t.Fatalf("kind of %v", err)
	}
}

func TestRefreshEmbedErrorAborts(t *testing.T) {
	store := &fakeStore{}
	r := New(Deps{
		Source:   &fakeSource{markdown: doc(rows(2)...)},
		Embedder: &fakeEmbedder{err: errors.New("model loading")},
		Store:    store,
		Logger:   quietLogger(),
	})
	if _, err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(store.batches) != 0 {
		t.Fatal("nothing should be upserted when embedding fails")
	}
}

func TestRefreshCatalogIsBestEffort(t *testing.T) {
	r := New(Deps{
		Source:   &fakeSource{markdown: doc(rows(2)...)},
		Embedder: &fakeEmbedder{},
		Store:    &fakeStore{},
		Catalog:  &fakeCatalog{err: errors.New("neo4j down")},
		Logger:   quietLogger(),
	})
	sum, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("catalog failure should not abort: %v", err)
	}
	if sum.Records != 2 {
		t.Fatalf("summary %+v", sum)
	}
}

func TestRefreshEventFailureIgnored(t *testing.T) {
	r := New(Deps{
		Source:   &fakeSource{markdown: doc(rows(1)...)},
		Embedder: &fakeEmbedder{},
		Store:    &fakeStore{},
		Events:   &fakeSink{err: errors.New("nats down")},
		Logger:   quietLogger(),
	})
	if _, err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("event publish failure should not abort: %v", err)
	}
}

func TestRefreshEmbedRetries(t *testing.T) {
	emb := &flakyEmbedder{failFirst: 1}
	store := &fakeStore{}
	r := New(Deps{
		Source:   &fakeSource{markdown: doc(rows(2)...)},
		Embedder: emb,
		Store:    store,
		Retry:    fn.RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond},
		Logger:   quietLogger(),
	})

	sum, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("retry should recover the transient failure: %v", err)
	}
	if sum.Records != 2 || emb.calls != 2 {
		t.Fatalf("summary %+v calls %d", sum, emb.calls)
	}
}

// flakyEmbedder fails the first failFirst calls, then delegates.
type flakyEmbedder struct {
	fakeEmbedder
	failFirst int
}

func (f *flakyEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failFirst {
		return nil, errors.New("model loading")
	}
	out := make([][]float32, len(texts))
	for i, s := range texts {
		out[i] = []float32{float32(len(s)), float32(s[0]), float32(s[len(s)-1])}
	}
	return out, nil
}

func TestRefreshEmptyDocument(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	r := New(Deps{
		Source:   &fakeSource{markdown: doc()},
		Embedder: &fakeEmbedder{},
		Store:    store,
		Events:   sink,
		Logger:   quietLogger(),
	})
	sum, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if sum.Rows != 0 || sum.Records != 0 || sum.Batches != 0 {
		t.Fatalf("summary %+v", sum)
	}
	if len(store.batches) != 0 {
		t.Fatal("no upserts expected")
	}
	if len(sink.events) != 1 {
		t.Fatal("completion event still expected")
	}
}
