package ingest

import (
	"time"

	"github.com/ryanDing26/career-gpt/engine/domain"
)

// parsedSet is the parse stage output.
type parsedSet struct {
	Postings []domain.Posting
	Skipped  int
}

// embeddedSet pairs sentences with their embeddings, positionally aligned.
type embeddedSet struct {
	parsedSet
	Sentences  []string
	Embeddings [][]float32
}

// Summary reports the outcome of one refresh cycle.
type Summary struct {
	Rows          int           `json:"rows"`           // postings parsed from the document
	SkippedRows   int           `json:"skipped_rows"`   // rows dropped by validation
	Records       int           `json:"records"`        // vector records written
	Batches       int           `json:"batches"`        // upsert batches attempted
	FailedBatches int           `json:"failed_batches"` // batches that failed (logged, not fatal)
	Duration      time.Duration `json:"duration"`
}

// RefreshEvent is published after each completed refresh cycle.
type RefreshEvent struct {
	Summary    Summary   `json:"summary"`
	SourceURL  string    `json:"source_url"`
	FinishedAt time.Time `json:"finished_at"`
}

// EventSubject is the NATS subject for refresh-completed events.
const EventSubject = "career.refresh.completed"
