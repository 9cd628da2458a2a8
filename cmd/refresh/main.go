// Package main runs one refresh cycle and exits. Useful for seeding the
// index and for cron-driven refreshes that bypass the similarity gate.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/time/rate"

	"github.com/ryanDing26/career-gpt/engine/graph"
	"github.com/ryanDing26/career-gpt/engine/ingest"
	"github.com/ryanDing26/career-gpt/engine/listing"
	"github.com/ryanDing26/career-gpt/engine/semantic"
	"github.com/ryanDing26/career-gpt/pkg/fn"
	"github.com/ryanDing26/career-gpt/pkg/hf"
	"github.com/ryanDing26/career-gpt/pkg/resilience"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("refresh failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dims := envIntOr("EMBED_DIMS", 384)

	vectorStore, err := semantic.New(envOr("QDRANT_URL", "localhost:6334"), envOr("QDRANT_COLLECTION", "internships"))
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	ensureCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = vectorStore.EnsureCollection(ensureCtx, dims)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	var catalog ingest.Catalog
	if url := os.Getenv("NEO4J_URL"); url != "" {
		driver, err := neo4j.NewDriverWithContext(url, neo4j.BasicAuth(envOr("NEO4J_USER", "neo4j"), envOr("NEO4J_PASS", "password"), ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		catalog = graph.New(driver)
	}

	embedder := hf.NewEmbedClient(
		envOr("HF_BASE_URL", hf.DefaultBaseURL),
		envOr("HF_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		os.Getenv("HF_API_KEY"),
		dims,
	)

	refresher := ingest.New(ingest.Deps{
		Source:   listing.NewClient(envOr("LISTING_URL", listing.DefaultURL), &http.Client{Timeout: 30 * time.Second}),
		Embedder: embedder,
		Store:    vectorStore,
		Catalog:  catalog,
		Breaker:  resilience.NewBreaker(resilience.DefaultBreakerOpts),
		Limiter:  rate.NewLimiter(rate.Limit(10), 1),
		Retry:     fn.DefaultRetry,
		BatchSize: envIntOr("REFRESH_BATCH_SIZE", ingest.DefaultBatchSize),
		Logger:    logger,
	})

	sum, err := refresher.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("rows=%d skipped=%d records=%d batches=%d failed_batches=%d duration=%s\n",
		sum.Rows, sum.SkippedRows, sum.Records, sum.Batches, sum.FailedBatches, sum.Duration)
	return nil
}
