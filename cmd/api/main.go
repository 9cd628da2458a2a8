// Package main implements the career assistant API server.
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
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"golang.org/x/time/rate"

	"github.com/ryanDing26/career-gpt/engine/gate"
	"github.com/ryanDing26/career-gpt/engine/graph"
	"github.com/ryanDing26/career-gpt/engine/ingest"
	"github.com/ryanDing26/career-gpt/engine/listing"
	"github.com/ryanDing26/career-gpt/engine/rag"
	"github.com/ryanDing26/career-gpt/engine/semantic"
	"github.com/ryanDing26/career-gpt/pkg/fn"
	"github.com/ryanDing26/career-gpt/pkg/hf"
	"github.com/ryanDing26/career-gpt/pkg/llm"
	"github.com/ryanDing26/career-gpt/pkg/metrics"
	"github.com/ryanDing26/career-gpt/pkg/mid"
	"github.com/ryanDing26/career-gpt/pkg/natsutil"
	"github.com/ryanDing26/career-gpt/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port            string
	ListingURL      string
	HFBaseURL       string
	HFModel         string
	HFAPIKey        string
	EmbedDims       int
	QdrantURL       string
	Collection      string
	Neo4jURL        string
	Neo4jUser       string
	Neo4jPass       string
	NATSURL         string
	OpenRouterKey   string
	OpenRouterModel string
	GateThreshold   float64
	TopK            int
	CORSOrigin      string
}

func loadConfig() Config {
	return Config{
		Port:            envOr("PORT", "8080"),
		ListingURL:      envOr("LISTING_URL", listing.DefaultURL),
		HFBaseURL:       envOr("HF_BASE_URL", hf.DefaultBaseURL),
		HFModel:         envOr("HF_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		HFAPIKey:        os.Getenv("HF_API_KEY"),
		EmbedDims:       envIntOr("EMBED_DIMS", 384),
		QdrantURL:       envOr("QDRANT_URL", "localhost:6334"),
		Collection:      envOr("QDRANT_COLLECTION", "internships"),
		Neo4jURL:        os.Getenv("NEO4J_URL"), // empty disables the catalog
		Neo4jUser:       envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:       envOr("NEO4J_PASS", "password"),
		NATSURL:         os.Getenv("NATS_URL"), // empty disables events
		OpenRouterKey:   os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel: envOr("OPENROUTER_MODEL", llm.DefaultModel),
		GateThreshold:   envFloatOr("GATE_THRESHOLD", gate.DefaultThreshold),
		TopK:            envIntOr("RAG_TOP_K", 250),
		CORSOrigin:      envOr("CORS_ORIGIN", "*"),
	}
}

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

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	ensureCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = vectorStore.EnsureCollection(ensureCtx, cfg.EmbedDims)
	cancel()
	if err != nil {
		return fmt.Errorf("ensure collection: %w", err)
	}

	// --- Optional Neo4j catalog ---
	var catalog ingest.Catalog
	var catalogStore *graph.Store
	if cfg.Neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		defer driver.Close(ctx)
		catalogStore = graph.New(driver)
		catalog = catalogStore
	}

	// --- Optional NATS events ---
	var events ingest.EventSink
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("career-api"))
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Drain()
		events = &natsSink{nc: nc}
	}

	// --- Embedding, gate, refresh, chat ---
	embedder := hf.NewEmbedClient(cfg.HFBaseURL, cfg.HFModel, cfg.HFAPIKey, cfg.EmbedDims)
	similarityGate := gate.New(embedder, nil, cfg.GateThreshold, logger)

	refresher := ingest.New(ingest.Deps{
		Source:   listing.NewClient(cfg.ListingURL, &http.Client{Timeout: 30 * time.Second}),
		Embedder: embedder,
		Store:    vectorStore,
		Catalog:  catalog,
		Events:   events,
		Breaker:  resilience.NewBreaker(resilience.DefaultBreakerOpts),
		Limiter:  rate.NewLimiter(rate.Limit(10), 1),
		Retry:     fn.DefaultRetry,
		BatchSize: envIntOr("REFRESH_BATCH_SIZE", ingest.DefaultBatchSize),
		Logger:    logger,
	})

	chatClient := llm.New("", cfg.OpenRouterKey, cfg.OpenRouterModel)

	opts := rag.DefaultOptions()
	opts.TopK = cfg.TopK
	ragSvc := rag.New(similarityGate, refresher, embedder, vectorStore, chatClient, opts, logger)

	// --- HTTP server ---
	reg := metrics.New()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/chat", handleChat(ragSvc, reg, logger))
	mux.HandleFunc("POST /api/refresh", handleRefresh(refresher, reg, logger))
	if catalogStore != nil {
		mux.HandleFunc("GET /api/companies/{name}/postings", handlePostings(catalogStore, logger))
		mux.HandleFunc("GET /api/companies", handleCompanies(catalogStore, logger))
	}
	mux.Handle("GET /metrics", reg.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.OTel("career-api"),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.MaxBody(1<<20),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // a gated turn may run a full refresh
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// natsSink publishes refresh events over NATS.
type natsSink struct {
	nc *nats.Conn
}

func (s *natsSink) Publish(ctx context.Context, ev ingest.RefreshEvent) error {
	return natsutil.Publish(ctx, s.nc, ingest.EventSubject, ev)
}
