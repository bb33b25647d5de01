// Command ingest loads historical incident reports into the vector index.
// It runs either as a one-shot batch over a directory of report files, or
// as a long-lived NATS consumer when -consume is set.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/VSOCLabs/copilot-mvp/engine/ingest"
	"github.com/VSOCLabs/copilot-mvp/engine/llm"
	"github.com/VSOCLabs/copilot-mvp/engine/semantic"
	"github.com/VSOCLabs/copilot-mvp/pkg/metrics"
	"github.com/VSOCLabs/copilot-mvp/pkg/resilience"
)

func main() {
	var (
		dir         = flag.String("dir", "./reports", "directory of incident report files")
		pattern     = flag.String("pattern", "*.txt", "glob pattern for report files")
		qdrantURL   = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "qdrant gRPC address")
		prefix      = flag.String("prefix", envOr("INDEX_PREFIX", "incidents"), "index collection prefix")
		provider    = flag.String("provider", envOr("LLM_PROVIDER", "openai"), "embedding provider (openai|ollama)")
		embedModel  = flag.String("embed-model", envOr("EMBED_MODEL", "text-embedding-3-small"), "embedding model")
		embedDims   = flag.Int("embed-dims", 1536, "embedding dimensions")
		embedRate   = flag.Float64("embed-rate", 5, "embedding calls per second")
		recreate    = flag.Bool("recreate", false, "drop and recreate all namespaces before ingesting")
		consume     = flag.Bool("consume", false, "run as a NATS consumer instead of a batch job")
		natsURL     = flag.String("nats", envOr("NATS_URL", nats.DefaultURL), "NATS server URL")
		metricsPort = flag.Int("metrics-port", 9091, "port for the /metrics endpoint (0 disables)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	met := metrics.New()
	if *metricsPort > 0 {
		met.ServeAsync(*metricsPort)
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.Provider = *provider
	llmCfg.EmbedModel = *embedModel
	llmCfg.EmbedDims = *embedDims
	llmCfg.APIKey = os.Getenv("OPENAI_API_KEY")
	llmCfg.BaseURL = os.Getenv("LLM_BASE_URL")

	_, embedder, err := llm.New(llmCfg)
	if err != nil {
		logger.Error("llm provider", "err", err)
		os.Exit(1)
	}

	store, err := semantic.New(*qdrantURL, *prefix)
	if err != nil {
		logger.Error("qdrant connect", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	if *recreate {
		if err := store.DropNamespaces(ctx); err != nil {
			logger.Warn("drop namespaces", "err", err)
		}
	}
	if err := store.EnsureNamespaces(ctx, embedder.Dims()); err != nil {
		logger.Error("ensure namespaces", "err", err)
		os.Exit(1)
	}

	deps := ingest.Deps{
		Embedder: embedder,
		Index:    store,
		Limiter:  resilience.NewLimiter(resilience.LimiterOpts{Rate: *embedRate, Burst: 1}),
		Logger:   logger,
	}

	if *consume {
		runConsumer(ctx, *natsURL, deps, logger)
		return
	}

	ingested := met.Counter("ingest_sections_total", "Sections stored in the vector index")
	skipped := met.Counter("ingest_docs_skipped_total", "Documents skipped as malformed")
	duration := met.Histogram("ingest_batch_seconds", "Batch ingestion wall time", nil)

	start := time.Now()
	stats, err := ingest.New(deps).IngestDir(ctx, *dir, *pattern)
	duration.Since(start)
	ingested.Add(int64(stats.Ingested))
	skipped.Add(int64(stats.Skipped))

	if err != nil {
		logger.Error("batch ingest aborted", "err", err, "files", stats.Files)
		os.Exit(1)
	}

	logger.Info("batch ingest done",
		"files", stats.Files,
		"sections_ingested", stats.Ingested,
		"skipped", stats.Skipped,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	for _, s := range stats.SkippedDocs {
		logger.Warn("skipped document", "file", s.Name, "reason", s.Reason)
	}
	for ns, n := range stats.PerNamespace {
		fmt.Printf("  %-16s %d\n", ns, n)
	}
}

func runConsumer(ctx context.Context, url string, deps ingest.Deps, logger *slog.Logger) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		logger.Error("nats connect", "url", url, "err", err)
		os.Exit(1)
	}
	defer nc.Close()

	sub, err := ingest.StartConsumer(nc, deps)
	if err != nil {
		logger.Error("start consumer", "err", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	logger.Info("ingest consumer running", "nats", url)
	<-ctx.Done()
	logger.Info("ingest consumer stopping")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
