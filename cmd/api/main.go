// Package main implements the incident copilot API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/VSOCLabs/copilot-mvp/engine/copilot"
	"github.com/VSOCLabs/copilot-mvp/engine/domain"
	"github.com/VSOCLabs/copilot-mvp/engine/ingest"
	"github.com/VSOCLabs/copilot-mvp/engine/llm"
	"github.com/VSOCLabs/copilot-mvp/engine/semantic"
	"github.com/VSOCLabs/copilot-mvp/pkg/mid"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	QdrantURL   string
	IndexPrefix string
	Provider    string
	Model       string
	EmbedModel  string
	EmbedDims   int
	APIKey      string
	LLMBaseURL  string
	TopK        int
	CORSOrigin  string
}

func loadConfig() Config {
	return Config{
		Port:        envOr("PORT", "8080"),
		QdrantURL:   envOr("QDRANT_URL", "localhost:6334"),
		IndexPrefix: envOr("INDEX_PREFIX", "incidents"),
		Provider:    envOr("LLM_PROVIDER", "openai"),
		Model:       envOr("LLM_MODEL", "gpt-4o-mini"),
		EmbedModel:  envOr("EMBED_MODEL", "text-embedding-3-small"),
		EmbedDims:   envIntOr("EMBED_DIMS", 1536),
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		LLMBaseURL:  os.Getenv("LLM_BASE_URL"),
		TopK:        envIntOr("RETRIEVE_TOP_K", 3),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
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

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- LLM provider ---
	llmCfg := llm.DefaultConfig()
	llmCfg.Provider = cfg.Provider
	llmCfg.Model = cfg.Model
	llmCfg.EmbedModel = cfg.EmbedModel
	llmCfg.EmbedDims = cfg.EmbedDims
	llmCfg.APIKey = cfg.APIKey
	llmCfg.BaseURL = cfg.LLMBaseURL

	gen, embedder, err := llm.New(llmCfg)
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}

	// --- Connect to Qdrant ---
	store, err := semantic.New(cfg.QdrantURL, cfg.IndexPrefix)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer store.Close()

	if err := store.EnsureNamespaces(ctx, embedder.Dims()); err != nil {
		logger.Warn("ensure namespaces failed, continuing", "err", err)
	}

	// --- Build workflow engine and ingester ---
	opts := copilot.DefaultOptions()
	opts.TopK = cfg.TopK

	retriever := copilot.NewRetriever(embedder, store, opts.TopK, opts.SearchTimeout, logger)
	engine := copilot.New(gen, retriever, opts, logger)
	ingester := ingest.New(ingest.Deps{Embedder: embedder, Index: store, Logger: logger})

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/analyze", handleAnalyze(engine, logger))
	mux.HandleFunc("POST /api/ingest", handleIngest(ingester, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("copilot-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	ID     string `json:"id"`
	Report string `json:"report"`
}

type errorResponse struct {
	Error     string `json:"error"`
	LastState string `json:"last_state,omitempty"`
	Path      string `json:"path,omitempty"`
}

func handleAnalyze(engine *copilot.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}

		resp, err := engine.Run(r.Context(), domain.IncidentReport{ID: req.ID, Text: req.Report})
		if err != nil {
			status := http.StatusBadGateway
			out := errorResponse{Error: err.Error()}

			var stepErr *domain.StepError
			if errors.As(err, &stepErr) {
				out.LastState = stepErr.State
				out.Path = string(stepErr.Path)
			}
			if errors.Is(err, domain.ErrEmptyReport) || errors.Is(err, domain.ErrReportTooBig) {
				status = http.StatusUnprocessableEntity
			}

			writeJSON(w, status, out)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

type ingestRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func handleIngest(ingester *ingest.Ingester, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}

		incidentID, err := ingester.IngestDoc(r.Context(), ingest.SourceDoc{Name: req.Name, Text: req.Text})
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, domain.ErrIngestionParse) {
				status = http.StatusUnprocessableEntity
			}
			writeJSON(w, status, errorResponse{Error: err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"incident_id": incidentID})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
