// Command copilot analyzes a single incident report from a file or stdin
// and prints the rendered analysis to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/VSOCLabs/copilot-mvp/engine/copilot"
	"github.com/VSOCLabs/copilot-mvp/engine/domain"
	"github.com/VSOCLabs/copilot-mvp/engine/llm"
	"github.com/VSOCLabs/copilot-mvp/engine/semantic"
)

func main() {
	var (
		file       = flag.String("f", "", "incident report file (default: read stdin)")
		id         = flag.String("id", "", "incident id (default: derived from file name)")
		qdrantURL  = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "qdrant gRPC address")
		prefix     = flag.String("prefix", envOr("INDEX_PREFIX", "incidents"), "index collection prefix")
		provider   = flag.String("provider", envOr("LLM_PROVIDER", "openai"), "LLM provider (openai|ollama)")
		model      = flag.String("model", envOr("LLM_MODEL", "gpt-4o-mini"), "generation model")
		embedModel = flag.String("embed-model", envOr("EMBED_MODEL", "text-embedding-3-small"), "embedding model")
		topK       = flag.Int("top-k", 3, "historical matches to retrieve")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	text, repID, err := readReport(*file, *id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.Provider = *provider
	llmCfg.Model = *model
	llmCfg.EmbedModel = *embedModel
	llmCfg.APIKey = os.Getenv("OPENAI_API_KEY")
	llmCfg.BaseURL = os.Getenv("LLM_BASE_URL")

	gen, embedder, err := llm.New(llmCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	store, err := semantic.New(*qdrantURL, *prefix)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer store.Close()

	opts := copilot.DefaultOptions()
	opts.TopK = *topK
	retriever := copilot.NewRetriever(embedder, store, opts.TopK, opts.SearchTimeout, logger)
	engine := copilot.New(gen, retriever, opts, logger)

	resp, err := engine.Run(context.Background(), domain.IncidentReport{ID: repID, Text: text})
	if err != nil {
		fmt.Fprintln(os.Stderr, "analysis failed:", err)
		os.Exit(1)
	}

	fmt.Println(resp.Rendered)
	if *verbose {
		fmt.Fprintf(os.Stderr, "path=%s sources=%v\n", resp.Path, resp.SourceIncidentIDs)
	}
}

func readReport(file, id string) (text, repID string, err error) {
	if file == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		if id == "" {
			id = "stdin"
		}
		return string(data), id, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", "", err
	}
	if id == "" {
		base := filepath.Base(file)
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return string(data), id, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
