// Package llm wraps the external text-generation and embedding capabilities
// behind small interfaces so the engine never depends on a concrete model
// vendor.
package llm

import (
	"context"
	"fmt"
	"time"
)

// GenerateRequest is a single-turn generation call with system/human
// message separation.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Generator produces text from a prompt. No streaming or tool-calling.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Embedder turns text into fixed-dimensionality vectors, deterministic for
// identical input.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dims() int
}

// Config selects and configures a provider. Enumerated once at startup.
type Config struct {
	// Provider is "openai" or "ollama".
	Provider string
	// Model is the generation model name.
	Model string
	// EmbedModel is the embedding model name.
	EmbedModel string
	// EmbedDims is the embedding output dimensionality.
	EmbedDims int
	// APIKey authenticates hosted providers.
	APIKey string
	// BaseURL overrides the provider endpoint (required for Ollama).
	BaseURL string
	// Timeout bounds every provider call.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:   "openai",
		Model:      "gpt-4o-mini",
		EmbedModel: "text-embedding-3-small",
		EmbedDims:  1536,
		Timeout:    30 * time.Second,
	}
}

// New builds the configured provider. OpenAI and Ollama both implement
// Generator and Embedder, so one client serves both roles.
func New(cfg Config) (Generator, Embedder, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	switch cfg.Provider {
	case "openai":
		c, err := NewOpenAI(cfg)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	case "ollama":
		c := NewOllama(cfg)
		return c, c, nil
	default:
		return nil, nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
