package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
)

// Ollama implements Generator and Embedder on a local Ollama server.
type Ollama struct {
	baseURL string
	cfg     Config
	client  *http.Client
}

// NewOllama creates an Ollama-backed provider.
func NewOllama(cfg Config) *Ollama {
	base := cfg.BaseURL
	if base == "" {
		base = "http://localhost:11434"
	}
	return &Ollama{
		baseURL: strings.TrimRight(base, "/"),
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the provider name.
func (p *Ollama) Name() string { return "ollama" }

// Dims returns the embedding dimensionality.
func (p *Ollama) Dims() int { return p.cfg.EmbedDims }

type ollamaGenerateReq struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResp struct {
	Response string `json:"response"`
}

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Generate runs a non-streaming /api/generate call.
func (p *Ollama) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	opts := map[string]any{"temperature": req.Temperature}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}

	var out ollamaGenerateResp
	err := p.post(ctx, "/api/generate", ollamaGenerateReq{
		Model:   p.cfg.Model,
		System:  req.System,
		Prompt:  req.Prompt,
		Stream:  false,
		Options: opts,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("llm: ollama generate: %w", err)
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", fmt.Errorf("llm: ollama generate returned empty output: %w", domain.ErrGeneration)
	}
	return text, nil
}

// EmbedOne embeds a single query text.
func (p *Ollama) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	return p.embed(ctx, text)
}

// EmbedBatch embeds texts one at a time; the Ollama embeddings endpoint has
// no batch form.
func (p *Ollama) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.EmbedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("llm: ollama embed batch [%d]: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (p *Ollama) embed(ctx context.Context, text string) ([]float32, error) {
	var out ollamaEmbedResp
	if err := p.post(ctx, "/api/embeddings", ollamaEmbedReq{Model: p.cfg.EmbedModel, Prompt: text}, &out); err != nil {
		return nil, fmt.Errorf("llm: ollama embed: %w", err)
	}
	vec := make([]float32, len(out.Embedding))
	for i, v := range out.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (p *Ollama) post(ctx context.Context, path string, in, out any) error {
	body, _ := json.Marshal(in)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
