package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Ollama calls a local Ollama server's /api/generate endpoint without streaming.
type Ollama struct {
	client  *api.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewOllama creates an Ollama client for cfg.BaseURL with a per-call timeout.
func NewOllama(cfg *Config, logger *slog.Logger) (*Ollama, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama base url: %w", err)
	}

	return &Ollama{
		client:  api.NewClient(base, http.DefaultClient),
		timeout: cfg.TimeoutDuration(),
		logger:  logger.With("system", "llm", "provider", ProviderOllama),
	}, nil
}

func (o *Ollama) Generate(ctx context.Context, model, prompt, system string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		System: system,
		Stream: &stream,
	}

	start := time.Now()
	var out strings.Builder
	err := o.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", ErrEmptyResponse
	}

	o.logger.DebugContext(
		ctx, "generation complete",
		"model", model,
		"prompt_chars", len(prompt),
		"response_chars", len(text),
		"duration", time.Since(start),
	)

	return text, nil
}
