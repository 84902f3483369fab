// Package llm provides the text-generation capability used by stage execution.
// Backends implement Client; New selects one from configuration.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrEmptyResponse indicates the backend answered successfully but produced no text.
// It is a failure, never a valid empty result.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Client generates text for a prompt. system may be empty.
type Client interface {
	Generate(ctx context.Context, model, prompt, system string) (string, error)
}

// New creates the Client named by cfg.Provider, wrapped with retries when
// cfg.MaxAttempts is greater than one.
func New(cfg *Config, logger *slog.Logger) (Client, error) {
	var client Client

	switch cfg.Provider {
	case ProviderOllama:
		c, err := NewOllama(cfg, logger)
		if err != nil {
			return nil, err
		}
		client = c
	case ProviderMock:
		client = Mock{}
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}

	if cfg.MaxAttempts > 1 {
		client = WithRetry(client, RetryConfig{MaxAttempts: cfg.MaxAttempts})
	}

	return client, nil
}
