package llm

import (
	"context"
	"errors"
)

// RetryConfig controls WithRetry. ShouldRetry defaults to retrying every
// error except ErrEmptyResponse and context cancellation.
type RetryConfig struct {
	MaxAttempts int
	ShouldRetry func(error) bool
}

// WithRetry wraps client with error-only retries. The model layer itself
// never retries; this is a caller policy.
func WithRetry(client Client, cfg RetryConfig) Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = retryable
	}
	return &retrying{next: client, cfg: cfg}
}

type retrying struct {
	next Client
	cfg  RetryConfig
}

func (r *retrying) Generate(ctx context.Context, model, prompt, system string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := r.next.Generate(ctx, model, prompt, system)
		if err == nil {
			return text, nil
		}

		lastErr = err
		if !r.cfg.ShouldRetry(err) {
			break
		}
	}
	return "", lastErr
}

func retryable(err error) bool {
	return !errors.Is(err, ErrEmptyResponse) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
