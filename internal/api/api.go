// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JaimeStill/rainn/internal/config"
	"github.com/JaimeStill/rainn/internal/infrastructure"
	"github.com/JaimeStill/rainn/pkg/middleware"
	"github.com/JaimeStill/rainn/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// Every request opportunistically triggers a rate-limited retention sweep.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	infra *infrastructure.Infrastructure,
) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	if cfg.Auth.Enabled {
		verifier, err := middleware.NewOIDCVerifier(ctx, &cfg.Auth)
		if err != nil {
			return nil, nil, fmt.Errorf("auth init failed: %w", err)
		}
		m.Use(middleware.Bearer(verifier, runtime.Logger))
	}

	m.Use(middleware.Hook(func(ctx context.Context) {
		domain.Sweeper.MaybeSweep(ctx)
	}))

	return m, domain, nil
}
