package api

import (
	"github.com/JaimeStill/rainn/internal/config"
	"github.com/JaimeStill/rainn/internal/infrastructure"
	"github.com/JaimeStill/rainn/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination    pagination.Config
	Runs          config.RunsConfig
	MaxUploadSize int64
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			Model:     infra.Model,
			Metrics:   infra.Metrics,
		},
		Pagination:    cfg.API.Pagination,
		Runs:          cfg.Runs,
		MaxUploadSize: cfg.API.MaxUploadSizeBytes(),
	}
}
