// Package infrastructure assembles the shared systems every domain package
// builds on: lifecycle, logging, PostgreSQL, the optional bundle cache, the
// model client, and metrics.
package infrastructure

import (
	"fmt"
	"log/slog"

	"github.com/JaimeStill/rainn/internal/config"
	"github.com/JaimeStill/rainn/pkg/database"
	"github.com/JaimeStill/rainn/pkg/lifecycle"
	"github.com/JaimeStill/rainn/pkg/llm"
	"github.com/JaimeStill/rainn/pkg/metrics"
	"github.com/JaimeStill/rainn/pkg/storage"
)

// Infrastructure holds the shared systems. Storage is nil when the bundle
// cache is disabled.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Model     llm.Client
	Metrics   *metrics.Recorder
}

// New builds every system without contacting any of them. Call Start to
// connect.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := NewLogger(&cfg.Logging)
	infra := &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Metrics:   metrics.New(),
	}

	var err error
	if infra.Database, err = database.New(&cfg.Database, logger); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if infra.Storage, err = storage.New(&cfg.Storage, logger); err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	if infra.Model, err = llm.New(&cfg.Model, logger); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}
	return infra, nil
}

// Start registers the database and, when enabled, the bundle cache with the
// lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("start database: %w", err)
	}
	if i.Storage == nil {
		return nil
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("start storage: %w", err)
	}
	return nil
}
