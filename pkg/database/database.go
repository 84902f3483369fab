// Package database provides PostgreSQL connection management with lifecycle coordination.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/rainn/pkg/lifecycle"
)

const retryInterval = 500 * time.Millisecond

// System manages database connections and lifecycle coordination.
type System interface {
	lifecycle.ReadinessChecker
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Ping checks the live connection. Returns ErrNotReady before the startup ping succeeds.
	Ping(ctx context.Context) error
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

type postgres struct {
	pool    *sql.DB
	logger  *slog.Logger
	timeout time.Duration
	ready   atomic.Bool
}

// New opens a pgx-backed pool sized from cfg. No connection is made until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	pool, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &postgres{
		pool:    pool,
		logger:  logger.With("system", "database", "host", cfg.Host, "name", cfg.Name),
		timeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (p *postgres) Connection() *sql.DB {
	return p.pool
}

func (p *postgres) Ready() bool {
	return p.ready.Load()
}

func (p *postgres) Ping(ctx context.Context) error {
	if !p.ready.Load() {
		return ErrNotReady
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.pool.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (p *postgres) Start(lc *lifecycle.Coordinator) error {
	p.logger.Info("starting database connection")

	lc.OnStartup(func() {
		if err := p.connect(lc.Context()); err != nil {
			p.logger.Error("database ping failed", "error", err)
			return
		}

		p.ready.Store(true)
		p.logger.Info("database connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		p.ready.Store(false)

		if err := p.pool.Close(); err != nil {
			p.logger.Error("database close failed", "error", err)
			return
		}

		p.logger.Info("database connection closed")
	})

	return nil
}

// connect pings until the first success or until the connection timeout elapses.
// A freshly started Postgres container refuses connections for a few seconds.
func (p *postgres) connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	for {
		err := p.pool.PingContext(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(retryInterval):
			p.logger.Debug("database not accepting connections, retrying", "error", err)
		}
	}
}
