package main

import (
	"context"
	"time"

	"github.com/JaimeStill/rainn/internal/api"
	"github.com/JaimeStill/rainn/internal/config"
	"github.com/JaimeStill/rainn/internal/infrastructure"
	"github.com/JaimeStill/rainn/pkg/database"
)

// session is a started infrastructure with the domain systems built on it.
type session struct {
	cfg    *config.Config
	infra  *infrastructure.Infrastructure
	domain *api.Domain
}

func openSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	if err := infra.Start(); err != nil {
		return nil, err
	}

	infra.Lifecycle.WaitForStartup()
	if !infra.Database.Ready() {
		infra.Lifecycle.Shutdown(cfg.ShutdownTimeoutDuration())
		return nil, database.ErrNotReady
	}

	return &session{
		cfg:    cfg,
		infra:  infra,
		domain: api.NewDomain(api.NewRuntime(cfg, infra)),
	}, nil
}

func (s *session) Context() context.Context {
	return s.infra.Lifecycle.Context()
}

func (s *session) Close() {
	timeout := s.cfg.ShutdownTimeoutDuration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if err := s.infra.Lifecycle.Shutdown(timeout); err != nil {
		s.infra.Logger.Error("shutdown failed", "error", err)
	}
}
