package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/JaimeStill/rainn/internal/api"
	"github.com/JaimeStill/rainn/internal/config"
	"github.com/JaimeStill/rainn/internal/infrastructure"
	"github.com/JaimeStill/rainn/pkg/module"
)

// Server owns the started infrastructure, the mounted API module, and the
// HTTP listener.
type Server struct {
	infra  *infrastructure.Infrastructure
	domain *api.Domain
	http   *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	apiModule, domain, err := api.NewModule(infra.Lifecycle.Context(), cfg, infra)
	if err != nil {
		return nil, err
	}

	router := probes(infra)
	router.Mount(apiModule)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"model_provider", cfg.Model.Provider,
		"runs_root", cfg.Runs.Root,
		"bundle_cache", infra.Storage != nil,
	)

	return &Server{
		infra:  infra,
		domain: domain,
		http:   newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Start registers infrastructure, the retention sweeper, and the listener
// with the lifecycle coordinator. It returns once the port is bound.
func (s *Server) Start() error {
	lc := s.infra.Lifecycle

	if err := s.infra.Start(); err != nil {
		return err
	}
	s.domain.Sweeper.Start(lc)
	if err := s.http.Start(lc); err != nil {
		return err
	}

	go func() {
		lc.WaitForStartup()
		s.infra.Logger.Info("subsystems ready", "database", s.infra.Database.Ready())
	}()
	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("shutting down", "timeout", timeout)
	return s.infra.Lifecycle.Shutdown(timeout)
}

// probes builds the root router with liveness, readiness, and metrics.
// Readiness requires the database; a missing bundle cache only degrades it.
func probes(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeProbe(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ready"}

		switch {
		case !infra.Lifecycle.Ready():
			body["status"] = "starting"
			writeProbe(w, http.StatusServiceUnavailable, body)
			return
		case infra.Storage != nil && !infra.Storage.Ready():
			body["bundle_cache"] = "unavailable"
		}

		if err := infra.Database.Ping(r.Context()); err != nil {
			infra.Logger.Warn("readiness check failed", "error", err)
			body["status"] = "database unavailable"
			writeProbe(w, http.StatusServiceUnavailable, body)
			return
		}
		writeProbe(w, http.StatusOK, body)
	})

	router.Handle("GET /metrics", infra.Metrics.Handler())
	return router
}

func writeProbe(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}
