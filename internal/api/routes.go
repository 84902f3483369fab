package api

import (
	"net/http"

	"github.com/JaimeStill/rainn/internal/execution"
	"github.com/JaimeStill/rainn/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Agents.Handler().Routes(),
		domain.Processes.Handler().Routes(),
		domain.Instances.Handler().Routes(),
		execution.NewHandler(
			domain.Runtime,
			runtime.Logger,
			runtime.MaxUploadSize,
			runtime.Runs.MaxFiles,
		).Routes(),
		domain.Flows.Handler().Routes(),
	)
}
