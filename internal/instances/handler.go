package instances

import (
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/handlers"
	"github.com/JaimeStill/rainn/pkg/pagination"
	"github.com/JaimeStill/rainn/pkg/routes"
)

// Handler provides HTTP endpoints for reading and deleting runs.
// Every read of a run's content slides its expiry window.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "runs"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for run endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/runs",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/stages", Handler: h.Stages},
			{Method: "GET", Pattern: "/{id}/artifacts/{name...}", Handler: h.Artifact},
			{Method: "GET", Pattern: "/{id}/download", Handler: h.Download},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

// List returns a paginated list of runs, receipts included.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find touches and returns a run.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	inst, err := h.sys.Touch(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, inst)
}

// Stages touches a run and returns its stage records.
func (h *Handler) Stages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if _, err := h.sys.Touch(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	stages, err := h.sys.Stages(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stages)
}

// Artifact touches a run and serves one file from its run folder.
func (h *Handler) Artifact(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	inst, err := h.sys.Touch(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	name := r.PathValue("name")
	f, err := OpenArtifact(inst, name)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	http.ServeContent(w, r, path.Base(name), info.ModTime(), f)
}

// Download marks a run downloaded and streams its folder as a zip archive.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	inst, err := h.sys.MarkDownloaded(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	bundle, err := h.sys.Bundle(r.Context(), inst)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer bundle.Close()

	handlers.Attachment(w, "run_"+id.String()+".zip", "application/zip")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, bundle); err != nil {
		h.logger.Warn("bundle stream interrupted", "instance_id", id, "error", err)
	}
}

// Delete soft-deletes a finished run.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.sys.SoftDelete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return handlers.PathID(w, r, h.logger, "id", ErrNotFound)
}
