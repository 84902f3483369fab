package processes

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/rainn/pkg/handlers"
	"github.com/JaimeStill/rainn/pkg/pagination"
	"github.com/JaimeStill/rainn/pkg/routes"
)

// Handler serves process configurations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "processes"),
		pagination: pagination,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/processes",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.sys.List(r.Context(), pagination.PageRequestFromQuery(query, h.pagination), FiltersFromQuery(query))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(w, r, h.logger, "id", ErrNotFound)
	if !ok {
		return
	}

	proc, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, proc)
}

// Create answers 409 when the name is taken and 400 when the agent is unknown.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	cmd, ok := handlers.DecodeJSON[CreateCommand](w, r, h.logger)
	if !ok {
		return
	}

	proc, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusCreated, proc)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(w, r, h.logger, "id", ErrNotFound)
	if !ok {
		return
	}
	cmd, ok := handlers.DecodeJSON[UpdateCommand](w, r, h.logger)
	if !ok {
		return
	}

	proc, err := h.sys.Update(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, proc)
}

// Delete answers 409 while runs still reference the process.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(w, r, h.logger, "id", ErrNotFound)
	if !ok {
		return
	}

	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
