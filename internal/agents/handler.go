package agents

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/pkg/handlers"
	"github.com/JaimeStill/rainn/pkg/pagination"
	"github.com/JaimeStill/rainn/pkg/routes"
)

// Handler serves agent definitions and their stages.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "agents"),
		pagination: pagination,
	}
}

// Routes mounts under /agents. Stage edits address the stage directly, since
// a stage id is unique across agents.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/agents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/roles", Handler: h.Roles},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
			{Method: "GET", Pattern: "/{id}/stages", Handler: h.Stages},
			{Method: "POST", Pattern: "/{id}/stages", Handler: h.AddStage},
			{Method: "PUT", Pattern: "/stages/{stageId}", Handler: h.UpdateStage},
			{Method: "DELETE", Pattern: "/stages/{stageId}", Handler: h.DeleteStage},
		},
	}
}

// respond writes v with status, or the mapped status for err.
func (h *Handler) respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if v == nil {
		w.WriteHeader(status)
		return
	}
	handlers.RespondJSON(w, status, v)
}

func (h *Handler) agentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return handlers.PathID(w, r, h.logger, "id", ErrNotFound)
}

func (h *Handler) stageID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return handlers.PathID(w, r, h.logger, "stageId", ErrStageNotFound)
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

// Roles lists the roles a stage may declare explicitly.
func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, Roles())
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.agentID(w, r); ok {
		agent, err := h.sys.Find(r.Context(), id)
		h.respond(w, http.StatusOK, agent, err)
	}
}

// Create stores an agent together with any stages in the body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if cmd, ok := handlers.DecodeJSON[CreateCommand](w, r, h.logger); ok {
		agent, err := h.sys.Create(r.Context(), cmd)
		h.respond(w, http.StatusCreated, agent, err)
	}
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.agentID(w, r)
	if !ok {
		return
	}
	if cmd, ok := handlers.DecodeJSON[UpdateCommand](w, r, h.logger); ok {
		agent, err := h.sys.Update(r.Context(), id, cmd)
		h.respond(w, http.StatusOK, agent, err)
	}
}

// Delete refuses with 409 while a process or run still references the agent.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.agentID(w, r); ok {
		h.respond(w, http.StatusNoContent, nil, h.sys.Delete(r.Context(), id))
	}
}

// Stages returns the agent's stages in execution order.
func (h *Handler) Stages(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.agentID(w, r); ok {
		stages, err := h.sys.Stages(r.Context(), id)
		h.respond(w, http.StatusOK, stages, err)
	}
}

func (h *Handler) AddStage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.agentID(w, r)
	if !ok {
		return
	}
	if cmd, ok := handlers.DecodeJSON[StageCommand](w, r, h.logger); ok {
		stage, err := h.sys.AddStage(r.Context(), id, cmd)
		h.respond(w, http.StatusCreated, stage, err)
	}
}

func (h *Handler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.stageID(w, r)
	if !ok {
		return
	}
	if cmd, ok := handlers.DecodeJSON[StageCommand](w, r, h.logger); ok {
		stage, err := h.sys.UpdateStage(r.Context(), id, cmd)
		h.respond(w, http.StatusOK, stage, err)
	}
}

func (h *Handler) DeleteStage(w http.ResponseWriter, r *http.Request) {
	if id, ok := h.stageID(w, r); ok {
		h.respond(w, http.StatusNoContent, nil, h.sys.DeleteStage(r.Context(), id))
	}
}
