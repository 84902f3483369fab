package flows

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/rainn/internal/processes"
	"github.com/JaimeStill/rainn/pkg/handlers"
	"github.com/JaimeStill/rainn/pkg/routes"
)

const maxDocumentSize = 1 << 20

// Exchanger is the flow exchange contract served over HTTP.
type Exchanger interface {
	Export(ctx context.Context, processID uuid.UUID) (*Document, error)
	Import(ctx context.Context, doc *Document) (*processes.Process, error)
}

// Handler provides HTTP endpoints for flow export and import.
type Handler struct {
	exchange Exchanger
	logger   *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(exchange Exchanger, logger *slog.Logger) *Handler {
	return &Handler{
		exchange: exchange,
		logger:   logger.With("handler", "flows"),
	}
}

// Routes returns the route group definition for flow endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/flows",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{processId}", Handler: h.Export},
			{Method: "POST", Pattern: "/validate", Handler: h.Validate},
			{Method: "POST", Pattern: "/import", Handler: h.Import},
		},
	}
}

// Export writes a process as a flow document. ?format=yaml selects YAML.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(w, r, h.logger, "processId", processes.ErrNotFound)
	if !ok {
		return
	}

	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	doc, err := h.exchange.Export(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	data, err := Encode(doc, format)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.Attachment(w, "flow_"+id.String()+"."+string(format), format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Validate checks a flow document without importing it.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.decode(w, r); !ok {
		return
	}
	handlers.RespondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// Import creates an agent and process from a flow document.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	doc, ok := h.decode(w, r)
	if !ok {
		return
	}

	proc, err := h.exchange.Import(r.Context(), doc)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, proc)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*Document, bool) {
	format, err := requestFormat(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return nil, false
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentSize))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
		return nil, false
	}

	doc, err := Decode(data, format)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return doc, true
}

func requestFormat(r *http.Request) (Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return ParseFormat(f)
	}
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		return FormatYAML, nil
	}
	return FormatJSON, nil
}
