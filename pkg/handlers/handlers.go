// Package handlers provides the response helpers shared by the domain HTTP handlers.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/google/uuid"
)

// RespondJSON writes data as a JSON body with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes it as {"error": "..."} with the given status.
// Server errors log at error level, client errors at warn.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}

	RespondJSON(w, status, map[string]string{"error": err.Error()})
}

// Attachment sets the headers for a file download named filename.
// Non-ASCII names are encoded per RFC 2231.
func Attachment(w http.ResponseWriter, filename, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": filename,
	}))
}

// PathID parses the named path value as a UUID. A malformed value is answered
// with 400 carrying notFound, and ok is false.
func PathID(w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string, notFound error) (id uuid.UUID, ok bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		RespondError(w, logger, http.StatusBadRequest, notFound)
		return uuid.Nil, false
	}
	return id, true
}

// DecodeJSON reads the request body into a T. A malformed body is answered
// with 400, and ok is false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (v T, ok bool) {
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		RespondError(w, logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return v, false
	}
	return v, true
}
