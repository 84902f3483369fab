package processes

import (
	"errors"
	"net/http"
)

// Domain errors for process operations.
var (
	ErrNotFound      = errors.New("process not found")
	ErrDuplicate     = errors.New("process name already exists")
	ErrInUse         = errors.New("process is referenced by a run")
	ErrAgentNotFound = errors.New("agent not found")
	ErrAgentRequired = errors.New("agent_id is required")
	ErrNameRequired  = errors.New("process name is required")
	ErrModelRequired = errors.New("model is required")
)

// MapHTTPStatus maps process domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInUse):
		return http.StatusConflict
	case errors.Is(err, ErrAgentNotFound),
		errors.Is(err, ErrAgentRequired),
		errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrModelRequired):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
