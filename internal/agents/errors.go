package agents

import (
	"errors"
	"net/http"
)

// Domain errors for agent operations.
var (
	ErrNotFound        = errors.New("agent not found")
	ErrStageNotFound   = errors.New("stage not found")
	ErrDuplicate       = errors.New("agent name already exists")
	ErrInUse           = errors.New("agent is referenced by a process or run")
	ErrNameRequired    = errors.New("agent name is required")
	ErrEmptyStage      = errors.New("stage requires a type or description")
	ErrInvalidRole     = errors.New("role must be generic, final_output, or visual_output")
	ErrInvalidPosition = errors.New("stage position must not be negative")
)

// MapHTTPStatus maps agent domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrStageNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInUse):
		return http.StatusConflict
	case errors.Is(err, ErrNameRequired),
		errors.Is(err, ErrEmptyStage),
		errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrInvalidPosition):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
