package flows

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/rainn/internal/agents"
	"github.com/JaimeStill/rainn/internal/processes"
)

var (
	ErrInvalidFlow       = errors.New("invalid flow")
	ErrUnsupportedFormat = errors.New("unsupported flow format")
)

// ValidationError reports why a document was rejected. It matches
// ErrInvalidFlow.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidFlow
}

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// MapHTTPStatus maps flow errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, processes.ErrNotFound), errors.Is(err, agents.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidFlow), errors.Is(err, ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, agents.ErrDuplicate), errors.Is(err, processes.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
