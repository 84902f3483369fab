package execution

import (
	"errors"
	"net/http"
)

// Request errors raised by the run handler before a run starts.
var (
	ErrProcessRequired = errors.New("process_id is required")
	ErrInvalidID       = errors.New("invalid identifier")
	ErrNoFiles         = errors.New("at least one file is required")
	ErrTooManyFiles    = errors.New("too many files")
	ErrUploadTooLarge  = errors.New("upload exceeds size limit")
	ErrInvalidUpload   = errors.New("invalid upload")
)

// MapHTTPStatus maps run request errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrProcessRequired),
		errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrNoFiles),
		errors.Is(err, ErrTooManyFiles),
		errors.Is(err, ErrInvalidUpload),
		errors.Is(err, ErrUnsupportedFileType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
