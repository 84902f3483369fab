package instances

import (
	"errors"
	"net/http"
)

// Domain errors for run lifecycle operations.
var (
	ErrNotFound          = errors.New("run not found")
	ErrStageNotFound     = errors.New("stage record not found or already finished")
	ErrGone              = errors.New("this run was automatically deleted for privacy")
	ErrRunning           = errors.New("run is still in progress")
	ErrNotExpired        = errors.New("run has not expired")
	ErrAlreadyFinalized  = errors.New("run status already finalized")
	ErrInvalidStatus     = errors.New("status must be COMPLETED or FAILED")
	ErrArtifactNotFound  = errors.New("artifact not found")
	ErrInvalidArtifact   = errors.New("invalid artifact path")
	ErrFolderUnallocated = errors.New("run folder not allocated")
)

// MapHTTPStatus maps run lifecycle errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrStageNotFound),
		errors.Is(err, ErrArtifactNotFound),
		errors.Is(err, ErrFolderUnallocated):
		return http.StatusNotFound
	case errors.Is(err, ErrGone):
		return http.StatusGone
	case errors.Is(err, ErrRunning),
		errors.Is(err, ErrAlreadyFinalized),
		errors.Is(err, ErrNotExpired):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidArtifact):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
