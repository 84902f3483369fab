package storage

import "errors"

var (
	ErrNotFound    = errors.New("blob not found")
	ErrEmptyKey    = errors.New("storage key must not be empty")
	ErrInvalidKey  = errors.New("storage key contains an invalid segment")
	ErrUnavailable = errors.New("storage container not ready")
)
