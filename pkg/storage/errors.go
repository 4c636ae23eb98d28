package storage

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("blob not found")
	ErrEmptyKey          = errors.New("storage key must not be empty")
	ErrInvalidKey        = errors.New("storage key contains invalid path segment")
	ErrKeyTooLong        = errors.New("storage key exceeds 1024 characters")
	ErrContainerNotFound = errors.New("storage container not found")
)

// MapHTTPStatus maps storage errors to HTTP status codes. A missing container
// means startup has not finished or failed, so it reports 503.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyKey), errors.Is(err, ErrInvalidKey), errors.Is(err, ErrKeyTooLong):
		return http.StatusBadRequest
	case errors.Is(err, ErrContainerNotFound):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
