package previews

import (
	"errors"
	"net/http"
)

// ErrUnknownHandle indicates a handle that was never issued or was already revoked.
var ErrUnknownHandle = errors.New("unknown preview handle")

// MapHTTPStatus maps preview errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrUnknownHandle) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
