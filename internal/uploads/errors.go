package uploads

import (
	"errors"
	"net/http"
)

// Domain errors for upload session operations.
var (
	ErrNotFound             = errors.New("session not found")
	ErrFileNotFound         = errors.New("file not found")
	ErrSessionClosed        = errors.New("session closed")
	ErrCropIneligible       = errors.New("file cannot be cropped")
	ErrCropClosed           = errors.New("crop dialog is not open")
	ErrNoSelection          = errors.New("no committed crop selection")
	ErrSelectionTooSmall    = errors.New("crop selection below minimum size")
	ErrSelectionOutOfBounds = errors.New("crop selection outside image bounds")
	ErrAspectMismatch       = errors.New("crop selection does not match aspect ratio")
	ErrApplyInFlight        = errors.New("crop already being applied")
	ErrCropStale            = errors.New("crop dialog changed while applying")
	ErrRasterize            = errors.New("failed to render cropped image")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPayloadTooLarge      = errors.New("request exceeds maximum upload size")
)

// MapHTTPStatus maps upload domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, ErrCropIneligible),
		errors.Is(err, ErrSelectionTooSmall),
		errors.Is(err, ErrSelectionOutOfBounds),
		errors.Is(err, ErrAspectMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrCropClosed),
		errors.Is(err, ErrNoSelection),
		errors.Is(err, ErrApplyInFlight),
		errors.Is(err, ErrCropStale):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
