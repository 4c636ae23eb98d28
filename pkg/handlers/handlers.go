// Package handlers provides shared JSON response helpers for HTTP handlers.
package handlers

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"slices"
)

// sandboxPolicy forbids every fetch and script from a served payload.
const sandboxPolicy = "default-src 'none'; sandbox"

var inlineTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

// RespondJSON writes data as a JSON body with the given status code.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError logs err and writes it as {"error": "..."} with the given status code.
// Server errors log at error level, client errors at warn.
func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Error("handler error", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}
	RespondJSON(w, status, map[string]string{"error": err.Error()})
}

// SetUntrustedContentHeaders prepares w to serve bytes whose type was declared
// by a client. The declared type is sent with nosniff and a sandboxing CSP.
// Raster images are served inline; every other type is an attachment.
// filename may be empty.
func SetUntrustedContentHeaders(w http.ResponseWriter, contentType, filename string) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Security-Policy", sandboxPolicy)

	disposition := "attachment"
	if InlineSafe(contentType) {
		disposition = "inline"
	}
	var params map[string]string
	if filename != "" {
		params = map[string]string{"filename": filename}
	}
	h.Set("Content-Disposition", mime.FormatMediaType(disposition, params))
}

// InlineSafe reports whether contentType names a raster image format that
// browsers render without executing content.
func InlineSafe(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return slices.Contains(inlineTypes, mediaType)
}
