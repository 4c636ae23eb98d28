package api

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/lectern/pkg/handlers"
	"github.com/JaimeStill/lectern/pkg/previews"
	"github.com/JaimeStill/lectern/pkg/routes"
)

// PreviewPath is the URL path, relative to the API base path, that serves a preview handle.
func PreviewPath(basePath string, h previews.Handle) string {
	return basePath + "/previews/" + string(h)
}

type previewsHandler struct {
	pool   previews.Pool
	logger *slog.Logger
}

func newPreviewsHandler(pool previews.Pool, logger *slog.Logger) *previewsHandler {
	return &previewsHandler{
		pool:   pool,
		logger: logger.With("handler", "previews"),
	}
}

func (h *previewsHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/previews",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{handle}", Handler: h.open, OpenAPI: previewSpec},
		},
	}
}

func (h *previewsHandler) open(w http.ResponseWriter, r *http.Request) {
	handle := previews.Handle(r.PathValue("handle"))

	p, err := h.pool.Open(r.Context(), handle)
	if err != nil {
		handlers.RespondError(
			w, h.logger,
			previews.MapHTTPStatus(err), err,
		)
		return
	}
	defer p.Body.Close()

	handlers.SetUntrustedContentHeaders(w, p.ContentType, "")
	w.Header().Set("Cache-Control", "private, no-store")
	if p.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(p.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	io.Copy(w, p.Body)
}
