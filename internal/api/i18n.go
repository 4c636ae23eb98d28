package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/lectern/pkg/handlers"
	"github.com/JaimeStill/lectern/pkg/i18n"
	"github.com/JaimeStill/lectern/pkg/routes"
)

var errUnknownLanguage = errors.New("unknown language")

type languagesResponse struct {
	Languages []string `json:"languages"`
	Preferred string   `json:"preferred"`
}

type i18nHandler struct {
	catalog *i18n.Catalog
	logger  *slog.Logger
}

func newI18nHandler(catalog *i18n.Catalog, logger *slog.Logger) *i18nHandler {
	return &i18nHandler{
		catalog: catalog,
		logger:  logger.With("handler", "i18n"),
	}
}

func (h *i18nHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/i18n",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.languages, OpenAPI: i18nSpec.languages},
			{Method: "GET", Pattern: "/{lang}", Handler: h.table, OpenAPI: i18nSpec.table},
		},
	}
}

func (h *i18nHandler) languages(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, languagesResponse{
		Languages: h.catalog.Languages(),
		Preferred: h.catalog.Negotiate(r).Language(),
	})
}

func (h *i18nHandler) table(w http.ResponseWriter, r *http.Request) {
	table, ok := h.catalog.Table(r.PathValue("lang"))
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusNotFound, errUnknownLanguage)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, table)
}
