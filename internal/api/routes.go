package api

import (
	"net/http"

	"github.com/JaimeStill/lectern/internal/config"
	"github.com/JaimeStill/lectern/pkg/auth"
	"github.com/JaimeStill/lectern/pkg/routes"
)

// registerRoutes mounts the public i18n tables and OpenAPI document, and the
// session and preview routes, which require a signed-in identity.
func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) error {
	groups := []routes.Group{
		newI18nHandler(runtime.I18n, runtime.Logger).routes(),
		{
			Middleware: []func(http.Handler) http.Handler{
				auth.RequireAPI(runtime.Auth, runtime.Logger),
			},
			Children: []routes.Group{
				domain.Uploads.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
				newPreviewsHandler(runtime.Previews, runtime.Logger).routes(),
			},
		},
	}

	docs, err := specRoutes(cfg, groups...)
	if err != nil {
		return err
	}

	routes.Register(mux, append(groups, docs)...)
	return nil
}
