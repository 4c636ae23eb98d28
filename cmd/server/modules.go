package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/lectern/internal/api"
	"github.com/JaimeStill/lectern/internal/config"
	"github.com/JaimeStill/lectern/internal/infrastructure"
	"github.com/JaimeStill/lectern/pkg/module"
	"github.com/JaimeStill/lectern/web/app"
)

const appBasePath = "/app"

type Modules struct {
	API *module.Module
	App *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, domain, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	appModule, err := app.NewModule(appBasePath, &app.Deps{
		Uploads:       domain.Uploads,
		Catalog:       infra.I18n,
		Gate:          infra.Auth,
		APIBasePath:   cfg.API.BasePath,
		MaxUploadSize: cfg.API.MaxUploadSizeBytes(),
		Logger:        infra.Logger.With("module", "app"),
	})
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: apiModule,
		App: appModule,
	}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
	router.Mount(m.App)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, appBasePath+"/upload", http.StatusFound)
	})

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	return router
}
