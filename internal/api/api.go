// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/JaimeStill/lectern/internal/config"
	"github.com/JaimeStill/lectern/internal/infrastructure"
	"github.com/JaimeStill/lectern/pkg/middleware"
	"github.com/JaimeStill/lectern/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// It also returns the domain so other modules can share its systems.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	if err := domain.Uploads.Start(infra.Lifecycle); err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	if err := registerRoutes(mux, domain, cfg, runtime); err != nil {
		return nil, nil, err
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, domain, nil
}
