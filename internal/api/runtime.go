package api

import (
	"github.com/JaimeStill/lectern/internal/config"
	"github.com/JaimeStill/lectern/internal/infrastructure"
	"github.com/JaimeStill/lectern/pkg/pagination"
)

// Runtime is the infrastructure as the API module sees it: the shared
// systems with an api-scoped logger, plus listing limits.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime copies infra so the scoped logger does not leak into other modules.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Pagination:     cfg.API.Pagination,
	}
}
