// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, previews, auth, translations) that
// domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/lectern/internal/config"
	"github.com/JaimeStill/lectern/internal/locales"
	"github.com/JaimeStill/lectern/pkg/auth"
	"github.com/JaimeStill/lectern/pkg/i18n"
	"github.com/JaimeStill/lectern/pkg/lifecycle"
	"github.com/JaimeStill/lectern/pkg/previews"
)

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Previews  previews.Pool
	Auth      auth.Gate
	I18n      *i18n.Catalog
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	pool, err := previews.New(&cfg.Previews, logger)
	if err != nil {
		return nil, fmt.Errorf("previews init failed: %w", err)
	}

	catalog, err := i18n.LoadFS(locales.FS, cfg.I18n.DefaultLanguage)
	if err != nil {
		return nil, fmt.Errorf("i18n init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Previews:  pool,
		Auth:      auth.New(&cfg.Auth, logger),
		I18n:      catalog,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Previews.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("previews start failed: %w", err)
	}
	if err := i.Auth.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("auth start failed: %w", err)
	}
	return nil
}
