package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/lectern/internal/uploads"
	"github.com/JaimeStill/lectern/pkg/auth"
	"github.com/JaimeStill/lectern/pkg/previews"
	"github.com/JaimeStill/lectern/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvLecternEnv             = "LECTERN_ENV"
	EnvLecternShutdownTimeout = "LECTERN_SHUTDOWN_TIMEOUT"
	EnvLecternVersion         = "LECTERN_VERSION"
)

var uploadsEnv = &uploads.Env{
	MaxFiles:      "LECTERN_UPLOADS_MAX_FILES",
	MaxSize:       "LECTERN_UPLOADS_MAX_SIZE",
	Accept:        "LECTERN_UPLOADS_ACCEPT",
	SessionTTL:    "LECTERN_UPLOADS_SESSION_TTL",
	SweepInterval: "LECTERN_UPLOADS_SWEEP_INTERVAL",
	ProbeWorkers:  "LECTERN_UPLOADS_PROBE_WORKERS",
	AspectRatio:   "LECTERN_UPLOADS_CROP_ASPECT_RATIO",
	MinWidth:      "LECTERN_UPLOADS_CROP_MIN_WIDTH",
	MinHeight:     "LECTERN_UPLOADS_CROP_MIN_HEIGHT",
}

var previewsEnv = &previews.Env{
	Backend: "LECTERN_PREVIEWS_BACKEND",
	Storage: &storage.Env{
		ContainerName:    "LECTERN_STORAGE_CONTAINER_NAME",
		ConnectionString: "LECTERN_STORAGE_CONNECTION_STRING",
	},
}

var authEnv = &auth.Env{
	Enabled:      "LECTERN_AUTH_ENABLED",
	Issuer:       "LECTERN_AUTH_ISSUER",
	ClientID:     "LECTERN_AUTH_CLIENT_ID",
	SignInURL:    "LECTERN_AUTH_SIGN_IN_URL",
	CookieName:   "LECTERN_AUTH_COOKIE_NAME",
	LocalSubject: "LECTERN_AUTH_LOCAL_SUBJECT",
}

// Config is the root configuration for the Lectern service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	API             APIConfig       `toml:"api"`
	Uploads         uploads.Config  `toml:"uploads"`
	Previews        previews.Config `toml:"previews"`
	Auth            auth.Config     `toml:"auth"`
	I18n            I18nConfig      `toml:"i18n"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the LECTERN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLecternEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.Uploads.Merge(&overlay.Uploads)
	c.Previews.Merge(&overlay.Previews)
	c.Auth.Merge(&overlay.Auth)
	c.I18n.Merge(&overlay.I18n)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Uploads.Finalize(uploadsEnv); err != nil {
		return fmt.Errorf("uploads: %w", err)
	}
	if err := c.Previews.Finalize(previewsEnv); err != nil {
		return fmt.Errorf("previews: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.I18n.Finalize(); err != nil {
		return fmt.Errorf("i18n: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.Auth.SignInURL == "" {
		c.Auth.SignInURL = "/app/sign-in"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvLecternShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLecternVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvLecternEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
