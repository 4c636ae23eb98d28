package previews

import (
	"fmt"
	"os"

	"github.com/JaimeStill/lectern/pkg/storage"
)

// Preview pool backends.
const (
	BackendMemory = "memory"
	BackendBlob   = "blob"
)

// Config selects the preview backend. Storage is only read for the blob backend.
type Config struct {
	Backend string         `toml:"backend"`
	Storage storage.Config `toml:"storage"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Backend string
	Storage *storage.Env
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if env != nil && env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}

	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendBlob:
		var storageEnv *storage.Env
		if env != nil {
			storageEnv = env.Storage
		}
		if err := c.Storage.Finalize(storageEnv); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	c.Storage.Merge(&overlay.Storage)
}
