package config

import (
	"fmt"
	"os"
)

const EnvI18nDefaultLanguage = "LECTERN_I18N_DEFAULT_LANGUAGE"

// I18nConfig selects the language used when negotiation finds no match.
type I18nConfig struct {
	DefaultLanguage string `toml:"default_language"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *I18nConfig) Finalize() error {
	if c.DefaultLanguage == "" {
		c.DefaultLanguage = "en"
	}
	if v := os.Getenv(EnvI18nDefaultLanguage); v != "" {
		c.DefaultLanguage = v
	}
	if len(c.DefaultLanguage) < 2 {
		return fmt.Errorf("invalid default_language: %q", c.DefaultLanguage)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *I18nConfig) Merge(overlay *I18nConfig) {
	if overlay.DefaultLanguage != "" {
		c.DefaultLanguage = overlay.DefaultLanguage
	}
}
