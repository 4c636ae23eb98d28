package auth

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds auth gate settings.
type Config struct {
	Enabled      bool   `toml:"enabled"`
	Issuer       string `toml:"issuer"`
	ClientID     string `toml:"client_id"`
	SignInURL    string `toml:"sign_in_url"`
	CookieName   string `toml:"cookie_name"`
	LocalSubject string `toml:"local_subject"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Enabled      string
	Issuer       string
	ClientID     string
	SignInURL    string
	CookieName   string
	LocalSubject string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites fields from overlay. Enabled always applies; strings only
// when non-empty.
func (c *Config) Merge(overlay *Config) {
	c.Enabled = overlay.Enabled
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
	if overlay.SignInURL != "" {
		c.SignInURL = overlay.SignInURL
	}
	if overlay.CookieName != "" {
		c.CookieName = overlay.CookieName
	}
	if overlay.LocalSubject != "" {
		c.LocalSubject = overlay.LocalSubject
	}
}

func (c *Config) loadDefaults() {
	if c.SignInURL == "" {
		c.SignInURL = "/sign-in"
	}
	if c.CookieName == "" {
		c.CookieName = "__session"
	}
	if c.LocalSubject == "" {
		c.LocalSubject = "local"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				c.Enabled = enabled
			}
		}
	}
	set := func(name string, field *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
	set(env.Issuer, &c.Issuer)
	set(env.ClientID, &c.ClientID)
	set(env.SignInURL, &c.SignInURL)
	set(env.CookieName, &c.CookieName)
	set(env.LocalSubject, &c.LocalSubject)
}

func (c *Config) validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Issuer == "" {
		return fmt.Errorf("issuer required when enabled")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id required when enabled")
	}
	return nil
}
