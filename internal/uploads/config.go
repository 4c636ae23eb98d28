package uploads

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/lectern/pkg/formatting"
)

// Config holds session limits, accepted types, and crop constraints.
type Config struct {
	MaxFiles      int        `toml:"max_files"`
	MaxSize       string     `toml:"max_size"`
	Accept        []string   `toml:"accept"`
	SessionTTL    string     `toml:"session_ttl"`
	SweepInterval string     `toml:"sweep_interval"`
	ProbeWorkers  int        `toml:"probe_workers"`
	Crop          CropConfig `toml:"crop"`
}

// CropConfig constrains crop selections. AspectRatio 0 allows any shape.
type CropConfig struct {
	AspectRatio float64 `toml:"aspect_ratio"`
	MinWidth    int     `toml:"min_width"`
	MinHeight   int     `toml:"min_height"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxFiles      string
	MaxSize       string
	Accept        string
	SessionTTL    string
	SweepInterval string
	ProbeWorkers  string
	AspectRatio   string
	MinWidth      string
	MinHeight     string
}

// MaxSizeBytes returns MaxSize parsed as a byte count.
func (c *Config) MaxSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxSize)
	if err != nil {
		return 10 * 1024 * 1024
	}
	return size
}

// SessionTTLDuration returns SessionTTL as a time.Duration.
func (c *Config) SessionTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.SessionTTL)
	return d
}

// SweepIntervalDuration returns SweepInterval as a time.Duration.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxFiles != 0 {
		c.MaxFiles = overlay.MaxFiles
	}
	if overlay.MaxSize != "" {
		c.MaxSize = overlay.MaxSize
	}
	if len(overlay.Accept) > 0 {
		c.Accept = overlay.Accept
	}
	if overlay.SessionTTL != "" {
		c.SessionTTL = overlay.SessionTTL
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
	if overlay.ProbeWorkers != 0 {
		c.ProbeWorkers = overlay.ProbeWorkers
	}
	if overlay.Crop.AspectRatio != 0 {
		c.Crop.AspectRatio = overlay.Crop.AspectRatio
	}
	if overlay.Crop.MinWidth != 0 {
		c.Crop.MinWidth = overlay.Crop.MinWidth
	}
	if overlay.Crop.MinHeight != 0 {
		c.Crop.MinHeight = overlay.Crop.MinHeight
	}
}

func (c *Config) loadDefaults() {
	if c.MaxFiles == 0 {
		c.MaxFiles = 10
	}
	if c.MaxSize == "" {
		c.MaxSize = "10MB"
	}
	if len(c.Accept) == 0 {
		c.Accept = []string{"image/*", "application/pdf", "text/*"}
	}
	if c.SessionTTL == "" {
		c.SessionTTL = "30m"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "1m"
	}
	if c.ProbeWorkers == 0 {
		c.ProbeWorkers = 4
	}
	if c.Crop.MinWidth == 0 {
		c.Crop.MinWidth = 50
	}
	if c.Crop.MinHeight == 0 {
		c.Crop.MinHeight = 50
	}
}

func (c *Config) loadEnv(env *Env) {
	setInt := func(name string, field *int) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*field = n
			}
		}
	}
	setString := func(name string, field *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	setInt(env.MaxFiles, &c.MaxFiles)
	setString(env.MaxSize, &c.MaxSize)
	setString(env.SessionTTL, &c.SessionTTL)
	setString(env.SweepInterval, &c.SweepInterval)
	setInt(env.ProbeWorkers, &c.ProbeWorkers)
	setInt(env.MinWidth, &c.Crop.MinWidth)
	setInt(env.MinHeight, &c.Crop.MinHeight)

	if env.Accept != "" {
		if v := os.Getenv(env.Accept); v != "" {
			var accept []string
			for part := range strings.SplitSeq(v, ",") {
				if part = strings.TrimSpace(part); part != "" {
					accept = append(accept, part)
				}
			}
			c.Accept = accept
		}
	}
	if env.AspectRatio != "" {
		if v := os.Getenv(env.AspectRatio); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Crop.AspectRatio = f
			}
		}
	}
}

func (c *Config) validate() error {
	if c.MaxFiles < 1 {
		return fmt.Errorf("max_files must be positive")
	}
	if _, err := formatting.ParseBytes(c.MaxSize); err != nil {
		return fmt.Errorf("invalid max_size: %w", err)
	}
	if len(c.Accept) == 0 {
		return fmt.Errorf("accept requires at least one type")
	}
	if d, err := time.ParseDuration(c.SessionTTL); err != nil {
		return fmt.Errorf("invalid session_ttl: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("session_ttl must be positive")
	}
	if d, err := time.ParseDuration(c.SweepInterval); err != nil {
		return fmt.Errorf("invalid sweep_interval: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	if c.ProbeWorkers < 1 {
		return fmt.Errorf("probe_workers must be positive")
	}
	if c.Crop.AspectRatio < 0 {
		return fmt.Errorf("crop aspect_ratio cannot be negative")
	}
	if c.Crop.MinWidth < 1 || c.Crop.MinHeight < 1 {
		return fmt.Errorf("crop min_width and min_height must be positive")
	}
	return nil
}
