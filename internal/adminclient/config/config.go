// Package config holds runtime settings for the admin CLI (SPEC_FULL.md
// C17), a thin demo shell exercising init/complete/admin against a
// running vault server. Mirrors the teacher's client config shape:
// defaults, then an optional JSON file, then command-line flags.
package config

import "time"

// Config holds the admin CLI's connection settings.
type Config struct {
	BaseURL   string
	AppKey    string
	AppSecret string
	Timeout   time.Duration
}

// LoadDefaults populates c with development-only defaults.
func (c *Config) LoadDefaults() {
	c.BaseURL = "http://127.0.0.1:8080"
	c.AppKey = "registry"
	c.AppSecret = "development-only-secret"
	c.Timeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
