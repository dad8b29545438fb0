package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds runtime settings for the clientkeeper terminal client.
//
// Fields:
//   - ServerURL: base URL of the account backend HTTP API, without a trailing slash.
//   - OnlineCheckInterval: how often the client polls /healthz.
//   - RequestTimeout: upper bound for a single API call.
type Config struct {
	ServerURL           string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
}

// Validate checks the merged settings and normalises ServerURL.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server url %q: scheme must be http or https", c.ServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("server url %q: missing host", c.ServerURL)
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")

	if c.OnlineCheckInterval <= 0 {
		return errors.New("online check interval must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	return nil
}

// LoadConfig applies defaults, then overlays values from JSON (if present),
// the environment and command-line flags. Later sources take precedence over
// earlier ones. The result is validated before it is returned.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
