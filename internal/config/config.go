// Package config loads and validates application configuration from an
// optional YAML file and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Backend       BackendConfig       `yaml:"backend"`
	Catalog       CatalogConfig       `yaml:"catalog"`
	Admin         AdminConfig         `yaml:"admin"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// BackendConfig describes the Conductor server.
type BackendConfig struct {
	BaseURL   string          `yaml:"base_url"`
	APIPath   string          `yaml:"api_path"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Endpoint returns the API root that every call path is appended to.
func (b BackendConfig) Endpoint() string {
	return strings.TrimRight(b.BaseURL, "/") + normalizeAPIPath(b.APIPath)
}

// RateLimitConfig throttles outbound calls. A zero RequestsPerSecond
// disables the limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// CatalogConfig describes optional startup checks for the operation catalog.
type CatalogConfig struct {
	// OpenAPISpec is a path to Conductor's OpenAPI document. When set, every
	// catalog route must exist in it or startup fails.
	OpenAPISpec string `yaml:"openapi_spec"`
}

// AdminConfig describes the optional HTTP listener for health and metrics.
// An empty Address disables it.
type AdminConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8080",
			APIPath: "/api",
			Timeout: 30 * time.Second,
		},
		Admin: AdminConfig{
			ShutdownTimeout: 5 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty), and environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	u, err := url.Parse(c.Backend.BaseURL)
	switch {
	case c.Backend.BaseURL == "":
		errs = append(errs, "backend.base_url is required")
	case err != nil:
		errs = append(errs, fmt.Sprintf("backend.base_url is invalid: %v", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, "backend.base_url must use http or https")
	case u.Host == "":
		errs = append(errs, "backend.base_url must include a host")
	}
	if strings.ContainsAny(c.Backend.APIPath, "?#") {
		errs = append(errs, "backend.api_path must not contain a query or fragment")
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, "backend.timeout must be positive")
	}
	if c.Backend.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, "backend.rate_limit.requests_per_second must not be negative")
	}
	if c.Observability.Tracing.SamplingRate < 0 || c.Observability.Tracing.SamplingRate > 1 {
		errs = append(errs, "observability.tracing.sampling_rate must be between 0 and 1")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads CONDUCTOR_* environment variables and overrides
// config values. The two backend variables match the ones Conductor's own
// clients use.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("CONDUCTOR_SERVER_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("CONDUCTOR_API_PATH"); v != "" {
		cfg.Backend.APIPath = v
	}
	if v := os.Getenv("CONDUCTOR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CONDUCTOR_TIMEOUT: %w", err)
		}
		cfg.Backend.Timeout = d
	}
	if v := os.Getenv("CONDUCTOR_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("CONDUCTOR_MCP_ADMIN_ADDR"); v != "" {
		cfg.Admin.Address = v
	}
	return nil
}

func normalizeAPIPath(p string) string {
	p = strings.TrimRight(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
