// Package config loads the client configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/eva-app/evaclient/pkg/models"
	"gopkg.in/yaml.v3"
)

// Environments known to the default endpoint table.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all client configuration.
type Config struct {
	Environment string           `yaml:"environment"`
	Endpoints   []EndpointConfig `yaml:"endpoints"`
	DBPath      string           `yaml:"db_path"`
	LogLevel    string           `yaml:"log_level"`
	Request     RequestConfig    `yaml:"request"`
	Session     SessionConfig    `yaml:"session"`
	Guard       GuardConfig      `yaml:"guard"`
	Tracker     TrackerConfig    `yaml:"tracker"`
}

// EndpointConfig maps an environment name to an API base URL.
type EndpointConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"base_url"`
}

// RequestConfig controls the request orchestrator.
type RequestConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	SuccessCode   int           `yaml:"success_code"`
	RedirectDelay time.Duration `yaml:"redirect_delay"`
	LoginRoute    string        `yaml:"login_route"`
	// RateLimit is in requests per second; zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// SessionConfig controls where the session is persisted.
type SessionConfig struct {
	TokenKey    string        `yaml:"token_key"`
	IdentityKey string        `yaml:"identity_key"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

// GuardConfig lists public routes and per-route access rules.
type GuardConfig struct {
	Public []string           `yaml:"public"`
	Rules  []models.RouteRule `yaml:"rules"`
}

// TrackerConfig controls the local dispatch history.
type TrackerConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Retention time.Duration `yaml:"retention"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Endpoints: []EndpointConfig{
			{Name: EnvDevelopment, BaseURL: "http://localhost:8080"},
			{Name: EnvProduction, BaseURL: "https://api.eva-app.com"},
		},
		DBPath:   "eva.db",
		LogLevel: "info",
		Request: RequestConfig{
			Timeout:       30 * time.Second,
			SuccessCode:   200,
			RedirectDelay: 1500 * time.Millisecond,
			LoginRoute:    "/pages/login/index",
		},
		Session: SessionConfig{
			TokenKey:    "token",
			IdentityKey: "user_info",
		},
		Guard: GuardConfig{
			Public: []string{"/pages/login/index"},
		},
		Tracker: TrackerConfig{
			Enabled:   true,
			Retention: 7 * 24 * time.Hour,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks fields that would otherwise fail later at request time.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Endpoints) == 0 {
		errs = append(errs, errors.New("no endpoints configured"))
	}
	for i, e := range c.Endpoints {
		if e.Name == "" || e.BaseURL == "" {
			errs = append(errs, fmt.Errorf("endpoint %d: name and base_url are required", i))
		}
	}
	if c.Request.SuccessCode == 0 {
		errs = append(errs, errors.New("request.success_code must be non-zero"))
	}
	if c.Request.RateLimit < 0 {
		errs = append(errs, errors.New("request.rate_limit must not be negative"))
	}
	for _, r := range c.Guard.Rules {
		if r.Mode != "" && r.Mode != models.AccessAll && r.Mode != models.AccessAny {
			errs = append(errs, fmt.Errorf("guard rule %q: unknown mode %q", r.Route, r.Mode))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
