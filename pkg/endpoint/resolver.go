// Package endpoint maps a deployment environment to its API base URL.
package endpoint

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/eva-app/evaclient/pkg/config"
)

// Endpoint is a resolved API base URL.
type Endpoint struct {
	Env     string
	BaseURL string
}

// IsProduction reports whether the endpoint belongs to the production environment.
func (e Endpoint) IsProduction() bool {
	return e.Env == config.EnvProduction
}

// Resolver maps environment names to API base URLs.
type Resolver struct {
	cfg *config.Config
}

// New creates a Resolver from the given configuration.
func New(cfg *config.Config) *Resolver {
	return &Resolver{cfg: cfg}
}

// Current resolves the configured environment.
func (r *Resolver) Current() (Endpoint, error) {
	return r.Resolve(r.cfg.Environment)
}

// Resolve returns the endpoint for env. An empty env means development.
// Names are matched case-insensitively.
func (r *Resolver) Resolve(env string) (Endpoint, error) {
	if len(r.cfg.Endpoints) == 0 {
		return Endpoint{}, fmt.Errorf("no endpoints configured")
	}
	if env == "" {
		env = config.EnvDevelopment
	}

	for _, e := range r.cfg.Endpoints {
		if !strings.EqualFold(e.Name, env) {
			continue
		}
		u, err := url.Parse(e.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Endpoint{}, fmt.Errorf("endpoint %q: invalid base URL %q", e.Name, e.BaseURL)
		}
		return Endpoint{Env: e.Name, BaseURL: strings.TrimRight(e.BaseURL, "/")}, nil
	}
	return Endpoint{}, fmt.Errorf("unknown environment %q", env)
}

// Names lists the configured environments in order.
func (r *Resolver) Names() []string {
	names := make([]string, 0, len(r.cfg.Endpoints))
	for _, e := range r.cfg.Endpoints {
		names = append(names, e.Name)
	}
	return names
}
