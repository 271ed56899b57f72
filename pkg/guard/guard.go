// Package guard decides whether a page route may be opened by the current session.
package guard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eva-app/evaclient/pkg/config"
	"github.com/eva-app/evaclient/pkg/models"
	"github.com/eva-app/evaclient/pkg/permission"
)

var (
	// ErrLoginRequired is returned for a protected route when nobody is signed in.
	ErrLoginRequired = errors.New("login required")
	// ErrForbidden is returned when the session lacks the grants a route requires.
	ErrForbidden = errors.New("forbidden")
)

// Session is what the guard reads. session.Store implements it.
type Session interface {
	IsAuthenticated() bool
	permission.Source
}

// Guard decides whether the current session may open a page route.
type Guard struct {
	public     []string
	rules      []models.RouteRule
	loginRoute string
	session    Session
	eval       *permission.Evaluator
}

// New creates a Guard. loginRoute is always public.
func New(cfg config.GuardConfig, loginRoute string, s Session) *Guard {
	public := make([]string, 0, len(cfg.Public)+1)
	for _, p := range cfg.Public {
		public = append(public, normalize(p))
	}
	if loginRoute != "" {
		public = append(public, normalize(loginRoute))
	}
	return &Guard{
		public:     public,
		rules:      cfg.Rules,
		loginRoute: loginRoute,
		session:    s,
		eval:       permission.New(s),
	}
}

// Check returns ErrLoginRequired or a wrapped ErrForbidden when the route
// may not be opened. Public routes always pass.
func (g *Guard) Check(route string) error {
	route = normalize(route)
	if g.IsPublic(route) {
		return nil
	}
	if !g.session.IsAuthenticated() {
		return ErrLoginRequired
	}
	for _, r := range g.Rules(route) {
		req := permission.Requirement{Permissions: r.Permissions, Roles: r.Roles, Mode: r.Mode}
		if !g.eval.Allows(req) {
			return fmt.Errorf("%w: %s requires %s", ErrForbidden, route, describe(r))
		}
	}
	return nil
}

// Redirect returns the route to send the user to instead of route, or ""
// when route may be opened as is.
func (g *Guard) Redirect(route string) string {
	if errors.Is(g.Check(route), ErrLoginRequired) {
		return g.loginRoute
	}
	return ""
}

// IsPublic reports whether route is whitelisted.
func (g *Guard) IsPublic(route string) bool {
	route = normalize(route)
	for _, p := range g.public {
		if matches(p, route) {
			return true
		}
	}
	return false
}

// Rules returns every rule whose pattern matches route.
func (g *Guard) Rules(route string) []models.RouteRule {
	route = normalize(route)
	var result []models.RouteRule
	for _, r := range g.rules {
		if matches(normalize(r.Route), route) {
			result = append(result, r)
		}
	}
	return result
}

// matches supports exact routes and a trailing "*" prefix wildcard.
func matches(pattern, route string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(route, prefix)
	}
	return pattern == route
}

// normalize drops any query string and ensures a leading slash.
func normalize(route string) string {
	if i := strings.IndexByte(route, '?'); i >= 0 {
		route = route[:i]
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return route
}

func describe(r models.RouteRule) string {
	mode := r.Mode
	if mode == "" {
		mode = models.AccessAll
	}
	var parts []string
	if len(r.Permissions) > 0 {
		parts = append(parts, fmt.Sprintf("%s of permissions [%s]", mode, strings.Join(r.Permissions, ", ")))
	}
	if len(r.Roles) > 0 {
		parts = append(parts, fmt.Sprintf("%s of roles [%s]", mode, strings.Join(r.Roles, ", ")))
	}
	return strings.Join(parts, " and ")
}
