package guard

import (
	"errors"
	"testing"

	"github.com/eva-app/evaclient/pkg/config"
	"github.com/eva-app/evaclient/pkg/models"
)

type fakeSession struct {
	authenticated bool
	roles         []string
	permissions   []string
}

func (s *fakeSession) IsAuthenticated() bool { return s.authenticated }
func (s *fakeSession) Roles() []string       { return s.roles }
func (s *fakeSession) Permissions() []string { return s.permissions }

const loginRoute = "/pages/login/index"

func setup(s *fakeSession) *Guard {
	return New(config.GuardConfig{
		Public: []string{"/pages/home/index"},
		Rules: []models.RouteRule{
			{Route: "/pages/admin/*", Roles: []string{"admin"}},
			{Route: "/pages/pets/edit/index", Permissions: []string{"pets:edit:update", "pets:edit:create"}, Mode: models.AccessAny},
			{Route: "/pages/pets/*", Permissions: []string{"pets:view:list"}},
		},
	}, loginRoute, s)
}

func TestPublicRoutes(t *testing.T) {
	g := setup(&fakeSession{})

	for _, route := range []string{loginRoute, "/pages/home/index", "pages/home/index?tab=2"} {
		if err := g.Check(route); err != nil {
			t.Errorf("%s: expected public, got %v", route, err)
		}
	}
}

func TestLoginRequired(t *testing.T) {
	g := setup(&fakeSession{})

	if err := g.Check("/pages/profile/index"); !errors.Is(err, ErrLoginRequired) {
		t.Errorf("expected ErrLoginRequired, got %v", err)
	}
	if got := g.Redirect("/pages/profile/index"); got != loginRoute {
		t.Errorf("expected redirect to login, got %q", got)
	}
	if got := g.Redirect(loginRoute); got != "" {
		t.Errorf("expected no redirect from the login page, got %q", got)
	}
}

func TestAuthenticatedWithoutRules(t *testing.T) {
	g := setup(&fakeSession{authenticated: true})

	if err := g.Check("/pages/profile/index"); err != nil {
		t.Errorf("expected allowed, got %v", err)
	}
}

func TestRoleRule(t *testing.T) {
	user := setup(&fakeSession{authenticated: true, roles: []string{"user"}})
	if err := user.Check("/pages/admin/users"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
	if got := user.Redirect("/pages/admin/users"); got != "" {
		t.Errorf("forbidden routes do not redirect, got %q", got)
	}

	admin := setup(&fakeSession{authenticated: true, roles: []string{"admin"}})
	if err := admin.Check("/pages/admin/users"); err != nil {
		t.Errorf("expected allowed, got %v", err)
	}
}

func TestAllMatchingRulesApply(t *testing.T) {
	s := &fakeSession{authenticated: true, permissions: []string{"pets:edit:create"}}
	g := setup(s)

	if n := len(g.Rules("/pages/pets/edit/index")); n != 2 {
		t.Fatalf("expected 2 matching rules, got %d", n)
	}

	// any-mode rule passes but the prefix rule needs pets:view:list.
	if err := g.Check("/pages/pets/edit/index"); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	s.permissions = append(s.permissions, "pets:view:list")
	if err := g.Check("/pages/pets/edit/index"); err != nil {
		t.Errorf("expected allowed, got %v", err)
	}
}

func TestWildcardPermissionPassesRules(t *testing.T) {
	g := setup(&fakeSession{authenticated: true, permissions: []string{"*:*:*"}})

	if err := g.Check("/pages/pets/edit/index"); err != nil {
		t.Errorf("expected wildcard to pass, got %v", err)
	}
	if err := g.Check("/pages/admin/users"); !errors.Is(err, ErrForbidden) {
		t.Errorf("permission wildcard does not grant roles, got %v", err)
	}
}
