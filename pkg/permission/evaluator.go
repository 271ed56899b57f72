// Package permission answers role and permission questions about the
// current session.
package permission

import (
	"slices"

	"github.com/eva-app/evaclient/pkg/models"
)

const (
	// WildcardPermission satisfies every permission check.
	WildcardPermission = "*:*:*"
	// SuperRole satisfies every role check.
	SuperRole = "admin"
)

// Source supplies the grants to evaluate. session.Store implements it.
type Source interface {
	Roles() []string
	Permissions() []string
}

// Evaluator reads its Source on every call; results are never cached.
type Evaluator struct {
	src Source
}

// New creates an Evaluator over src.
func New(src Source) *Evaluator {
	return &Evaluator{src: src}
}

// HasPermission reports whether p is granted, directly or by wildcard.
func (e *Evaluator) HasPermission(p string) bool {
	return grants(e.src.Permissions(), p, WildcardPermission)
}

// HasRole reports whether r is held, directly or through the super role.
func (e *Evaluator) HasRole(r string) bool {
	return grants(e.src.Roles(), r, SuperRole)
}

// HasAnyPermission is true when at least one of ps is granted.
func (e *Evaluator) HasAnyPermission(ps ...string) bool {
	held := e.src.Permissions()
	return slices.ContainsFunc(ps, func(p string) bool {
		return grants(held, p, WildcardPermission)
	})
}

// HasAllPermissions is true when every one of ps is granted, and for an
// empty list.
func (e *Evaluator) HasAllPermissions(ps ...string) bool {
	held := e.src.Permissions()
	for _, p := range ps {
		if !grants(held, p, WildcardPermission) {
			return false
		}
	}
	return true
}

// HasAnyRole is true when at least one of rs is held.
func (e *Evaluator) HasAnyRole(rs ...string) bool {
	held := e.src.Roles()
	return slices.ContainsFunc(rs, func(r string) bool {
		return grants(held, r, SuperRole)
	})
}

// HasAllRoles is true when every one of rs is held, and for an empty list.
func (e *Evaluator) HasAllRoles(rs ...string) bool {
	held := e.src.Roles()
	for _, r := range rs {
		if !grants(held, r, SuperRole) {
			return false
		}
	}
	return true
}

// Requirement describes what a piece of UI needs before it is shown.
// Empty lists impose nothing; Mode defaults to all.
type Requirement struct {
	Permissions []string
	Roles       []string
	Mode        models.AccessMode
}

// Allows checks permissions first, then roles, combining each list by Mode.
func (e *Evaluator) Allows(req Requirement) bool {
	anyMode := req.Mode == models.AccessAny

	if len(req.Permissions) > 0 {
		ok := e.HasAllPermissions(req.Permissions...)
		if anyMode {
			ok = e.HasAnyPermission(req.Permissions...)
		}
		if !ok {
			return false
		}
	}

	if len(req.Roles) > 0 {
		ok := e.HasAllRoles(req.Roles...)
		if anyMode {
			ok = e.HasAnyRole(req.Roles...)
		}
		if !ok {
			return false
		}
	}

	return true
}

func grants(held []string, want, wildcard string) bool {
	for _, h := range held {
		if h == want || h == wildcard {
			return true
		}
	}
	return false
}
