// Package guard decides whether the current principal may perform a
// privileged operation.
package guard

import (
	"context"
	"errors"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

func (r Role) String() string { return string(r) }

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsAdmin reports whether r grants access to the back office.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// ParseRole converts a stored role name into a Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.IsValid() {
		return "", false
	}
	return role, true
}

// Roles returns every role in privilege order.
func Roles() []Role {
	return []Role{RoleStudent, RoleInstructor, RoleAdmin, RoleSuperAdmin}
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID   string
	Name string
	Role Role
}

var (
	// ErrNotLoggedIn is returned when there is no authenticated principal.
	ErrNotLoggedIn = errors.New("guard: not logged in")
	// ErrAdminOnly is returned when an admin role is required.
	ErrAdminOnly = errors.New("guard: admin only")
	// ErrNoAccess is returned when the principal does not own the resource.
	ErrNoAccess = errors.New("guard: no access to this resource")
)

// Result is either authorized (Principal set) or unauthorized (Err set).
type Result struct {
	Principal *Principal
	Err       error
}

// OK reports whether the check passed.
func (r Result) OK() bool {
	return r.Err == nil && r.Principal != nil
}

func authorized(p *Principal) Result { return Result{Principal: p} }

func unauthorized(err error) Result { return Result{Err: err} }

// SessionProvider resolves the principal of the current request. It returns
// nil when nobody is logged in.
type SessionProvider interface {
	Principal(ctx context.Context) *Principal
}

// Guard evaluates access policies against a SessionProvider.
type Guard struct {
	sessions SessionProvider
}

// New constructs a Guard.
func New(sessions SessionProvider) *Guard {
	return &Guard{sessions: sessions}
}

func (g *Guard) current(ctx context.Context) *Principal {
	if g == nil || g.sessions == nil {
		return nil
	}
	p := g.sessions.Principal(ctx)
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return nil
	}
	return p
}

// RequireAuthenticated passes for any logged in principal.
func (g *Guard) RequireAuthenticated(ctx context.Context) Result {
	p := g.current(ctx)
	if p == nil {
		return unauthorized(ErrNotLoggedIn)
	}
	return authorized(p)
}

// RequireAdmin passes for ADMIN and SUPER_ADMIN.
func (g *Guard) RequireAdmin(ctx context.Context) Result {
	p := g.current(ctx)
	if p == nil {
		return unauthorized(ErrNotLoggedIn)
	}
	if !p.Role.IsAdmin() {
		return unauthorized(ErrAdminOnly)
	}
	return authorized(p)
}

// RequireOwner passes only when the principal's ID equals targetID.
func (g *Guard) RequireOwner(ctx context.Context, targetID string) Result {
	p := g.current(ctx)
	if p == nil {
		return unauthorized(ErrNotLoggedIn)
	}
	if p.ID != targetID {
		return unauthorized(ErrNoAccess)
	}
	return authorized(p)
}
