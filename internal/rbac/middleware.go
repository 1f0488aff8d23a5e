// Package rbac adapts the guard policies to chi route groups.
package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/shared"
)

// Middleware wires guard checks into HTTP handlers. Services run the same
// checks again through the action gate.
type Middleware struct {
	Guard  *guard.Guard
	Logger *slog.Logger
}

// RequireAuthenticated admits any logged in account.
func (m Middleware) RequireAuthenticated() func(http.Handler) http.Handler {
	return m.require(m.Guard.RequireAuthenticated)
}

// RequireAdmin admits ADMIN and SUPER_ADMIN.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.require(m.Guard.RequireAdmin)
}

// RequireRole admits only the listed roles.
func (m Middleware) RequireRole(roles ...guard.Role) func(http.Handler) http.Handler {
	allowed := make(map[guard.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return m.require(m.Guard.RequireAuthenticated)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := m.Guard.RequireAuthenticated(r.Context()).Principal
			if _, ok := allowed[p.Role]; !ok {
				m.deny(w, r, guard.ErrNoAccess)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func (m Middleware) require(check func(ctx context.Context) guard.Result) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if res := check(r.Context()); !res.OK() {
				m.deny(w, r, res.Err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, err error) {
	if m.Logger != nil {
		m.Logger.Debug("rbac denied", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	shared.RespondGuardError(w, r, err)
}
