package shared

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/akademi-id/akademi/internal/guard"
)

// SessionPrincipals resolves the guard principal from the redis backed session
// stored in the request context.
type SessionPrincipals struct{}

// Principal implements guard.SessionProvider. A session carrying an unknown
// role is treated as anonymous.
func (SessionPrincipals) Principal(ctx context.Context) *guard.Principal {
	if p := guard.PrincipalFromContext(ctx); p != nil {
		return p
	}
	return PrincipalFromSession(SessionFromContext(ctx))
}

// PrincipalFromSession converts a session into a principal, or nil.
func PrincipalFromSession(sess *Session) *guard.Principal {
	if sess == nil {
		return nil
	}
	id := strings.TrimSpace(sess.User())
	if id == "" {
		return nil
	}
	role, ok := guard.ParseRole(sess.Role())
	if !ok {
		return nil
	}
	return &guard.Principal{ID: id, Name: sess.UserName(), Role: role}
}

// RespondGuardError writes the response for a failed guard check. Anonymous
// page visits are sent to the login form, everything else gets 403.
func RespondGuardError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, guard.ErrNotLoggedIn) && r.Method == http.MethodGet {
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	if errors.Is(err, guard.ErrNotLoggedIn) {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

// IsGuardError reports whether err came from a failed guard check.
func IsGuardError(err error) bool {
	return errors.Is(err, guard.ErrNotLoggedIn) || errors.Is(err, guard.ErrAdminOnly) || errors.Is(err, guard.ErrNoAccess)
}
