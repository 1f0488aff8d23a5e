package account

import (
	"net/http"
	"strconv"

	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/shared"
)

var errNoSessionUser = guard.ErrNotLoggedIn

// currentUserID returns the numeric account ID of the logged in caller.
func currentUserID(r *http.Request) (int64, bool) {
	p := shared.SessionPrincipals{}.Principal(r.Context())
	if p == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(p.ID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
