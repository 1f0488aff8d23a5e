package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/shared"
)

// Exports and prunes scan the whole audit_logs table, so each administrator
// gets a small budget of them.
const (
	heavyRequestLimit  = 10
	heavyRequestWindow = time.Minute
)

// MountRoutes registers the audit log page, CSV export and retention form.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(heavyRequestLimit, heavyRequestWindow,
		httprate.WithKeyFuncs(principalKey),
		httprate.WithLimitHandler(h.tooManyRequests),
	)
	r.Get("/audit", h.handleList)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/audit/export.csv", h.handleExport)
		gr.Post("/audit/prune", h.handlePrune)
	})
}

func (h *Handler) tooManyRequests(w http.ResponseWriter, r *http.Request) {
	seconds := int(heavyRequestWindow / time.Second)
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	http.Error(w, h.loc.T(i18n.MsgRetryAfter, seconds), http.StatusTooManyRequests)
}

// principalKey buckets by account, falling back to the client IP for requests
// that somehow reach here without one.
func principalKey(r *http.Request) (string, error) {
	if p := shared.PrincipalFromSession(shared.SessionFromContext(r.Context())); p != nil {
		return "user:" + p.ID, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
