package app

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademi-id/akademi/internal/shared"
)

func newStackRouter(t *testing.T, logs *bytes.Buffer) (http.Handler, *shared.CSRFManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	csrf := shared.NewCSRFManager("csrf")
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         slog.New(slog.NewTextHandler(logs, nil)),
		Config:         &Config{AppEnv: "development", IPRatePerMinute: 100},
		SessionManager: shared.NewSessionManager(client, "akademi_session", "secret", time.Hour, false),
		CSRFManager:    csrf,
	}) {
		r.Use(mw)
	}
	r.Get("/form", func(w http.ResponseWriter, r *http.Request) {
		token, err := csrf.EnsureToken(r.Context(), shared.SessionFromContext(r.Context()))
		require.NoError(t, err)
		_, _ = w.Write([]byte(token))
	})
	r.Post("/contact", func(w http.ResponseWriter, r *http.Request) {
		shared.RedirectWithFlash(w, r, "/", "success", "ok")
	})
	return r, csrf
}

func TestCSRFRoundTrip(t *testing.T) {
	var logs bytes.Buffer
	router, _ := newStackRouter(t, &logs)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/form", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	token := rr.Body.String()
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies, "session cookie is issued on first visit")
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	post := func(form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusForbidden, post(url.Values{}).Code)
	assert.Equal(t, http.StatusForbidden, post(url.Values{shared.CSRFFormField: {"forged"}}).Code)
	assert.Contains(t, logs.String(), "csrf validation failed")

	rec := post(url.Values{shared.CSRFFormField: {token}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, logs.String(), "status=303")
}

func TestPostWithoutSessionCookieIsRejected(t *testing.T) {
	var logs bytes.Buffer
	router, _ := newStackRouter(t, &logs)
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader("csrf_token=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
