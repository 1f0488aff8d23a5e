package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/akademi-id/akademi/internal/action"
	"github.com/akademi-id/akademi/internal/auth"
	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/ratelimit"
	"github.com/akademi-id/akademi/internal/shared"
	"github.com/akademi-id/akademi/internal/view"
	_ "github.com/akademi-id/akademi/internal/testing/guard"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type harness struct {
	handler  *auth.Handler
	sessions *shared.SessionManager
	repo     *stubRepo
}

func newHarness(t *testing.T, role guard.Role) *harness {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{
		user:     &auth.User{ID: 7, Name: "Sari", Email: "user@test.local", PasswordHash: string(hashed), Role: role, IsActive: true},
		sessions: map[string]int64{},
	}

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	loc := i18n.New("id")
	templates, err := view.NewEngine(loc)
	require.NoError(t, err)
	gate := action.NewGate(guard.New(shared.SessionPrincipals{}), ratelimit.New(), nil, loc, nil)
	handler := auth.NewHandler(nil, auth.NewService(repo, gate), templates, sessionManager, shared.NewCSRFManager("csrfsecret"), loc)
	return &harness{handler: handler, sessions: sessionManager, repo: repo}
}

// serve runs fn with a loaded session and commits it like the session
// middleware does.
func (h *harness) serve(t *testing.T, req *http.Request, fn http.HandlerFunc) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := h.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	fn(res, req)
	require.NoError(t, h.sessions.Commit(ctx, res, req, sess))
	return res, sess
}

func loginRequest(email, password, next string) *http.Request {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)
	form.Set("next", next)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginPage(t *testing.T) {
	h := newHarness(t, guard.RoleStudent)
	res, _ := h.serve(t, httptest.NewRequest(http.MethodGet, "/login?next=/hub/applications", nil), h.handler.ShowLoginForTest)

	assert.Equal(t, http.StatusOK, res.Code)
	body := res.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, `value="/hub/applications"`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t, guard.RoleStudent)
	res, sess := h.serve(t, loginRequest("user@test.local", "wrongpass", ""), h.handler.HandleLoginForTest)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Email atau password tidak valid")
	assert.Empty(t, sess.User())
	assert.Empty(t, h.repo.sessions)
}

func TestLoginLocksOutAfterFiveAttempts(t *testing.T) {
	h := newHarness(t, guard.RoleStudent)
	for i := 0; i < 5; i++ {
		res, _ := h.serve(t, loginRequest("user@test.local", "wrongpass", ""), h.handler.HandleLoginForTest)
		require.Equal(t, http.StatusBadRequest, res.Code)
	}
	res, sess := h.serve(t, loginRequest("USER@test.local", "correctpass", ""), h.handler.HandleLoginForTest)
	assert.Equal(t, http.StatusBadRequest, res.Code, "the right password is refused during lockout")
	assert.Contains(t, res.Body.String(), "Terlalu banyak percobaan. Coba lagi dalam 300 detik")
	assert.Empty(t, sess.User())
}

func TestLoginSuccessRenewsSession(t *testing.T) {
	h := newHarness(t, guard.RoleStudent)
	req := loginRequest("user@test.local", "correctpass", "")
	req.AddCookie(&http.Cookie{Name: h.sessions.CookieName(), Value: "pre-auth-id"})

	res, sess := h.serve(t, req, h.handler.HandleLoginForTest)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/hub", res.Header().Get("Location"))
	assert.NotEqual(t, "pre-auth-id", sess.ID)
	assert.Equal(t, "7", sess.User())
	assert.Equal(t, "Sari", sess.UserName())
	assert.Equal(t, "STUDENT", sess.Role())
	assert.Equal(t, int64(7), h.repo.sessions[sess.ID])
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "Selamat datang kembali", flash.Message)
}

func TestLoginRedirects(t *testing.T) {
	admin := newHarness(t, guard.RoleAdmin)
	res, _ := admin.serve(t, loginRequest("user@test.local", "correctpass", ""), admin.handler.HandleLoginForTest)
	assert.Equal(t, "/admin", res.Header().Get("Location"))

	for next, want := range map[string]string{
		"/hub/applications/3": "/hub/applications/3",
		"//evil.example":      "/hub",
		"https://evil.test/":  "/hub",
		"/\\evil.example":     "/hub",
	} {
		h := newHarness(t, guard.RoleStudent)
		res, _ := h.serve(t, loginRequest("user@test.local", "correctpass", next), h.handler.HandleLoginForTest)
		assert.Equal(t, want, res.Header().Get("Location"), next)
	}
}

func TestLogoutClearsUser(t *testing.T) {
	h := newHarness(t, guard.RoleStudent)
	loginRes, sess := h.serve(t, loginRequest("user@test.local", "correctpass", ""), h.handler.HandleLoginForTest)
	loggedInID := sess.ID
	cookie, err := http.ParseSetCookie(loginRes.Header().Get("Set-Cookie"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(cookie)
	res, after := h.serve(t, req, h.handler.HandleLogoutForTest)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Empty(t, after.User())
	assert.NotEqual(t, loggedInID, after.ID)
	assert.NotContains(t, h.repo.sessions, loggedInID)
}
