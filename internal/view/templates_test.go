package view

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/shared"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(i18n.New("id"))
	require.NoError(t, err, "Templates should parse without error")
	return engine
}

func TestNewEngine(t *testing.T) {
	assert.NotNil(t, newEngine(t))
}

type noticeView struct {
	Slug      string
	Title     string
	Body      string
	Pinned    bool
	CreatedAt time.Time
}

func TestRenderEscapesPlainTextAndCleansRichText(t *testing.T) {
	engine := newEngine(t)
	rec := httptest.NewRecorder()
	err := engine.Render(rec, "pages/notice.html", TemplateData{
		Title: "Libur",
		Data: noticeView{
			Slug:      "libur",
			Title:     `<img src=x onerror=alert(1)>`,
			Body:      `<p>Kelas <strong>libur</strong></p><script>alert(1)</script>`,
			CreatedAt: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, "&lt;img src=x onerror=alert(1)&gt;")
	assert.Contains(t, body, "<p>Kelas <strong>libur</strong></p>")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "01 Jun 2024 09:30")
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestLayoutReflectsPrincipal(t *testing.T) {
	engine := newEngine(t)

	rec := httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, "pages/notices.html", TemplateData{Data: []noticeView{}}))
	assert.Contains(t, rec.Body.String(), `href="/login"`)
	assert.NotContains(t, rec.Body.String(), `href="/admin"`)

	rec = httptest.NewRecorder()
	require.NoError(t, engine.Render(rec, "pages/notices.html", TemplateData{
		CSRFToken: "tok",
		Flash:     &shared.FlashMessage{Kind: "success", Message: "Selamat datang kembali"},
		User:      &guard.Principal{ID: "1", Name: "Sari", Role: guard.RoleAdmin},
		Data:      []noticeView{},
	}))
	body := rec.Body.String()
	assert.Contains(t, body, `href="/admin"`)
	assert.Contains(t, body, "Keluar (Sari)")
	assert.Contains(t, body, `name="csrf_token" value="tok"`)
	assert.Contains(t, body, `alert-success`)
}

func TestPagerHiddenForSinglePage(t *testing.T) {
	engine := newEngine(t)
	rec := httptest.NewRecorder()
	require.NoError(t, engine.templates.ExecuteTemplate(rec, "partials/pager", shared.NewPagination(1, 20, 5)))
	assert.Empty(t, strings.TrimSpace(rec.Body.String()))

	rec = httptest.NewRecorder()
	require.NoError(t, engine.templates.ExecuteTemplate(rec, "partials/pager", shared.NewPagination(2, 20, 45)))
	assert.Contains(t, rec.Body.String(), "Halaman 2 dari 3")
	assert.Contains(t, rec.Body.String(), `href="?page=1"`)
	assert.Contains(t, rec.Body.String(), `href="?page=3"`)
}

func TestNilEngineRenderFails(t *testing.T) {
	var engine *Engine
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/home.html", TemplateData{}))
}
