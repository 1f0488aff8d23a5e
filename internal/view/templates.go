package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/sanitize"
	"github.com/akademi-id/akademi/internal/shared"
	"github.com/akademi-id/akademi/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *guard.Principal
	Errors      []string
	Data        any
}

// NewEngine parses the embedded templates. loc renders the "t" helper.
func NewEngine(loc *i18n.Localizer) (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"t": loc.T,
		// rich re-sanitizes stored rich text before marking it safe.
		"rich": func(s string) template.HTML {
			return template.HTML(sanitize.Rich(s))
		},
		"isAdmin": func(p *guard.Principal) bool {
			return p != nil && p.Role.IsAdmin()
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates,
		"templates/layouts/*.html",
		"templates/partials/*.html",
		"templates/pages/*.html",
		"templates/pages/*/*.html",
	)
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// NewTemplateData fills the per-request fields from the session in r.
// Popping the flash marks the session dirty so it is cleared on commit.
func NewTemplateData(r *http.Request, csrf *shared.CSRFManager, title string, data any) TemplateData {
	sess := shared.SessionFromContext(r.Context())
	td := TemplateData{
		Title:       title,
		CurrentPath: r.URL.Path,
		User:        shared.PrincipalFromSession(sess),
		Data:        data,
	}
	if sess != nil {
		if csrf != nil {
			td.CSRFToken, _ = csrf.EnsureToken(r.Context(), sess)
		}
		td.Flash = sess.PopFlash()
	}
	return td
}
