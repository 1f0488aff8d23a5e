// Package dashboard renders the landing pages: the public home page, the
// student hub and the back office.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/akademi-id/akademi/internal/admission"
	"github.com/akademi-id/akademi/internal/audit"
	"github.com/akademi-id/akademi/internal/courses"
	"github.com/akademi-id/akademi/internal/notices"
	"github.com/akademi-id/akademi/internal/shared"
	"github.com/akademi-id/akademi/internal/view"
)

// Applications lists the caller's applications and counts pending ones.
type Applications interface {
	ListMine(ctx context.Context) []admission.Application
	CountPending(ctx context.Context) int
}

// Inbox counts unread contact messages.
type Inbox interface {
	CountNew(ctx context.Context) int
}

// Notices returns the latest published notices.
type Notices interface {
	Latest(ctx context.Context) []notices.Notice
}

// AuditTrail returns recent audit records.
type AuditTrail interface {
	RecentLogs(ctx context.Context, limit int) ([]audit.Record, error)
}

// Catalog lists published courses.
type Catalog interface {
	ListPublished(ctx context.Context) []courses.Course
}

// Deps groups the sources the dashboards read from.
type Deps struct {
	Applications Applications
	Inbox        Inbox
	Notices      Notices
	Audit        AuditTrail
	Catalog      Catalog
}

// Handler serves GET /, GET /hub and GET /admin.
type Handler struct {
	logger    *slog.Logger
	deps      Deps
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, deps Deps, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, deps: deps, templates: templates, csrf: csrf}
}

// MountRoutes registers the public home page.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
}

// MountHubRoutes registers the hub landing page.
func (h *Handler) MountHubRoutes(r chi.Router) {
	r.Get("/", h.hub)
}

// MountAdminRoutes registers the back office landing page.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.admin)
}

const homeCourses = 6

type homeData struct {
	Courses []courses.Course
	Notices []notices.Notice
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	list := h.deps.Catalog.ListPublished(ctx)
	if len(list) > homeCourses {
		list = list[:homeCourses]
	}
	h.render(w, r, "pages/home.html", "Akademi", homeData{Courses: list, Notices: h.deps.Notices.Latest(ctx)})
}

type hubData struct {
	Applications []admission.Application
	Notices      []notices.Notice
}

func (h *Handler) hub(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.render(w, r, "pages/hub/dashboard.html", "Beranda Siswa", hubData{
		Applications: h.deps.Applications.ListMine(ctx),
		Notices:      h.deps.Notices.Latest(ctx),
	})
}

type adminData struct {
	NewInquiries        int
	PendingApplications int
	RecentAudit         []audit.Record
}

const recentAuditLimit = 10

func (h *Handler) admin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := adminData{
		NewInquiries:        h.deps.Inbox.CountNew(ctx),
		PendingApplications: h.deps.Applications.CountPending(ctx),
	}
	records, err := h.deps.Audit.RecentLogs(ctx, recentAuditLimit)
	if err != nil {
		h.logger.Warn("dashboard audit", slog.Any("error", err))
	}
	data.RecentAudit = records
	h.render(w, r, "pages/admin/dashboard.html", "Dasbor Admin", data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any) {
	viewData := view.NewTemplateData(r, h.csrf, title, data)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
