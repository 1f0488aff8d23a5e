package app

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/akademi-id/akademi/internal/account"
	"github.com/akademi-id/akademi/internal/admission"
	audithttp "github.com/akademi-id/akademi/internal/audit/http"
	"github.com/akademi-id/akademi/internal/auth"
	"github.com/akademi-id/akademi/internal/courses"
	"github.com/akademi-id/akademi/internal/dashboard"
	"github.com/akademi-id/akademi/internal/inquiry"
	"github.com/akademi-id/akademi/internal/notices"
	"github.com/akademi-id/akademi/internal/observability"
	"github.com/akademi-id/akademi/internal/platform/httpx"
	"github.com/akademi-id/akademi/internal/rbac"
	"github.com/akademi-id/akademi/internal/shared"
	"github.com/akademi-id/akademi/jobs"
	"github.com/akademi-id/akademi/web"
)

const healthTimeout = 2 * time.Second

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	RBACMiddleware   rbac.Middleware
	AuthHandler      *auth.Handler
	AccountHandler   *account.Handler
	DashboardHandler *dashboard.Handler
	CoursesHandler   *courses.Handler
	NoticesHandler   *notices.Handler
	InquiryHandler   *inquiry.Handler
	AdmissionHandler *admission.Handler
	AuditHandler     *audithttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
	HealthChecks     map[string]httpx.Check
}

// NewRouter constructs the chi.Router with the site defaults. Public pages sit
// at the root, the student hub under /hub and the back office under /admin.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", httpx.Health(healthTimeout, params.HealthChecks))

	params.DashboardHandler.MountRoutes(r)
	params.AuthHandler.MountRoutes(r)
	params.AccountHandler.MountRoutes(r)
	params.CoursesHandler.MountRoutes(r)
	params.NoticesHandler.MountRoutes(r)
	params.InquiryHandler.MountRoutes(r)
	params.AdmissionHandler.MountRoutes(r)

	r.Route("/hub", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireAuthenticated())
		params.DashboardHandler.MountHubRoutes(r)
		params.AdmissionHandler.MountHubRoutes(r)
		params.AccountHandler.MountHubRoutes(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(params.RBACMiddleware.RequireAdmin())
		params.DashboardHandler.MountAdminRoutes(r)
		params.CoursesHandler.MountAdminRoutes(r)
		params.NoticesHandler.MountAdminRoutes(r)
		params.InquiryHandler.MountAdminRoutes(r)
		params.AdmissionHandler.MountAdminRoutes(r)
		params.AccountHandler.MountAdminRoutes(r)
		params.AuditHandler.MountRoutes(r)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAdmin())
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler lets browsers cache static assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
