package admission

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/akademi-id/akademi/internal/courses"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/shared"
	"github.com/akademi-id/akademi/internal/view"
)

// CourseCatalog lists the programs an applicant can choose from.
type CourseCatalog interface {
	ListPublished(ctx context.Context) []courses.Course
}

// Handler serves the admission form, the hub pages and the review queue.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	catalog   CourseCatalog
	templates *view.Engine
	csrf      *shared.CSRFManager
	loc       *i18n.Localizer
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, catalog CourseCatalog, templates *view.Engine, csrf *shared.CSRFManager, loc *i18n.Localizer) *Handler {
	return &Handler{logger: logger, service: service, catalog: catalog, templates: templates, csrf: csrf, loc: loc}
}

// MountRoutes registers the public admission form.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/admission", h.showForm)
	r.Post("/admission", h.submit)
}

// MountHubRoutes registers the applicant's own pages.
func (h *Handler) MountHubRoutes(r chi.Router) {
	r.Get("/applications", h.listMine)
	r.Get("/applications/{id}", h.showMine)
}

// MountAdminRoutes registers the review queue.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/applications", h.list)
	r.Post("/applications/{id}/status", h.setStatus)
}

type formData struct {
	Form    SubmitInput
	Courses []courses.Course
	Error   string
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	form := SubmitInput{}
	if id, err := strconv.ParseInt(r.URL.Query().Get("course"), 10, 64); err == nil {
		form.CourseID = id
	}
	h.render(w, r, "pages/admission.html", "Pendaftaran", formData{Form: form, Courses: h.courses(r.Context())}, http.StatusOK)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	courseID, _ := strconv.ParseInt(r.PostFormValue("course_id"), 10, 64)
	in := SubmitInput{
		FullName:   r.PostFormValue("full_name"),
		Email:      strings.TrimSpace(r.PostFormValue("email")),
		Phone:      r.PostFormValue("phone"),
		CourseID:   courseID,
		Motivation: r.PostFormValue("motivation"),
	}
	res := h.service.Submit(r.Context(), in)
	if !res.Success {
		h.render(w, r, "pages/admission.html", "Pendaftaran", formData{Form: in, Courses: h.courses(r.Context()), Error: res.Error}, http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "/admission", "success", h.loc.T(i18n.MsgAdmissionSent))
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/hub/applications.html", "Pendaftaran Saya", h.service.ListMine(r.Context()), http.StatusOK)
}

func (h *Handler) showMine(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	app, found := h.service.GetMine(r.Context(), id)
	if !found {
		http.Error(w, h.loc.T(i18n.MsgNotFound), http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/hub/application.html", "Detail Pendaftaran", app, http.StatusOK)
}

type listData struct {
	Items      []Application
	Status     string
	Statuses   []Status
	Pagination shared.Pagination
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	status := Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	switch status {
	case StatusPending, StatusAccepted, StatusRejected:
	default:
		status = ""
	}
	items, pagination := h.service.List(r.Context(), status, page)
	h.render(w, r, "pages/admin/applications.html", "Pendaftaran", listData{
		Items:      items,
		Status:     string(status),
		Statuses:   []Status{StatusPending, StatusAccepted, StatusRejected},
		Pagination: pagination,
	}, http.StatusOK)
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	res := h.service.SetStatus(r.Context(), id, strings.ToUpper(r.PostFormValue("status")))
	if !res.Success {
		h.redirectWithFlash(w, r, "/admin/applications", "error", res.Error)
		return
	}
	h.redirectWithFlash(w, r, "/admin/applications", "success", h.loc.T(i18n.MsgSaved))
}

func (h *Handler) courses(ctx context.Context) []courses.Course {
	if h.catalog == nil {
		return nil
	}
	return h.catalog.ListPublished(ctx)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	viewData := view.NewTemplateData(r, h.csrf, title, data)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	shared.RedirectWithFlash(w, r, location, kind, message)
}
