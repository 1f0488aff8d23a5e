package courses

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/shared"
	"github.com/akademi-id/akademi/internal/view"
)

// Handler serves the public catalog and the admin course pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	loc       *i18n.Localizer
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, loc *i18n.Localizer) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, loc: loc}
}

// MountRoutes registers the public catalog.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/courses", h.catalog)
	r.Get("/courses/{slug}", h.detail)
}

// MountAdminRoutes registers course management.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/courses", h.list)
	r.Get("/courses/new", h.newForm)
	r.Post("/courses", h.create)
	r.Get("/courses/{id}/edit", h.editForm)
	r.Post("/courses/{id}/edit", h.update)
	r.Post("/courses/{id}/delete", h.delete)
	r.Post("/courses/{id}/toggle", h.toggle)
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/courses.html", "Program", h.service.ListPublished(r.Context()), http.StatusOK)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	c, ok := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if !ok {
		http.Error(w, h.loc.T(i18n.MsgNotFound), http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/course.html", c.Title, c, http.StatusOK)
}

type listData struct {
	Items      []Course
	Pagination shared.Pagination
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	items, pagination := h.service.List(r.Context(), page)
	h.render(w, r, "pages/admin/courses.html", "Kelola Program", listData{Items: items, Pagination: pagination}, http.StatusOK)
}

type formData struct {
	ID     int64
	Form   Input
	Levels []string
	Error  string
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, formData{}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := parseForm(w, r)
	if !ok {
		return
	}
	res := h.service.Create(r.Context(), in)
	if !res.Success {
		h.renderForm(w, r, formData{Form: in, Error: res.Error}, http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "/admin/courses", "success", h.loc.T(i18n.MsgSaved))
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	c, found := h.service.Get(r.Context(), id)
	if !found {
		http.Error(w, h.loc.T(i18n.MsgNotFound), http.StatusNotFound)
		return
	}
	h.renderForm(w, r, formData{ID: id, Form: InputFrom(c)}, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	in, ok := parseForm(w, r)
	if !ok {
		return
	}
	res := h.service.Update(r.Context(), id, in)
	if !res.Success {
		h.renderForm(w, r, formData{ID: id, Form: in, Error: res.Error}, http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "/admin/courses", "success", h.loc.T(i18n.MsgSaved))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	res := h.service.Delete(r.Context(), id)
	if !res.Success {
		h.redirectWithFlash(w, r, "/admin/courses", "error", res.Error)
		return
	}
	h.redirectWithFlash(w, r, "/admin/courses", "success", h.loc.T(i18n.MsgDeleted))
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	res := h.service.TogglePublished(r.Context(), id)
	if !res.Success {
		h.redirectWithFlash(w, r, "/admin/courses", "error", res.Error)
		return
	}
	h.redirectWithFlash(w, r, "/admin/courses", "success", h.loc.T(i18n.MsgSaved))
}

func parseForm(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	weeks, _ := strconv.Atoi(strings.TrimSpace(r.PostFormValue("duration_weeks")))
	fee, _ := strconv.ParseInt(strings.TrimSpace(r.PostFormValue("fee")), 10, 64)
	return Input{
		Slug:          r.PostFormValue("slug"),
		Title:         r.PostFormValue("title"),
		Summary:       r.PostFormValue("summary"),
		Description:   r.PostFormValue("description"),
		Level:         r.PostFormValue("level"),
		DurationWeeks: weeks,
		Fee:           fee,
		Published:     r.PostFormValue("published") == "on",
	}, true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, data formData, status int) {
	data.Levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}
	h.render(w, r, "pages/admin/course_form.html", "Program", data, status)
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
