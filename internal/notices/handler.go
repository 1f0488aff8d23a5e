package notices

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/shared"
	"github.com/akademi-id/akademi/internal/view"
)

// Handler serves public notices and their admin pages.
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

// MountRoutes registers the public notice board.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/notices", h.board)
	r.Get("/notices/{slug}", h.detail)
}

// MountAdminRoutes registers notice management.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/notices", h.list)
	r.Get("/notices/new", h.newForm)
	r.Post("/notices", h.create)
	r.Get("/notices/{id}/edit", h.editForm)
	r.Post("/notices/{id}/edit", h.update)
	r.Post("/notices/{id}/delete", h.delete)
	r.Post("/notices/{id}/pin", h.togglePinned)
	r.Post("/notices/{id}/publish", h.togglePublished)
}

func (h *Handler) board(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/notices.html", "Pengumuman", h.service.ListPublished(r.Context()), http.StatusOK)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	n, ok := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if !ok {
		http.Error(w, h.loc.T(i18n.MsgNotFound), http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/notice.html", n.Title, n, http.StatusOK)
}

type listData struct {
	Items      []Notice
	Pagination shared.Pagination
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	items, pagination := h.service.List(r.Context(), page)
	h.render(w, r, "pages/admin/notices.html", "Kelola Pengumuman", listData{Items: items, Pagination: pagination}, http.StatusOK)
}

type formData struct {
	ID    int64
	Form  Input
	Error string
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/admin/notice_form.html", "Pengumuman", formData{}, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := parseForm(w, r)
	if !ok {
		return
	}
	res := h.service.Create(r.Context(), in)
	if !res.Success {
		h.render(w, r, "pages/admin/notice_form.html", "Pengumuman", formData{Form: in, Error: res.Error}, http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "success", h.loc.T(i18n.MsgSaved))
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	n, found := h.service.Get(r.Context(), id)
	if !found {
		http.Error(w, h.loc.T(i18n.MsgNotFound), http.StatusNotFound)
		return
	}
	h.render(w, r, "pages/admin/notice_form.html", "Pengumuman", formData{ID: id, Form: InputFrom(n)}, http.StatusOK)
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
		h.render(w, r, "pages/admin/notice_form.html", "Pengumuman", formData{ID: id, Form: in, Error: res.Error}, http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "success", h.loc.T(i18n.MsgSaved))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	h.flashResult(w, r, h.service.Delete(r.Context(), id).Error, i18n.MsgDeleted)
}

func (h *Handler) togglePinned(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	h.flashResult(w, r, h.service.TogglePinned(r.Context(), id).Error, i18n.MsgSaved)
}

func (h *Handler) togglePublished(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	h.flashResult(w, r, h.service.TogglePublished(r.Context(), id).Error, i18n.MsgSaved)
}

func (h *Handler) flashResult(w http.ResponseWriter, r *http.Request, errMsg, okKey string) {
	if errMsg != "" {
		h.redirectWithFlash(w, r, "error", errMsg)
		return
	}
	h.redirectWithFlash(w, r, "success", h.loc.T(okKey))
}

func parseForm(w http.ResponseWriter, r *http.Request) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	return Input{
		Slug:      r.PostFormValue("slug"),
		Title:     r.PostFormValue("title"),
		Body:      r.PostFormValue("body"),
		Pinned:    r.PostFormValue("pinned") == "on",
		Published: r.PostFormValue("published") == "on",
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

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	viewData := view.NewTemplateData(r, h.csrf, title, data)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	shared.RedirectWithFlash(w, r, "/admin/notices", kind, message)
}
