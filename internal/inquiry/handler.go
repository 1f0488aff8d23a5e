package inquiry

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

// Handler serves the contact form and the admin inbox.
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

// MountRoutes registers the public contact form.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/contact", h.showForm)
	r.Post("/contact", h.submit)
}

// MountAdminRoutes registers the inbox. The caller wraps it in an admin group.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/inquiries", h.list)
	r.Post("/inquiries/{id}/status", h.setStatus)
	r.Post("/inquiries/{id}/delete", h.delete)
}

type formData struct {
	Form  SubmitInput
	Error string
}

func (h *Handler) showForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/contact.html", "Kontak", formData{}, http.StatusOK)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := SubmitInput{
		Name:    r.PostFormValue("name"),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Phone:   r.PostFormValue("phone"),
		Subject: r.PostFormValue("subject"),
		Message: r.PostFormValue("message"),
	}
	res := h.service.Submit(r.Context(), in)
	if !res.Success {
		h.render(w, r, "pages/contact.html", "Kontak", formData{Form: in, Error: res.Error}, http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "/contact", "success", h.loc.T(i18n.MsgContactSent))
}

type listData struct {
	Items      []Inquiry
	Status     string
	Statuses   []Status
	Pagination shared.Pagination
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	status := Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))
	switch status {
	case StatusNew, StatusRead, StatusArchived:
	default:
		status = ""
	}
	items, pagination := h.service.List(r.Context(), status, page)
	h.render(w, r, "pages/admin/inquiries.html", "Pesan Masuk", listData{
		Items:      items,
		Status:     string(status),
		Statuses:   []Status{StatusNew, StatusRead, StatusArchived},
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
	h.redirectResult(w, r, "/admin/inquiries", res.Success, res.Error, i18n.MsgSaved)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	res := h.service.Delete(r.Context(), id)
	h.redirectResult(w, r, "/admin/inquiries", res.Success, res.Error, i18n.MsgDeleted)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) redirectResult(w http.ResponseWriter, r *http.Request, location string, success bool, errMsg, okKey string) {
	if success {
		h.redirectWithFlash(w, r, location, "success", h.loc.T(okKey))
		return
	}
	h.redirectWithFlash(w, r, location, "error", errMsg)
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
