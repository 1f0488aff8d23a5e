package account

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

// Handler serves sign up, password reset, the profile page and user
// administration.
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

// MountRoutes registers the public account forms.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/register", h.showRegister)
	r.Post("/register", h.register)
	r.Get("/password/forgot", h.showForgot)
	r.Post("/password/forgot", h.forgot)
	r.Get("/password/reset", h.showReset)
	r.Post("/password/reset", h.reset)
}

// MountHubRoutes registers the student profile page.
func (h *Handler) MountHubRoutes(r chi.Router) {
	r.Get("/profile", h.showProfile)
	r.Post("/profile", h.updateProfile)
}

// MountAdminRoutes registers user administration.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/users", h.listUsers)
	r.Post("/users/{id}/role", h.changeRole)
}

type registerData struct {
	Form  RegisterInput
	Error string
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/register.html", "Daftar Akun", registerData{}, http.StatusOK)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := RegisterInput{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Phone:           r.PostFormValue("phone"),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}
	res := h.service.Register(r.Context(), in)
	if !res.Success {
		in.Password, in.PasswordConfirm = "", ""
		h.render(w, r, "pages/register.html", "Daftar Akun", registerData{Form: in, Error: res.Error}, http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "/login", "success", h.loc.T(i18n.MsgRegistered))
}

type resetData struct {
	Email string
	Token string
	Error string
}

func (h *Handler) showForgot(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/forgot.html", "Lupa Password", resetData{}, http.StatusOK)
}

func (h *Handler) forgot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	res := h.service.RequestPasswordReset(r.Context(), ResetRequestInput{Email: email})
	if !res.Success {
		h.render(w, r, "pages/forgot.html", "Lupa Password", resetData{Email: email, Error: res.Error}, http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "/login", "success", h.loc.T(i18n.MsgResetRequested))
}

func (h *Handler) showReset(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/reset.html", "Reset Password", resetData{Token: r.URL.Query().Get("token")}, http.StatusOK)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := ResetInput{
		Token:           strings.TrimSpace(r.PostFormValue("token")),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}
	res := h.service.ResetPassword(r.Context(), in)
	if !res.Success {
		h.render(w, r, "pages/reset.html", "Reset Password", resetData{Token: in.Token, Error: res.Error}, http.StatusUnprocessableEntity)
		return
	}
	h.redirectWithFlash(w, r, "/login", "success", h.loc.T(i18n.MsgPasswordChanged))
}

type profileData struct {
	User  User
	Form  ProfileInput
	Error string
}

func (h *Handler) showProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		shared.RespondGuardError(w, r, errNoSessionUser)
		return
	}
	u, found := h.service.Profile(r.Context(), userID)
	if !found {
		http.NotFound(w, r)
		return
	}
	h.render(w, r, "pages/hub/profile.html", "Profil", profileData{User: u, Form: ProfileInput{Name: u.Name, Phone: u.Phone}}, http.StatusOK)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		shared.RespondGuardError(w, r, errNoSessionUser)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	in := ProfileInput{Name: r.PostFormValue("name"), Phone: r.PostFormValue("phone")}
	res := h.service.UpdateProfile(r.Context(), userID, in)
	if !res.Success {
		u, _ := h.service.Profile(r.Context(), userID)
		h.render(w, r, "pages/hub/profile.html", "Profil", profileData{User: u, Form: in, Error: res.Error}, http.StatusUnprocessableEntity)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.SetUser(sess.User(), in.Name, sess.Role())
	}
	h.redirectWithFlash(w, r, "/hub/profile", "success", h.loc.T(i18n.MsgSaved))
}

type usersData struct {
	Users      []User
	Roles      []string
	Pagination shared.Pagination
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	users, pagination := h.service.ListUsers(r.Context(), page)
	h.render(w, r, "pages/admin/users.html", "Pengguna", usersData{
		Users:      users,
		Roles:      []string{"STUDENT", "INSTRUCTOR", "ADMIN", "SUPER_ADMIN"},
		Pagination: pagination,
	}, http.StatusOK)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	res := h.service.ChangeRole(r.Context(), id, r.PostFormValue("role"))
	if !res.Success {
		h.redirectWithFlash(w, r, "/admin/users", "error", res.Error)
		return
	}
	h.redirectWithFlash(w, r, "/admin/users", "success", h.loc.T(i18n.MsgSaved))
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
