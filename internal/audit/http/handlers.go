package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akademi-id/akademi/internal/audit"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/shared"
	"github.com/akademi-id/akademi/internal/view"
)

const (
	defaultRetentionDays = 365
	maxExportRows        = 200
)

// LogService is the guarded audit read and retention contract.
type LogService interface {
	RecentLogs(ctx context.Context, limit int) ([]audit.Record, error)
	LogsForEntity(ctx context.Context, entity, entityID string, limit int) ([]audit.Record, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Handler serves the back office audit log.
type Handler struct {
	logger    *slog.Logger
	service   LogService
	templates *view.Engine
	csrf      *shared.CSRFManager
	loc       *i18n.Localizer
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service LogService, templates *view.Engine, csrf *shared.CSRFManager, loc *i18n.Localizer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		loc:       loc,
	}
}

type filters struct {
	Entity   string
	EntityID string
	Limit    int
}

type pageData struct {
	Filters       filters
	Records       []audit.Record
	RetentionDays int
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	records, err := h.load(r.Context(), f)
	if err != nil {
		h.respondError(w, r, "load audit logs", err)
		return
	}
	data := view.NewTemplateData(r, h.csrf, "Audit Log", pageData{Filters: f, Records: records, RetentionDays: defaultRetentionDays})
	if err := h.templates.Render(w, "pages/admin/audit.html", data); err != nil {
		h.logger.Error("render audit logs", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	f, err := parseFilters(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("limit") == "" {
		f.Limit = maxExportRows
	}
	records, err := h.load(r.Context(), f)
	if err != nil {
		h.respondError(w, r, "export audit logs", err)
		return
	}
	csvBytes, err := audit.WriteCSV(records)
	if err != nil {
		h.respondError(w, r, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-log.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) handlePrune(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	days, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("days")))
	if err != nil || days <= 0 {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	removed, err := h.service.Prune(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		h.respondError(w, r, "prune audit logs", err)
		return
	}
	h.logger.Info("audit logs pruned", slog.Int64("removed", removed), slog.Int("days", days))
	shared.RedirectWithFlash(w, r, "/admin/audit", "success", h.loc.T(i18n.MsgAuditPruned, removed))
}

func (h *Handler) load(ctx context.Context, f filters) ([]audit.Record, error) {
	if f.Entity != "" && f.EntityID != "" {
		return h.service.LogsForEntity(ctx, f.Entity, f.EntityID, f.Limit)
	}
	return h.service.RecentLogs(ctx, f.Limit)
}

func parseFilters(r *http.Request) (filters, error) {
	q := r.URL.Query()
	f := filters{
		Entity:   strings.TrimSpace(q.Get("entity")),
		EntityID: strings.TrimSpace(q.Get("entity_id")),
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return filters{}, errInvalidFilter
		}
		f.Limit = parsed
	}
	return f, nil
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if isGuardError(err) {
		shared.RespondGuardError(w, r, err)
		return
	}
	h.logger.Error(message, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func isGuardError(err error) bool {
	return shared.IsGuardError(err) || errors.Is(err, audit.ErrSuperAdminOnly)
}

var errInvalidFilter = errors.New("audit: invalid filter")
