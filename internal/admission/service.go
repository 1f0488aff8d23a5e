package admission

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/akademi-id/akademi/internal/action"
	"github.com/akademi-id/akademi/internal/audit"
	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/ratelimit"
	"github.com/akademi-id/akademi/internal/sanitize"
	"github.com/akademi-id/akademi/internal/shared"
)

const entity = "application"

// Notifier confirms received applications to the applicant.
type Notifier interface {
	ApplicationReceived(ctx context.Context, app Application)
}

// Service implements admission submission and review.
type Service struct {
	repo     Repository
	gate     *action.Gate
	notifier Notifier
	logger   *slog.Logger
}

// NewService constructs a Service. notifier may be nil.
func NewService(repo Repository, gate *action.Gate, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, gate: gate, notifier: notifier, logger: logger}
}

// Submit stores an application. When the applicant is logged in the
// application is linked to their account so it shows up in the hub.
func (s *Service) Submit(ctx context.Context, in SubmitInput) action.Result {
	policy := ratelimit.Admission
	return s.gate.Run(ctx, action.Spec{
		Access:   action.Public,
		Policy:   &policy,
		LimitKey: func(*guard.Principal) string { return sanitize.Phone(in.Phone) },
		Input:    &in,
	}, func(ctx context.Context, p *guard.Principal) (action.Outcome, error) {
		app := Application{
			FullName:   in.FullName,
			Email:      in.Email,
			Phone:      in.Phone,
			CourseID:   in.CourseID,
			Motivation: in.Motivation,
			Status:     StatusPending,
		}
		if p != nil {
			app.UserID = p.ID
		}
		id, err := s.repo.Create(ctx, app)
		if err != nil {
			return action.Outcome{}, err
		}
		app.ID = id
		if s.notifier != nil {
			s.notifier.ApplicationReceived(ctx, app)
		}
		return action.Outcome{ID: id}, nil
	})
}

// List returns one page of applications for review. Non-admins get an empty
// page.
func (s *Service) List(ctx context.Context, status Status, page int) ([]Application, shared.Pagination) {
	if res := s.gate.Authorize(ctx, action.Admin, ""); !res.OK() {
		return []Application{}, shared.NewPagination(1, shared.DefaultPerPage, 0)
	}
	p := shared.NewPagination(page, shared.DefaultPerPage, 0)
	apps, total, err := s.repo.List(ctx, status, p.PerPage, p.Offset())
	if err != nil {
		s.logger.Error("list applications", slog.Any("error", err))
		return []Application{}, p
	}
	return apps, shared.NewPagination(p.Page, p.PerPage, total)
}

// SetStatus records the review decision.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) action.Result {
	in := statusInput{Status: status}
	policy := ratelimit.AdminWrite
	return s.gate.Run(ctx, action.Spec{
		Access:   action.Admin,
		Policy:   &policy,
		Input:    &in,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Action:   audit.ActionStatusChange,
	}, func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		if err := s.repo.SetStatus(ctx, id, Status(in.Status)); err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{Details: map[string]any{"status": in.Status}}, nil
	})
}

// ListMine returns the caller's own applications, newest first.
func (s *Service) ListMine(ctx context.Context) []Application {
	res := s.gate.Authorize(ctx, action.Authenticated, "")
	if !res.OK() {
		return []Application{}
	}
	apps, err := s.repo.ListByUser(ctx, res.Principal.ID)
	if err != nil {
		s.logger.Error("list own applications", slog.Any("error", err))
		return []Application{}
	}
	if apps == nil {
		return []Application{}
	}
	return apps
}

// GetMine returns one application when the caller owns it. Missing and
// foreign applications look the same to the caller.
func (s *Service) GetMine(ctx context.Context, id int64) (Application, bool) {
	if res := s.gate.Authorize(ctx, action.Authenticated, ""); !res.OK() {
		return Application{}, false
	}
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("get application", slog.Any("error", err))
		}
		return Application{}, false
	}
	if res := s.gate.Authorize(ctx, action.Owner, app.UserID); !res.OK() {
		return Application{}, false
	}
	return app, true
}

// CountPending reports applications awaiting review. Non-admins get zero.
func (s *Service) CountPending(ctx context.Context) int {
	if res := s.gate.Authorize(ctx, action.Admin, ""); !res.OK() {
		return 0
	}
	n, err := s.repo.CountByStatus(ctx, StatusPending)
	if err != nil {
		s.logger.Warn("count applications", slog.Any("error", err))
		return 0
	}
	return n
}
