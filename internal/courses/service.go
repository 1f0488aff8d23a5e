package courses

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/akademi-id/akademi/internal/action"
	"github.com/akademi-id/akademi/internal/audit"
	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/ratelimit"
	"github.com/akademi-id/akademi/internal/shared"
)

const entity = "course"

// Service implements the public catalog and its admin management.
type Service struct {
	repo   Repository
	gate   *action.Gate
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, gate *action.Gate, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, gate: gate, logger: logger}
}

// ListPublished returns the public catalog.
func (s *Service) ListPublished(ctx context.Context) []Course {
	items, err := s.repo.ListPublished(ctx)
	if err != nil {
		s.logger.Error("list published courses", slog.Any("error", err))
		return []Course{}
	}
	if items == nil {
		return []Course{}
	}
	return items
}

// GetBySlug returns a published course.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Course, bool) {
	c, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("get course", slog.Any("error", err))
		}
		return Course{}, false
	}
	return c, true
}

// List returns one page of every course, drafts included. Non-admins get an
// empty page.
func (s *Service) List(ctx context.Context, page int) ([]Course, shared.Pagination) {
	if res := s.gate.Authorize(ctx, action.Admin, ""); !res.OK() {
		return []Course{}, shared.NewPagination(1, shared.DefaultPerPage, 0)
	}
	p := shared.NewPagination(page, shared.DefaultPerPage, 0)
	items, total, err := s.repo.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		s.logger.Error("list courses", slog.Any("error", err))
		return []Course{}, p
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total)
}

// Get loads a course for editing.
func (s *Service) Get(ctx context.Context, id int64) (Course, bool) {
	if res := s.gate.Authorize(ctx, action.Admin, ""); !res.OK() {
		return Course{}, false
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("get course", slog.Any("error", err))
		}
		return Course{}, false
	}
	return c, true
}

// Create adds a course. Slugs are unique.
func (s *Service) Create(ctx context.Context, in Input) action.Result {
	in.normalize()
	return s.gate.Run(ctx, s.spec("", audit.ActionCreate, &in), func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		id, err := s.repo.Create(ctx, in.course())
		if err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{ID: id, Details: map[string]any{"slug": in.Slug, "title": in.Title}}, nil
	})
}

// Update replaces a course.
func (s *Service) Update(ctx context.Context, id int64, in Input) action.Result {
	in.normalize()
	return s.gate.Run(ctx, s.spec(strconv.FormatInt(id, 10), audit.ActionUpdate, &in), func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		if err := s.repo.Update(ctx, id, in.course()); err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{Details: map[string]any{"slug": in.Slug, "title": in.Title}}, nil
	})
}

// Delete removes a course.
func (s *Service) Delete(ctx context.Context, id int64) action.Result {
	return s.gate.Run(ctx, s.spec(strconv.FormatInt(id, 10), audit.ActionDelete, nil), func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		return action.Outcome{}, s.repo.Delete(ctx, id)
	})
}

// TogglePublished flips the public visibility of a course.
func (s *Service) TogglePublished(ctx context.Context, id int64) action.Result {
	return s.gate.Run(ctx, s.spec(strconv.FormatInt(id, 10), audit.ActionToggle, nil), func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		published, err := s.repo.TogglePublished(ctx, id)
		if err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{Details: map[string]any{"published": published}}, nil
	})
}

func (s *Service) spec(entityID string, act audit.Action, input any) action.Spec {
	policy := ratelimit.AdminWrite
	return action.Spec{
		Access:    action.Admin,
		Policy:    &policy,
		Input:     input,
		Entity:    entity,
		EntityID:  entityID,
		Action:    act,
		Duplicate: i18n.MsgEntityCourse,
	}
}
