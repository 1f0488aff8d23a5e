package notices

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
	"github.com/akademi-id/akademi/internal/sanitize"
	"github.com/akademi-id/akademi/internal/shared"
)

const (
	entity        = "notice"
	publicLimit   = 20
	homepageLimit = 3
)

// Service implements public announcements and their management.
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

// ListPublished returns published notices, pinned first.
func (s *Service) ListPublished(ctx context.Context) []Notice {
	return s.published(ctx, publicLimit)
}

// Latest returns the few notices shown on the homepage.
func (s *Service) Latest(ctx context.Context) []Notice {
	return s.published(ctx, homepageLimit)
}

func (s *Service) published(ctx context.Context, limit int) []Notice {
	items, err := s.repo.ListPublished(ctx, limit)
	if err != nil {
		s.logger.Error("list published notices", slog.Any("error", err))
		return []Notice{}
	}
	if items == nil {
		return []Notice{}
	}
	return items
}

// GetBySlug returns a published notice.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Notice, bool) {
	n, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("get notice", slog.Any("error", err))
		}
		return Notice{}, false
	}
	return n, true
}

// List returns one page of every notice. Non-admins get an empty page.
func (s *Service) List(ctx context.Context, page int) ([]Notice, shared.Pagination) {
	if res := s.gate.Authorize(ctx, action.Admin, ""); !res.OK() {
		return []Notice{}, shared.NewPagination(1, shared.DefaultPerPage, 0)
	}
	p := shared.NewPagination(page, shared.DefaultPerPage, 0)
	items, total, err := s.repo.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		s.logger.Error("list notices", slog.Any("error", err))
		return []Notice{}, p
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total)
}

// Get loads a notice for editing.
func (s *Service) Get(ctx context.Context, id int64) (Notice, bool) {
	if res := s.gate.Authorize(ctx, action.Admin, ""); !res.OK() {
		return Notice{}, false
	}
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("get notice", slog.Any("error", err))
		}
		return Notice{}, false
	}
	return n, true
}

// Create adds a notice.
func (s *Service) Create(ctx context.Context, in Input) action.Result {
	in.Slug = sanitize.Slug(in.Slug)
	return s.gate.Run(ctx, s.spec("", audit.ActionCreate, &in), func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		id, err := s.repo.Create(ctx, in.notice())
		if err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{ID: id, Details: map[string]any{"slug": in.Slug, "title": in.Title}}, nil
	})
}

// Update replaces a notice.
func (s *Service) Update(ctx context.Context, id int64, in Input) action.Result {
	in.Slug = sanitize.Slug(in.Slug)
	return s.gate.Run(ctx, s.spec(strconv.FormatInt(id, 10), audit.ActionUpdate, &in), func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		if err := s.repo.Update(ctx, id, in.notice()); err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{Details: map[string]any{"slug": in.Slug, "title": in.Title}}, nil
	})
}

// Delete removes a notice.
func (s *Service) Delete(ctx context.Context, id int64) action.Result {
	return s.gate.Run(ctx, s.spec(strconv.FormatInt(id, 10), audit.ActionDelete, nil), func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		return action.Outcome{}, s.repo.Delete(ctx, id)
	})
}

// TogglePinned pins or unpins a notice.
func (s *Service) TogglePinned(ctx context.Context, id int64) action.Result {
	return s.toggle(ctx, id, columnPinned)
}

// TogglePublished shows or hides a notice.
func (s *Service) TogglePublished(ctx context.Context, id int64) action.Result {
	return s.toggle(ctx, id, columnPublished)
}

func (s *Service) toggle(ctx context.Context, id int64, column string) action.Result {
	return s.gate.Run(ctx, s.spec(strconv.FormatInt(id, 10), audit.ActionToggle, nil), func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		value, err := s.repo.Toggle(ctx, id, column)
		if err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{Details: map[string]any{column: value}}, nil
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
		Duplicate: i18n.MsgEntityNotice,
	}
}
