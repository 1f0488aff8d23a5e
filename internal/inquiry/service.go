package inquiry

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/akademi-id/akademi/internal/action"
	"github.com/akademi-id/akademi/internal/audit"
	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/ratelimit"
	"github.com/akademi-id/akademi/internal/sanitize"
	"github.com/akademi-id/akademi/internal/shared"
)

const entity = "inquiry"

// Notifier is told about new inquiries. Implementations must not block.
type Notifier interface {
	InquiryReceived(ctx context.Context, inq Inquiry)
}

// Service implements the contact form and the admin inbox.
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

// Submit stores a contact form submission. Submissions are limited per phone
// number.
func (s *Service) Submit(ctx context.Context, in SubmitInput) action.Result {
	policy := ratelimit.Contact
	return s.gate.Run(ctx, action.Spec{
		Access:   action.Public,
		Policy:   &policy,
		LimitKey: func(*guard.Principal) string { return sanitize.Phone(in.Phone) },
		Input:    &in,
	}, func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		inq := Inquiry{Name: in.Name, Email: in.Email, Phone: in.Phone, Subject: in.Subject, Message: in.Message, Status: StatusNew}
		id, err := s.repo.Create(ctx, inq)
		if err != nil {
			return action.Outcome{}, err
		}
		inq.ID = id
		if s.notifier != nil {
			s.notifier.InquiryReceived(ctx, inq)
		}
		return action.Outcome{ID: id}, nil
	})
}

// List returns one page of the inbox. Non-admins get an empty page.
func (s *Service) List(ctx context.Context, status Status, page int) ([]Inquiry, shared.Pagination) {
	if res := s.gate.Authorize(ctx, action.Admin, ""); !res.OK() {
		return []Inquiry{}, shared.NewPagination(1, shared.DefaultPerPage, 0)
	}
	p := shared.NewPagination(page, shared.DefaultPerPage, 0)
	items, total, err := s.repo.List(ctx, status, p.PerPage, p.Offset())
	if err != nil {
		s.logger.Error("list inquiries", slog.Any("error", err))
		return []Inquiry{}, p
	}
	return items, shared.NewPagination(p.Page, p.PerPage, total)
}

// SetStatus moves an inquiry between NEW, READ and ARCHIVED.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) action.Result {
	in := statusInput{Status: status}
	return s.gate.Run(ctx, s.adminSpec(id, audit.ActionStatusChange, &in), func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		if err := s.repo.SetStatus(ctx, id, Status(in.Status)); err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{Details: map[string]any{"status": in.Status}}, nil
	})
}

// Delete removes an inquiry.
func (s *Service) Delete(ctx context.Context, id int64) action.Result {
	return s.gate.Run(ctx, s.adminSpec(id, audit.ActionDelete, nil), func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		return action.Outcome{}, s.repo.Delete(ctx, id)
	})
}

// CountNew reports unread inquiries for the dashboard. Non-admins get zero.
func (s *Service) CountNew(ctx context.Context) int {
	if res := s.gate.Authorize(ctx, action.Admin, ""); !res.OK() {
		return 0
	}
	n, err := s.repo.CountByStatus(ctx, StatusNew)
	if err != nil {
		s.logger.Warn("count inquiries", slog.Any("error", err))
		return 0
	}
	return n
}

func (s *Service) adminSpec(id int64, act audit.Action, input any) action.Spec {
	policy := ratelimit.AdminWrite
	return action.Spec{
		Access:   action.Admin,
		Policy:   &policy,
		Input:    input,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Action:   act,
	}
}
