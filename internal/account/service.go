package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/akademi-id/akademi/internal/action"
	"github.com/akademi-id/akademi/internal/audit"
	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/ratelimit"
	"github.com/akademi-id/akademi/internal/sanitize"
	"github.com/akademi-id/akademi/internal/shared"
)

const (
	entity = "user"
	// ResetTokenTTL bounds how long a password reset link stays usable.
	ResetTokenTTL = time.Hour
)

// Notifier delivers password reset links. Implementations must not block.
type Notifier interface {
	PasswordResetRequested(ctx context.Context, u User, token string)
}

// Service implements registration, profiles, password resets and role
// management.
type Service struct {
	repo     Repository
	gate     *action.Gate
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	cost     int
}

// NewService constructs a Service. notifier may be nil.
func NewService(repo Repository, gate *action.Gate, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, gate: gate, notifier: notifier, logger: logger, now: time.Now, cost: bcrypt.DefaultCost}
}

// Register creates a STUDENT account. Sign ups are limited per phone number.
func (s *Service) Register(ctx context.Context, in RegisterInput) action.Result {
	policy := ratelimit.Registration
	return s.gate.Run(ctx, action.Spec{
		Access:    action.Public,
		Policy:    &policy,
		LimitKey:  func(*guard.Principal) string { return sanitize.Phone(in.Phone) },
		Input:     &in,
		Duplicate: i18n.MsgEntityEmail,
	}, func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
		if err != nil {
			return action.Outcome{}, fmt.Errorf("hash password: %w", err)
		}
		id, err := s.repo.Create(ctx, User{Name: in.Name, Email: in.Email, Phone: in.Phone, Role: guard.RoleStudent}, string(hash))
		if err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{ID: id}, nil
	})
}

// Profile returns the account of userID when the caller owns it.
func (s *Service) Profile(ctx context.Context, userID int64) (User, bool) {
	if res := s.gate.Authorize(ctx, action.Owner, strconv.FormatInt(userID, 10)); !res.OK() {
		return User{}, false
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.logger.Error("load profile", slog.Any("error", err))
		}
		return User{}, false
	}
	return u, true
}

// UpdateProfile changes name and phone of the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) action.Result {
	id := strconv.FormatInt(userID, 10)
	return s.gate.Run(ctx, action.Spec{
		Access:   action.Owner,
		OwnerID:  id,
		Input:    &in,
		Entity:   entity,
		EntityID: id,
		Action:   audit.ActionUpdate,
	}, func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		if err := s.repo.UpdateProfile(ctx, userID, in.Name, in.Phone); err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{Details: map[string]any{"fields": []string{"name", "phone"}}}, nil
	})
}

// RequestPasswordReset mails a reset link when the email is registered. The
// answer is the same either way so accounts cannot be probed.
func (s *Service) RequestPasswordReset(ctx context.Context, in ResetRequestInput) action.Result {
	policy := ratelimit.PasswordReset
	return s.gate.Run(ctx, action.Spec{
		Access:   action.Public,
		Policy:   &policy,
		LimitKey: func(*guard.Principal) string { return normalizeEmail(in.Email) },
		Input:    &in,
	}, func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		u, err := s.repo.GetByEmail(ctx, normalizeEmail(in.Email))
		if errors.Is(err, shared.ErrNotFound) {
			return action.Outcome{}, nil
		}
		if err != nil {
			return action.Outcome{}, err
		}
		token := uuid.NewString()
		if err := s.repo.CreateResetToken(ctx, u.ID, hashToken(token), s.now().Add(ResetTokenTTL)); err != nil {
			return action.Outcome{}, err
		}
		if s.notifier != nil {
			s.notifier.PasswordResetRequested(ctx, u, token)
		}
		return action.Outcome{}, nil
	})
}

// ResetPassword sets a new password using a token from RequestPasswordReset.
// Tokens are single use.
func (s *Service) ResetPassword(ctx context.Context, in ResetInput) action.Result {
	policy := ratelimit.PasswordReset
	return s.gate.Run(ctx, action.Spec{
		Access:   action.Public,
		Policy:   &policy,
		LimitKey: func(*guard.Principal) string { return "token:" + strings.TrimSpace(in.Token) },
		Input:    &in,
	}, func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
		if err != nil {
			return action.Outcome{}, fmt.Errorf("hash password: %w", err)
		}
		userID, err := s.repo.RedeemResetToken(ctx, hashToken(in.Token), s.now(), string(hash))
		if errors.Is(err, shared.ErrNotFound) {
			return action.Outcome{}, action.Fail(i18n.MsgResetInvalid)
		}
		if err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{ID: userID}, nil
	})
}

// ListUsers returns one page of accounts. Non-admins get an empty page.
func (s *Service) ListUsers(ctx context.Context, page int) ([]User, shared.Pagination) {
	if res := s.gate.Authorize(ctx, action.Admin, ""); !res.OK() {
		return []User{}, shared.NewPagination(1, shared.DefaultPerPage, 0)
	}
	p := shared.NewPagination(page, shared.DefaultPerPage, 0)
	users, total, err := s.repo.List(ctx, p.PerPage, p.Offset())
	if err != nil {
		s.logger.Error("list users", slog.Any("error", err))
		return []User{}, p
	}
	if users == nil {
		users = []User{}
	}
	return users, shared.NewPagination(p.Page, p.PerPage, total)
}

// ChangeRole assigns role to userID. Administrator roles can only be granted
// or revoked by a super admin, and nobody changes their own role.
func (s *Service) ChangeRole(ctx context.Context, userID int64, role string) action.Result {
	in := roleInput{Role: strings.ToUpper(strings.TrimSpace(role))}
	policy := ratelimit.AdminWrite
	return s.gate.Run(ctx, action.Spec{
		Access:   action.Admin,
		Policy:   &policy,
		Input:    &in,
		Entity:   entity,
		EntityID: strconv.FormatInt(userID, 10),
		Action:   audit.ActionUpdate,
	}, func(ctx context.Context, p *guard.Principal) (action.Outcome, error) {
		if p.ID == strconv.FormatInt(userID, 10) {
			return action.Outcome{}, action.Fail(i18n.MsgOwnRole)
		}
		target, err := s.repo.Get(ctx, userID)
		if err != nil {
			return action.Outcome{}, err
		}
		next := guard.Role(in.Role)
		if (next.IsAdmin() || target.Role.IsAdmin()) && p.Role != guard.RoleSuperAdmin {
			return action.Outcome{}, action.Fail(i18n.MsgRoleEscalation)
		}
		if err := s.repo.UpdateRole(ctx, userID, next); err != nil {
			return action.Outcome{}, err
		}
		return action.Outcome{Details: map[string]any{"from": target.Role.String(), "role": next.String()}}, nil
	})
}

// Provision creates an account with any role, bypassing the gate. It backs the
// operator CLI and must not be reachable from HTTP.
func (s *Service) Provision(ctx context.Context, name, email, password string, role guard.Role) (int64, error) {
	if !role.IsValid() {
		return 0, fmt.Errorf("unknown role %q", role)
	}
	email = normalizeEmail(email)
	if err := s.gate.Validate(&struct {
		Name     string `validate:"required,max=120"`
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8,max=72"`
	}{name, email, password}); err != nil {
		return 0, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.Create(ctx, User{Name: sanitize.Strict(name), Email: email, Role: role}, string(hash))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}
