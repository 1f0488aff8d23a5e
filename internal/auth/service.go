package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/akademi-id/akademi/internal/action"
	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/ratelimit"
	"github.com/akademi-id/akademi/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
	gate *action.Gate
}

// NewService constructs a new Service.
func NewService(repo Repository, gate *action.Gate) *Service {
	return &Service{repo: repo, gate: gate}
}

// Login checks credentials behind the login rate limit, keyed by email so
// rotating addresses does not help an attacker.
func (s *Service) Login(ctx context.Context, in LoginInput) (*User, action.Result) {
	var user *User
	policy := ratelimit.Login
	res := s.gate.Run(ctx, action.Spec{
		Access:   action.Public,
		Policy:   &policy,
		LimitKey: func(*guard.Principal) string { return normalizeEmail(in.Email) },
		Input:    &in,
	}, func(ctx context.Context, _ *guard.Principal) (action.Outcome, error) {
		u, err := s.Authenticate(ctx, in.Email, in.Password)
		if errors.Is(err, shared.ErrInvalidCredentials) {
			return action.Outcome{}, action.Fail(i18n.MsgInvalidLogin)
		}
		if err != nil {
			return action.Outcome{}, err
		}
		user = u
		return action.Outcome{ID: u.ID}, nil
	})
	return user, res
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
