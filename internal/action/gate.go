// Package action runs every state-changing request through one fixed
// pipeline: guard, rate limit, validation, sanitization, mutation, audit and
// error translation.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/akademi-id/akademi/internal/audit"
	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/i18n"
	"github.com/akademi-id/akademi/internal/ratelimit"
	"github.com/akademi-id/akademi/internal/shared"
)

// Access selects the guard policy applied before anything else runs.
type Access int

const (
	Public Access = iota
	Authenticated
	Admin
	Owner
)

// Sanitizer is implemented by inputs that clean their own free-text fields.
type Sanitizer interface {
	Sanitize()
}

// AuditLogger receives a record for every successful audited mutation.
type AuditLogger interface {
	Log(rec audit.Record)
}

// Spec describes one gated mutation.
type Spec struct {
	Access Access
	// OwnerID is the account the target belongs to. Used with Owner access.
	OwnerID string
	// Policy enables rate limiting when non-nil.
	Policy *ratelimit.Policy
	// LimitKey derives the natural limiting key, e.g. a phone number.
	LimitKey func(p *guard.Principal) string
	Input    any
	Entity   string
	EntityID string
	Action   audit.Action
	// Duplicate is the i18n key naming the conflicting thing on a unique
	// violation.
	Duplicate string
}

// Outcome is what a successful mutation reports back.
type Outcome struct {
	ID      int64
	Details map[string]any
}

// Result is the uniform answer of every gated action.
type Result struct {
	Success bool
	Error   string
	ID      int64
}

// Func performs the mutation. p is nil for anonymous public actions.
type Func func(ctx context.Context, p *guard.Principal) (Outcome, error)

// Gate composes the request-gating components.
type Gate struct {
	guard    *guard.Guard
	limiter  *ratelimit.Limiter
	validate *validator.Validate
	audit    AuditLogger
	loc      *i18n.Localizer
	logger   *slog.Logger
}

// NewGate constructs a Gate. limiter and auditLog may be nil to disable those
// steps.
func NewGate(g *guard.Guard, limiter *ratelimit.Limiter, auditLog AuditLogger, loc *i18n.Localizer, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		guard:    g,
		limiter:  limiter,
		validate: NewValidator(),
		audit:    auditLog,
		loc:      loc,
		logger:   logger,
	}
}

// Localizer returns the localizer used for messages.
func (g *Gate) Localizer() *i18n.Localizer {
	return g.loc
}

// Authorize applies the guard policy for reads. Callers return neutral empty
// results when it fails.
func (g *Gate) Authorize(ctx context.Context, access Access, ownerID string) guard.Result {
	switch access {
	case Authenticated:
		return g.guard.RequireAuthenticated(ctx)
	case Admin:
		return g.guard.RequireAdmin(ctx)
	case Owner:
		return g.guard.RequireOwner(ctx, ownerID)
	default:
		// Public reads still surface the principal when one exists.
		res := g.guard.RequireAuthenticated(ctx)
		return guard.Result{Principal: res.Principal}
	}
}

// Run executes fn behind the gate. It never panics on denial and never
// returns a raw error to the caller.
func (g *Gate) Run(ctx context.Context, spec Spec, fn Func) Result {
	auth := g.Authorize(ctx, spec.Access, spec.OwnerID)
	if auth.Err != nil {
		return g.fail(g.guardMessage(auth.Err))
	}
	principal := auth.Principal

	if spec.Policy != nil && g.limiter != nil {
		decision := g.limiter.Check(ratelimit.Key(*spec.Policy, g.limitKey(spec, principal)), *spec.Policy)
		if !decision.Allowed {
			return g.fail(g.loc.T(i18n.MsgRetryAfter, decision.RetryAfterSeconds))
		}
	}

	if spec.Input != nil {
		if msg := g.validateInput(spec.Input); msg != "" {
			return g.fail(msg)
		}
		if s, ok := spec.Input.(Sanitizer); ok {
			s.Sanitize()
			// Stripping markup can empty a field or shorten it below its minimum.
			if msg := g.validateInput(spec.Input); msg != "" {
				return g.fail(msg)
			}
		}
	}

	outcome, err := fn(ctx, principal)
	if err != nil {
		return g.fail(g.translate(spec, err))
	}

	if principal != nil && spec.Entity != "" && g.audit != nil {
		entityID := spec.EntityID
		if outcome.ID != 0 {
			entityID = strconv.FormatInt(outcome.ID, 10)
		}
		g.audit.Log(audit.Record{
			UserID:   principal.ID,
			UserName: principal.Name,
			Action:   spec.Action,
			Entity:   spec.Entity,
			EntityID: entityID,
			Details:  outcome.Details,
		})
	}
	return Result{Success: true, ID: outcome.ID}
}

func (g *Gate) limitKey(spec Spec, p *guard.Principal) string {
	if spec.LimitKey != nil {
		if key := strings.TrimSpace(spec.LimitKey(p)); key != "" {
			return key
		}
	}
	if p != nil {
		return "user:" + p.ID
	}
	return "anonymous"
}

func (g *Gate) fail(msg string) Result {
	return Result{Success: false, Error: msg}
}

func (g *Gate) guardMessage(err error) string {
	switch {
	case errors.Is(err, guard.ErrAdminOnly):
		return g.loc.T(i18n.MsgAdminOnly)
	case errors.Is(err, guard.ErrNoAccess):
		return g.loc.T(i18n.MsgNoAccess)
	default:
		return g.loc.T(i18n.MsgNotLoggedIn)
	}
}

func (g *Gate) translate(spec Spec, err error) string {
	var userErr *UserError
	switch {
	case errors.As(err, &userErr):
		return g.loc.T(userErr.Key, userErr.Args...)
	case errors.Is(err, shared.ErrAlreadyExists):
		subject := "Data"
		if spec.Duplicate != "" {
			subject = g.loc.T(spec.Duplicate)
		}
		return g.loc.T(i18n.MsgAlreadyExists, subject)
	case errors.Is(err, shared.ErrNotFound):
		return g.loc.T(i18n.MsgNotFound)
	case shared.IsGuardError(err):
		return g.guardMessage(err)
	default:
		g.logger.Error("action failed",
			slog.String("entity", spec.Entity),
			slog.String("action", spec.Action.String()),
			slog.Any("error", err),
		)
		return g.loc.T(i18n.MsgGenericFailure)
	}
}

// UserError carries a message key that is safe to show to the user.
type UserError struct {
	Key  string
	Args []any
}

// Fail returns a UserError for key.
func Fail(key string, args ...any) error {
	return &UserError{Key: key, Args: args}
}

func (e *UserError) Error() string {
	return fmt.Sprintf(e.Key, e.Args...)
}

func (g *Gate) validateInput(input any) string {
	if reflect.Indirect(reflect.ValueOf(input)).Kind() != reflect.Struct {
		return ""
	}
	err := g.validate.Struct(input)
	if err == nil {
		return ""
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		g.logger.Error("validate input", slog.Any("error", err))
		return g.loc.T(i18n.MsgGenericFailure)
	}
	return FieldMessage(g.loc, fieldErrs[0])
}

// Validate checks input against its struct tags outside a gated run. The
// error carries the localized message of the first failing field.
func (g *Gate) Validate(input any) error {
	if msg := g.validateInput(input); msg != "" {
		return errors.New(msg)
	}
	return nil
}
