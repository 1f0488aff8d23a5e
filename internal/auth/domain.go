package auth

import (
	"strings"
	"time"

	"github.com/akademi-id/akademi/internal/guard"
)

// User is the slice of an account needed to log in.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         guard.Role
	IsActive     bool
	CreatedAt    time.Time
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string `validate:"required,email" label:"Email"`
	Password string `validate:"required,min=8,max=72" label:"Password"`
}

// Sanitize implements action.Sanitizer.
func (in *LoginInput) Sanitize() {
	in.Email = normalizeEmail(in.Email)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
