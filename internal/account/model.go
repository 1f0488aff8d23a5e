// Package account manages registered users: sign up, profile, password reset
// and role administration.
package account

import (
	"strings"
	"time"

	"github.com/akademi-id/akademi/internal/guard"
	"github.com/akademi-id/akademi/internal/sanitize"
)

// User is a registered account.
type User struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Role      guard.Role
	CreatedAt time.Time
}

// RegisterInput is the public sign up form.
type RegisterInput struct {
	Name            string `validate:"required,max=120" label:"Nama"`
	Email           string `validate:"required,email,max=150" label:"Email"`
	Phone           string `validate:"required,phone" label:"Nomor HP"`
	Password        string `validate:"required,min=8,max=72" label:"Password"`
	PasswordConfirm string `validate:"required,eqfield=Password" label:"Konfirmasi password"`
}

// Sanitize implements action.Sanitizer.
func (in *RegisterInput) Sanitize() {
	in.Name = sanitize.Strict(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = sanitize.Phone(in.Phone)
}

// ProfileInput is the editable part of a profile.
type ProfileInput struct {
	Name  string `validate:"required,max=120" label:"Nama"`
	Phone string `validate:"required,phone" label:"Nomor HP"`
}

// Sanitize implements action.Sanitizer.
func (in *ProfileInput) Sanitize() {
	in.Name = sanitize.Strict(in.Name)
	in.Phone = sanitize.Phone(in.Phone)
}

// ResetRequestInput asks for a password reset link.
type ResetRequestInput struct {
	Email string `validate:"required,email" label:"Email"`
}

// ResetInput completes a password reset.
type ResetInput struct {
	Token           string `validate:"required,uuid4" label:"Token"`
	Password        string `validate:"required,min=8,max=72" label:"Password"`
	PasswordConfirm string `validate:"required,eqfield=Password" label:"Konfirmasi password"`
}

type roleInput struct {
	Role string `validate:"required,oneof=STUDENT INSTRUCTOR ADMIN SUPER_ADMIN" label:"Peran"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
