// Package admission handles admission applications from the public site and
// the student hub.
package admission

import (
	"time"

	"github.com/akademi-id/akademi/internal/sanitize"
)

// Status is the review state of an application.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

// Application is a submitted admission form. UserID is empty for applicants
// without an account.
type Application struct {
	ID          int64
	UserID      string
	FullName    string
	Email       string
	Phone       string
	CourseID    int64
	CourseTitle string
	Motivation  string
	Status      Status
	CreatedAt   time.Time
}

// SubmitInput is the public admission form.
type SubmitInput struct {
	FullName   string `validate:"required,max=120" label:"Nama lengkap"`
	Email      string `validate:"required,email,max=150" label:"Email"`
	Phone      string `validate:"required,phone" label:"Nomor HP"`
	CourseID   int64  `validate:"required,gt=0" label:"Program"`
	Motivation string `validate:"max=2000" label:"Motivasi"`
}

// Sanitize implements action.Sanitizer.
func (in *SubmitInput) Sanitize() {
	in.FullName = sanitize.Strict(in.FullName)
	in.Email = sanitize.Email(in.Email)
	in.Phone = sanitize.Phone(in.Phone)
	in.Motivation = sanitize.Strict(in.Motivation)
}

type statusInput struct {
	Status string `validate:"required,oneof=PENDING ACCEPTED REJECTED" label:"Status"`
}
