// Package inquiry handles the public contact form and its admin inbox.
package inquiry

import (
	"time"

	"github.com/akademi-id/akademi/internal/sanitize"
)

// Status tracks an inquiry through the admin inbox.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusRead     Status = "READ"
	StatusArchived Status = "ARCHIVED"
)

// Inquiry is a stored contact form submission.
type Inquiry struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Subject   string
	Message   string
	Status    Status
	CreatedAt time.Time
}

// SubmitInput is the public contact form.
type SubmitInput struct {
	Name    string `validate:"required,max=100" label:"Nama"`
	Email   string `validate:"omitempty,email,max=150" label:"Email"`
	Phone   string `validate:"required,phone" label:"Nomor HP"`
	Subject string `validate:"max=150" label:"Subjek"`
	Message string `validate:"required,min=10,max=2000" label:"Pesan"`
}

// Sanitize implements action.Sanitizer.
func (in *SubmitInput) Sanitize() {
	in.Name = sanitize.Strict(in.Name)
	in.Email = sanitize.Email(in.Email)
	in.Phone = sanitize.Phone(in.Phone)
	in.Subject = sanitize.Strict(in.Subject)
	in.Message = sanitize.Strict(in.Message)
}

type statusInput struct {
	Status string `validate:"required,oneof=NEW READ ARCHIVED" label:"Status"`
}
