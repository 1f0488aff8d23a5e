// Package notices manages announcements shown on the public site.
package notices

import (
	"time"

	"github.com/akademi-id/akademi/internal/sanitize"
)

// Notice is an announcement. Body holds sanitized rich text.
type Notice struct {
	ID        int64
	Slug      string
	Title     string
	Body      string
	Pinned    bool
	Published bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Input is the admin notice form.
type Input struct {
	Slug      string `validate:"required,max=80,slug" label:"Slug"`
	Title     string `validate:"required,max=150" label:"Judul"`
	Body      string `validate:"required,max=20000" label:"Isi"`
	Pinned    bool
	Published bool
}

// Sanitize implements action.Sanitizer.
func (in *Input) Sanitize() {
	in.Title = sanitize.Strict(in.Title)
	in.Body = sanitize.Rich(in.Body)
}

func (in Input) notice() Notice {
	return Notice{Slug: in.Slug, Title: in.Title, Body: in.Body, Pinned: in.Pinned, Published: in.Published}
}

// InputFrom prefills the edit form.
func InputFrom(n Notice) Input {
	return Input{Slug: n.Slug, Title: n.Title, Body: n.Body, Pinned: n.Pinned, Published: n.Published}
}
