// Package courses manages the course catalog shown on the public site.
package courses

import (
	"strings"
	"time"

	"github.com/akademi-id/akademi/internal/sanitize"
)

// Levels offered in the catalog.
const (
	LevelBeginner     = "BEGINNER"
	LevelIntermediate = "INTERMEDIATE"
	LevelAdvanced     = "ADVANCED"
)

// Course is a catalog entry. Description holds sanitized rich text.
type Course struct {
	ID            int64
	Slug          string
	Title         string
	Summary       string
	Description   string
	Level         string
	DurationWeeks int
	Fee           int64
	Published     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Input is the admin course form.
type Input struct {
	Slug          string `validate:"required,max=80,slug" label:"Slug"`
	Title         string `validate:"required,max=150" label:"Judul"`
	Summary       string `validate:"max=300" label:"Ringkasan"`
	Description   string `validate:"max=20000" label:"Deskripsi"`
	Level         string `validate:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED" label:"Level"`
	DurationWeeks int    `validate:"gte=0,lte=104" label:"Durasi"`
	Fee           int64  `validate:"gte=0" label:"Biaya"`
	Published     bool
}

// Sanitize implements action.Sanitizer.
func (in *Input) Sanitize() {
	in.Title = sanitize.Strict(in.Title)
	in.Summary = sanitize.Strict(in.Summary)
	in.Description = sanitize.Rich(in.Description)
}

func (in *Input) normalize() {
	in.Slug = sanitize.Slug(in.Slug)
	in.Level = strings.ToUpper(strings.TrimSpace(in.Level))
}

func (in Input) course() Course {
	return Course{
		Slug:          in.Slug,
		Title:         in.Title,
		Summary:       in.Summary,
		Description:   in.Description,
		Level:         in.Level,
		DurationWeeks: in.DurationWeeks,
		Fee:           in.Fee,
		Published:     in.Published,
	}
}

// InputFrom prefills the edit form.
func InputFrom(c Course) Input {
	return Input{
		Slug:          c.Slug,
		Title:         c.Title,
		Summary:       c.Summary,
		Description:   c.Description,
		Level:         c.Level,
		DurationWeeks: c.DurationWeeks,
		Fee:           c.Fee,
		Published:     c.Published,
	}
}
