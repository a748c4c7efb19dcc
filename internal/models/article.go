package models

import (
	"strings"
	"time"
)

// Article represents a news article in the system
type Article struct {
	ID          string                    `json:"id" db:"id"`
	Slug        string                    `json:"slug" db:"slug"`
	Title       string                    `json:"title" db:"title"`
	Summary     string                    `json:"summary" db:"summary"`
	Body        string                    `json:"body" db:"body"`
	Category    Category                  `json:"category" db:"category"`
	Tags        []string                  `json:"tags" db:"-"` // Stored as JSON string in DB
	CoverImage  string                    `json:"coverImage,omitempty" db:"cover_image"`
	Featured    bool                      `json:"featured" db:"featured"`
	Breaking    bool                      `json:"breaking" db:"breaking"`
	Ticker      bool                      `json:"ticker" db:"ticker"`
	Placements  [ContainerCount]Placement `json:"placements" db:"-"`
	Status      Status                    `json:"status" db:"status"`
	PublishedAt *time.Time                `json:"publishedAt,omitempty" db:"published_at"`
	CreatedAt   time.Time                 `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time                 `json:"updatedAt" db:"updated_at"`
}

// Status is the article lifecycle state
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// ValidStatuses defines allowed article statuses
var ValidStatuses = map[Status]bool{
	StatusDraft:     true,
	StatusPublished: true,
}

// IsPublished reports whether the article is visible on the reader site.
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// EffectiveDate is publishedAt, falling back to createdAt.
func (a *Article) EffectiveDate() time.Time {
	if a.PublishedAt != nil && !a.PublishedAt.IsZero() {
		return *a.PublishedAt
	}
	return a.CreatedAt
}

// Placement returns the hero placement for container index (1-based).
func (a *Article) Placement(index int) Placement {
	if index < 1 || index > ContainerCount {
		return Placement{}
	}
	return a.Placements[index-1]
}

// SetPlacement overwrites the hero placement for container index (1-based).
func (a *Article) SetPlacement(index int, p Placement) {
	if index < 1 || index > ContainerCount {
		return
	}
	if !p.Enabled {
		p.Slot = ""
	}
	a.Placements[index-1] = p
}

// Occupies reports whether the article holds slot in the given container.
func (a *Article) Occupies(index int, slot SlotName) bool {
	p := a.Placement(index)
	return p.Enabled && p.Slot != "" && p.Slot == slot
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (a *Article) Clone() *Article {
	if a == nil {
		return nil
	}
	c := *a
	if a.Tags != nil {
		c.Tags = append([]string(nil), a.Tags...)
	}
	if a.PublishedAt != nil {
		t := *a.PublishedAt
		c.PublishedAt = &t
	}
	return &c
}

// ArticleInput is the create/update payload accepted by the editorial API
type ArticleInput struct {
	Title      string           `json:"title"`
	Summary    string           `json:"summary"`
	Body       string           `json:"body"`
	Category   string           `json:"category"`
	Tags       []string         `json:"tags"`
	CoverImage string           `json:"coverImage"`
	Slug       string           `json:"slug"`
	Featured   bool             `json:"featured"`
	Breaking   bool             `json:"breaking"`
	Ticker     bool             `json:"ticker"`
	Status     string           `json:"status"`
	Placements []PlacementInput `json:"placements"`
}

// PlacementInput selects a slot for one hero container
type PlacementInput struct {
	Container int    `json:"container"`
	Enabled   bool   `json:"enabled"`
	Slot      string `json:"slot"`
}

// NormalizeTags trims tags, drops blanks and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
