package models

import "time"

// SectionKind tags a render plan section
type SectionKind string

const (
	SectionTicker        SectionKind = "ticker"
	SectionInstaStrip    SectionKind = "insta_strip"
	SectionHeroContainer SectionKind = "hero_container"
	SectionTopStories    SectionKind = "top_stories"
	SectionCategoryBlock SectionKind = "category_block"
	SectionCuratedGroup  SectionKind = "curated_group"
)

// Card is the projection of an article a section needs to render
type Card struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary,omitempty"`
	Category   Category  `json:"category"`
	CoverImage string    `json:"coverImage,omitempty"`
	Breaking   bool      `json:"breaking,omitempty"`
	Featured   bool      `json:"featured,omitempty"`
	Date       time.Time `json:"date"`
}

// Section is one typed block of the homepage.
//
// Only the fields relevant to Kind are set: Container/Slot for hero
// containers, Category/Main for category blocks, Group/Position for
// curated groups. Items holds the section's cards; in a category block it
// holds only the side cards and may be empty.
type Section struct {
	Kind      SectionKind `json:"kind"`
	Container int         `json:"container,omitempty"`
	Slot      SlotName    `json:"slot,omitempty"`
	Category  Category    `json:"category,omitempty"`
	Group     GroupType   `json:"group,omitempty"`
	Position  Position    `json:"position,omitempty"`
	Main      *Card       `json:"main,omitempty"`
	Items     []Card      `json:"items"`
}

// RenderPlan is the ordered list of sections for one homepage render
type RenderPlan struct {
	Empty    bool      `json:"empty"`
	Sections []Section `json:"sections"`
}
