package models

import "time"

// GroupType identifies one of the fixed-size curated groups
type GroupType string

const (
	GroupClub      GroupType = "club"
	GroupSpotlight GroupType = "spotlight"
	GroupDuo       GroupType = "duo"
)

// GroupTypes lists every curated group.
var GroupTypes = []GroupType{GroupClub, GroupSpotlight, GroupDuo}

// Size returns the exact number of articles the group holds.
func (g GroupType) Size() int {
	switch g {
	case GroupClub:
		return 5
	case GroupSpotlight:
		return 3
	case GroupDuo:
		return 2
	}
	return 0
}

// Label is the display name used in messages.
func (g GroupType) Label() string {
	switch g {
	case GroupClub:
		return "Club"
	case GroupSpotlight:
		return "Spotlight"
	case GroupDuo:
		return "Duo"
	}
	return string(g)
}

// ParseGroupType validates a URL segment.
func ParseGroupType(s string) (GroupType, bool) {
	for _, g := range GroupTypes {
		if string(g) == s {
			return g, true
		}
	}
	return "", false
}

// Position is a curated-group placement key
type Position string

// PositionAfterTopStories places a group right after top stories.
const PositionAfterTopStories Position = "after_top_stories"

// SectionPosition builds "after_<category>_section".
func SectionPosition(c Category) Position {
	return Position("after_" + c.Slug() + "_section")
}

// Positions lists every placement key a curated group may use.
func Positions() []Position {
	out := make([]Position, 0, len(Categories)+1)
	out = append(out, PositionAfterTopStories)
	for _, c := range Categories {
		out = append(out, SectionPosition(c))
	}
	return out
}

// ValidPosition reports whether p is in Positions.
func ValidPosition(p Position) bool {
	for _, known := range Positions() {
		if p == known {
			return true
		}
	}
	return false
}

// CuratedGroupConfig is the singleton stored selection for one group
type CuratedGroupConfig struct {
	Type       GroupType `json:"type"`
	Position   Position  `json:"position"`
	ArticleIDs []string  `json:"articleIds"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// GroupInput is the upsert payload for a curated group
type GroupInput struct {
	Position   string   `json:"position"`
	ArticleIDs []string `json:"articleIds"`
}
