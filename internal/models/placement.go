package models

// ContainerCount is the number of independent hero containers.
const ContainerCount = 3

// SlotName is a named insertion point on the homepage
type SlotName string

const (
	SlotAfterInstaStrip   SlotName = "after_insta_strip"
	SlotAfterTopStories   SlotName = "after_top_stories"
	SlotAfterIndiaSection SlotName = "after_india_section"
)

// Placement is one article's claim on a hero container slot
type Placement struct {
	Enabled bool     `json:"enabled"`
	Slot    SlotName `json:"slot,omitempty"`
}

// AllowedSlots is the per-container slot vocabulary. Hero containers can
// only be pinned after the India section, unlike curated groups which
// accept any category.
var AllowedSlots = map[int][]SlotName{
	1: {SlotAfterInstaStrip, SlotAfterTopStories, SlotAfterIndiaSection},
	2: {SlotAfterInstaStrip, SlotAfterTopStories, SlotAfterIndiaSection},
	3: {SlotAfterInstaStrip, SlotAfterTopStories, SlotAfterIndiaSection},
}

// SlotAllowed reports whether slot can be chosen for container index.
func SlotAllowed(index int, slot SlotName) bool {
	for _, s := range AllowedSlots[index] {
		if s == slot {
			return true
		}
	}
	return false
}

// HeroContainer is a resolved single-article placement
type HeroContainer struct {
	Index   int      `json:"index"`
	Slot    SlotName `json:"slot"`
	Article *Article `json:"-"`
}
