package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/pkg/apperr"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidSlug reports whether s is already in canonical slug form.
func ValidSlug(s string) bool {
	return slugRegex.MatchString(s)
}

// SlotSelection is one container's slot choice on a single article
type SlotSelection struct {
	Slot    models.SlotName
	Enabled bool
}

// HasSlotCollision is true iff the enabled, non-empty slots are not all
// distinct. It keeps one article from stacking two hero blocks at the
// same page position.
func HasSlotCollision(selections []SlotSelection) bool {
	seen := make(map[models.SlotName]bool, len(selections))
	for _, s := range selections {
		if !s.Enabled || s.Slot == "" {
			continue
		}
		if seen[s.Slot] {
			return true
		}
		seen[s.Slot] = true
	}
	return false
}

// ArticleMode distinguishes create from update validation
type ArticleMode int

const (
	ModeCreate ArticleMode = iota
	ModeUpdate
)

// ValidateArticleInput checks an editorial payload before any mutation.
// Fields are expected to be trimmed already.
func ValidateArticleInput(in *models.ArticleInput, mode ArticleMode) error {
	// Validate required fields
	if in.Title == "" {
		return apperr.NewFieldError("title", "title is required")
	}
	if in.Summary == "" {
		return apperr.NewFieldError("summary", "summary is required")
	}
	if in.Body == "" {
		return apperr.NewFieldError("body", "body is required")
	}

	// Validate category
	if in.Category == "" {
		if mode == ModeUpdate {
			return apperr.NewFieldError("category", "category is required")
		}
	} else if _, ok := models.ParseCategory(in.Category); !ok {
		return apperr.NewFieldError("category", fmt.Sprintf("unknown category %q", in.Category))
	}

	// Validate status
	if in.Status != "" && !models.ValidStatuses[models.Status(in.Status)] {
		return apperr.NewFieldError("status", "status must be draft or published")
	}

	// Validate explicit slug
	if in.Slug != "" && len(in.Slug) > 120 {
		return apperr.NewFieldError("slug", "slug is too long")
	}

	return ValidatePlacements(in.Placements)
}

// ValidatePlacements checks container numbers, slot vocabulary and
// same-article slot collisions.
func ValidatePlacements(placements []models.PlacementInput) error {
	seen := make(map[int]bool, len(placements))
	selections := make([]SlotSelection, 0, len(placements))

	for _, p := range placements {
		container, enabled, slot := p.Container, p.Enabled, models.SlotName(strings.TrimSpace(p.Slot))
		field := fmt.Sprintf("placements[%d]", container)

		if container < 1 || container > models.ContainerCount {
			return apperr.NewFieldError("placements", fmt.Sprintf("container must be between 1 and %d", models.ContainerCount))
		}
		if seen[container] {
			return apperr.NewFieldError(field, fmt.Sprintf("container %d listed twice", container))
		}
		seen[container] = true

		if !enabled {
			continue
		}
		if slot == "" {
			return apperr.NewFieldError(field, fmt.Sprintf("container %d is enabled without a slot", container))
		}
		if !models.SlotAllowed(container, slot) {
			return apperr.NewFieldError(field, fmt.Sprintf("slot %q is not available for container %d", slot, container))
		}
		selections = append(selections, SlotSelection{Slot: slot, Enabled: true})
	}

	if HasSlotCollision(selections) {
		return apperr.NewValidationError("the same slot cannot be used by more than one container")
	}
	return nil
}

// NormalizeArticleIDs trims ids, drops blanks and duplicates, and keeps
// first-seen order.
func NormalizeArticleIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ValidateGroupInput checks a curated-group upsert payload and returns the
// parsed position and normalized ids.
func ValidateGroupInput(group models.GroupType, in models.GroupInput) (models.Position, []string, error) {
	size := group.Size()
	if size == 0 {
		return "", nil, apperr.NewNotFoundError(fmt.Sprintf("unknown group %q", group))
	}

	position := models.Position(strings.TrimSpace(in.Position))
	if !models.ValidPosition(position) {
		return "", nil, apperr.NewFieldError("position", "Invalid position")
	}

	ids := NormalizeArticleIDs(in.ArticleIDs)
	if len(ids) != size {
		return "", nil, apperr.NewFieldError("articleIds", fmt.Sprintf("Select exactly %d articles", size))
	}

	return position, ids, nil
}
