// Package layout turns the flat article set plus hero placements and
// curated-group configs into the ordered homepage render plan. Everything
// here is pure: no I/O, no clocks, no shared state.
package layout

import (
	"sort"

	"github.com/newsroom-api/internal/models"
)

// SlotMap maps a slot to the single article occupying it.
type SlotMap map[models.SlotName]*models.Article

// ResolveSlots picks, for one hero container, the article holding each
// slot. Articles are visited most recently saved first (updatedAt desc,
// then id asc), and the first claimant of a slot wins. Callers pass the
// published set.
func ResolveSlots(container int, articles []*models.Article) SlotMap {
	slots := make(SlotMap)
	if container < 1 || container > models.ContainerCount {
		return slots
	}

	for _, a := range byMostRecentlySaved(articles) {
		p := a.Placement(container)
		if !p.Enabled || p.Slot == "" {
			continue
		}
		if _, taken := slots[p.Slot]; !taken {
			slots[p.Slot] = a
		}
	}
	return slots
}

// ResolveAllSlots runs ResolveSlots for every container.
func ResolveAllSlots(articles []*models.Article) [models.ContainerCount]SlotMap {
	var all [models.ContainerCount]SlotMap
	for i := range all {
		all[i] = ResolveSlots(i+1, articles)
	}
	return all
}

// Heroes returns the containers with an occupant at slot, in the given
// container order.
func Heroes(slots [models.ContainerCount]SlotMap, slot models.SlotName, order ...int) []models.HeroContainer {
	var out []models.HeroContainer
	for _, idx := range order {
		if idx < 1 || idx > models.ContainerCount {
			continue
		}
		if a := slots[idx-1][slot]; a != nil {
			out = append(out, models.HeroContainer{Index: idx, Slot: slot, Article: a})
		}
	}
	return out
}

func byMostRecentlySaved(articles []*models.Article) []*models.Article {
	ordered := make([]*models.Article, 0, len(articles))
	for _, a := range articles {
		if a != nil {
			ordered = append(ordered, a)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
	return ordered
}

// Canonical filters to published articles with a slug and sorts them by
// effective date (publishedAt, else createdAt) newest first, ties by id.
func Canonical(articles []*models.Article) []*models.Article {
	out := make([]*models.Article, 0, len(articles))
	for _, a := range articles {
		if a != nil && a.IsPublished() && a.Slug != "" {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].EffectiveDate(), out[j].EffectiveDate()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
