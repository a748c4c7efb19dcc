package layout

import (
	"github.com/newsroom-api/internal/content"
	"github.com/newsroom-api/internal/models"
)

// Section caps
const (
	TickerLimit       = 12
	InstaStripLimit   = 14
	TopStoriesLimit   = 4
	CategorySideCards = 3
)

var (
	// after_top_stories order: groups first, then heroes
	topStoriesGroupOrder = []models.GroupType{models.GroupSpotlight, models.GroupDuo, models.GroupClub}
	// after every category block
	categoryGroupOrder = []models.GroupType{models.GroupDuo, models.GroupSpotlight, models.GroupClub}
	// after the India block the page shows containers 2 and 3 before 1
	indiaHeroOrder = []int{2, 3, 1}
	defaultOrder   = []int{1, 2, 3}
)

// Build runs the whole pipeline: canonical ordering, slot resolution,
// group resolution and composition.
func Build(articles []*models.Article, configs []*models.CuratedGroupConfig) models.RenderPlan {
	published := Canonical(articles)
	return Compose(published, ResolveAllSlots(published), ResolveGroups(configs, published))
}

// Compose lays out the homepage. It is deterministic: equal inputs give
// equal plans.
func Compose(articles []*models.Article, slots [models.ContainerCount]SlotMap, groups []GroupResult) models.RenderPlan {
	published := Canonical(articles)
	plan := models.RenderPlan{Sections: make([]models.Section, 0)}
	if len(published) == 0 {
		plan.Empty = true
		return plan
	}

	byGroup := make(map[models.GroupType]GroupResult, len(groups))
	for _, g := range groups {
		if len(g.Articles) > 0 {
			byGroup[g.Type] = g
		}
	}

	add := func(s models.Section) {
		if len(s.Items) > 0 || s.Main != nil {
			plan.Sections = append(plan.Sections, s)
		}
	}
	addHeroes := func(slot models.SlotName, order []int) {
		for _, h := range Heroes(slots, slot, order...) {
			add(models.Section{
				Kind:      models.SectionHeroContainer,
				Container: h.Index,
				Slot:      h.Slot,
				Items:     []models.Card{ToCard(h.Article)},
			})
		}
	}
	addGroups := func(position models.Position, order []models.GroupType) {
		for _, gt := range order {
			g, ok := byGroup[gt]
			if !ok || g.Position != position {
				continue
			}
			add(models.Section{
				Kind:     models.SectionCuratedGroup,
				Group:    gt,
				Position: position,
				Items:    toCards(g.Articles),
			})
		}
	}

	add(models.Section{
		Kind:  models.SectionTicker,
		Items: toCards(take(filter(published, func(a *models.Article) bool { return a.Ticker }), TickerLimit)),
	})
	add(models.Section{
		Kind:  models.SectionInstaStrip,
		Items: toCards(take(published, InstaStripLimit)),
	})
	addHeroes(models.SlotAfterInstaStrip, defaultOrder)

	add(models.Section{
		Kind:  models.SectionTopStories,
		Items: toCards(take(filter(published, func(a *models.Article) bool { return a.Featured }), TopStoriesLimit)),
	})
	addGroups(models.PositionAfterTopStories, topStoriesGroupOrder)
	addHeroes(models.SlotAfterTopStories, defaultOrder)

	for _, cat := range models.Categories {
		items := filter(published, func(a *models.Article) bool { return a.Category == cat })
		// an empty category drops its block and everything pinned after it
		if len(items) == 0 {
			continue
		}

		main := ToCard(items[0])
		add(models.Section{
			Kind:     models.SectionCategoryBlock,
			Category: cat,
			Main:     &main,
			Items:    toCards(take(items[1:], CategorySideCards)),
		})

		if cat == models.CategoryIndia {
			addHeroes(models.SlotAfterIndiaSection, indiaHeroOrder)
		}
		addGroups(models.SectionPosition(cat), categoryGroupOrder)
	}

	return plan
}

// ToCard projects an article to the fields a section renders. Cover
// images are routed through the image proxy.
func ToCard(a *models.Article) models.Card {
	return models.Card{
		ID:         a.ID,
		Slug:       a.Slug,
		Title:      a.Title,
		Summary:    a.Summary,
		Category:   a.Category,
		CoverImage: content.ProxiedImageSrc(a.CoverImage),
		Breaking:   a.Breaking,
		Featured:   a.Featured,
		Date:       a.EffectiveDate(),
	}
}

func toCards(articles []*models.Article) []models.Card {
	cards := make([]models.Card, 0, len(articles))
	for _, a := range articles {
		cards = append(cards, ToCard(a))
	}
	return cards
}

func filter(articles []*models.Article, keep func(*models.Article) bool) []*models.Article {
	out := make([]*models.Article, 0)
	for _, a := range articles {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func take(articles []*models.Article, n int) []*models.Article {
	if len(articles) > n {
		return articles[:n]
	}
	return articles
}
