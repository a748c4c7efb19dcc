package layout

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/newsroom-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func art(id string, cat models.Category, minutes int) *models.Article {
	at := t0.Add(time.Duration(minutes) * time.Minute)
	return &models.Article{
		ID:          id,
		Slug:        "s-" + id,
		Title:       "T " + id,
		Category:    cat,
		Status:      models.StatusPublished,
		PublishedAt: &at,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func pin(a *models.Article, container int, slot models.SlotName) *models.Article {
	a.SetPlacement(container, models.Placement{Enabled: true, Slot: slot})
	return a
}

func kinds(plan models.RenderPlan) []string {
	out := make([]string, 0, len(plan.Sections))
	for _, s := range plan.Sections {
		label := string(s.Kind)
		switch s.Kind {
		case models.SectionHeroContainer:
			label = fmt.Sprintf("hero%d@%s", s.Container, s.Slot)
		case models.SectionCategoryBlock:
			label = "cat:" + string(s.Category)
		case models.SectionCuratedGroup:
			label = "group:" + string(s.Group) + "@" + string(s.Position)
		}
		out = append(out, label)
	}
	return out
}

func TestResolveSlotsMostRecentlySavedWins(t *testing.T) {
	x := pin(art("x", models.CategoryWorld, 0), 1, models.SlotAfterTopStories)
	y := pin(art("y", models.CategoryWorld, 1), 1, models.SlotAfterTopStories)
	// y was published later but x was saved last
	x.UpdatedAt = t0.Add(time.Hour)

	for _, input := range [][]*models.Article{{x, y}, {y, x}} {
		slots := ResolveSlots(1, input)
		require.Contains(t, slots, models.SlotAfterTopStories)
		assert.Equal(t, "x", slots[models.SlotAfterTopStories].ID)
	}

	// ties on updatedAt break by id
	y.UpdatedAt = x.UpdatedAt
	assert.Equal(t, "x", ResolveSlots(1, []*models.Article{y, x})[models.SlotAfterTopStories].ID)
}

func TestResolveSlotsIgnoresDisabledAndOtherContainers(t *testing.T) {
	a := pin(art("a", models.CategoryWorld, 0), 2, models.SlotAfterInstaStrip)
	b := art("b", models.CategoryWorld, 1)
	b.Placements[0] = models.Placement{Enabled: false, Slot: models.SlotAfterInstaStrip}

	assert.Empty(t, ResolveSlots(1, []*models.Article{a, b}))
	assert.Equal(t, "a", ResolveSlots(2, []*models.Article{a, b})[models.SlotAfterInstaStrip].ID)
	assert.Empty(t, ResolveSlots(0, []*models.Article{a}))
	assert.Empty(t, ResolveSlots(4, []*models.Article{a}))
}

func TestResolveCuratedGroup(t *testing.T) {
	pub := []*models.Article{
		art("a", models.CategoryWorld, 0),
		art("b", models.CategoryWorld, 1),
		art("c", models.CategoryWorld, 2),
		art("d", models.CategoryWorld, 3),
		art("e", models.CategoryWorld, 4),
	}
	draft := art("f", models.CategoryWorld, 5)
	draft.Status = models.StatusDraft
	withDraft := append(append([]*models.Article{}, pub...), draft)

	club := &models.CuratedGroupConfig{Type: models.GroupClub, ArticleIDs: []string{"e", "a", "c", "b", "d"}}

	got := ResolveCuratedGroup(club, pub)
	require.Len(t, got, 5)
	ids := make([]string, 0, 5)
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"e", "a", "c", "b", "d"}, ids, "configured order is kept")

	tests := []struct {
		name string
		cfg  *models.CuratedGroupConfig
	}{
		{"nil config", nil},
		{"deleted article", &models.CuratedGroupConfig{Type: models.GroupClub, ArticleIDs: []string{"a", "b", "c", "d", "gone"}}},
		{"unpublished article", &models.CuratedGroupConfig{Type: models.GroupClub, ArticleIDs: []string{"a", "b", "c", "d", "f"}}},
		{"corrupted count", &models.CuratedGroupConfig{Type: models.GroupDuo, ArticleIDs: []string{"a", "b", "c"}}},
		{"unknown type", &models.CuratedGroupConfig{Type: "trio", ArticleIDs: []string{"a", "b", "c"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ResolveCuratedGroup(tt.cfg, withDraft))
		})
	}
}

func TestCanonical(t *testing.T) {
	a := art("a", models.CategoryWorld, 10)
	b := art("b", models.CategoryWorld, 0)
	b.PublishedAt = nil
	b.CreatedAt = t0.Add(20 * time.Minute)
	noSlug := art("c", models.CategoryWorld, 30)
	noSlug.Slug = ""
	draft := art("d", models.CategoryWorld, 40)
	draft.Status = models.StatusDraft

	got := Canonical([]*models.Article{a, noSlug, draft, b, nil})
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID, "createdAt stands in for a missing publishedAt")
	assert.Equal(t, "a", got[1].ID)
}

func TestComposeEmpty(t *testing.T) {
	plan := Build(nil, nil)
	assert.True(t, plan.Empty)
	assert.Empty(t, plan.Sections)
	assert.NotNil(t, plan.Sections)
}

func TestComposeOrder(t *testing.T) {
	world := art("w1", models.CategoryWorld, 50)
	world.Ticker = true
	world.Featured = true
	india := []*models.Article{
		art("i1", models.CategoryIndia, 40),
		art("i2", models.CategoryIndia, 39),
		art("i3", models.CategoryIndia, 38),
		art("i4", models.CategoryIndia, 37),
		art("i5", models.CategoryIndia, 36),
	}
	sports := art("s1", models.CategorySports, 30)
	sports2 := art("s2", models.CategorySports, 29)

	pin(india[0], 1, models.SlotAfterIndiaSection)
	pin(india[1], 2, models.SlotAfterIndiaSection)
	pin(india[2], 3, models.SlotAfterIndiaSection)
	pin(world, 2, models.SlotAfterInstaStrip)
	pin(sports, 1, models.SlotAfterTopStories)

	articles := append([]*models.Article{world, sports, sports2}, india...)
	configs := []*models.CuratedGroupConfig{
		{Type: models.GroupClub, Position: models.PositionAfterTopStories, ArticleIDs: []string{"i1", "i2", "i3", "i4", "i5"}},
		{Type: models.GroupSpotlight, Position: models.PositionAfterTopStories, ArticleIDs: []string{"w1", "s1", "s2"}},
		{Type: models.GroupDuo, Position: "after_india_section", ArticleIDs: []string{"s1", "s2"}},
	}

	plan := Build(articles, configs)
	assert.False(t, plan.Empty)

	want := []string{
		"ticker",
		"insta_strip",
		"hero2@after_insta_strip",
		"top_stories",
		"group:spotlight@after_top_stories",
		"group:club@after_top_stories",
		"hero1@after_top_stories",
		"cat:World",
		"cat:India",
		"hero2@after_india_section",
		"hero3@after_india_section",
		"hero1@after_india_section",
		"group:duo@after_india_section",
		"cat:Sports",
	}
	if diff := cmp.Diff(want, kinds(plan)); diff != "" {
		t.Fatalf("section order mismatch (-want +got):\n%s", diff)
	}

	indiaBlock := plan.Sections[8]
	require.NotNil(t, indiaBlock.Main)
	assert.Equal(t, "i1", indiaBlock.Main.ID)
	require.Len(t, indiaBlock.Items, 3, "three side cards")
	assert.Equal(t, "i2", indiaBlock.Items[0].ID)

	for _, s := range plan.Sections {
		if s.Kind == models.SectionCategoryBlock {
			assert.NotNil(t, s.Main, "category block %s has no main card", s.Category)
			continue
		}
		assert.NotEmpty(t, s.Items, "section %s has no items", s.Kind)
	}
}

func TestComposeGroupsAfterCategoryOrder(t *testing.T) {
	var articles []*models.Article
	for i := 0; i < 5; i++ {
		articles = append(articles, art(fmt.Sprintf("h%d", i), models.CategoryHealth, i))
	}
	ids := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("h%d", i)
		}
		return out
	}
	pos := models.SectionPosition(models.CategoryHealth)
	configs := []*models.CuratedGroupConfig{
		{Type: models.GroupClub, Position: pos, ArticleIDs: ids(5)},
		{Type: models.GroupSpotlight, Position: pos, ArticleIDs: ids(3)},
		{Type: models.GroupDuo, Position: pos, ArticleIDs: ids(2)},
	}

	got := kinds(Build(articles, configs))
	want := []string{
		"insta_strip",
		"cat:Health",
		"group:duo@after_health_section",
		"group:spotlight@after_health_section",
		"group:club@after_health_section",
	}
	assert.Equal(t, want, got)
}

func TestComposeSkipsGroupsAfterEmptyCategory(t *testing.T) {
	articles := []*models.Article{art("a", models.CategoryWorld, 0), art("b", models.CategoryWorld, 1)}
	configs := []*models.CuratedGroupConfig{
		{Type: models.GroupDuo, Position: models.SectionPosition(models.CategoryBusiness), ArticleIDs: []string{"a", "b"}},
	}
	assert.Equal(t, []string{"insta_strip", "cat:World"}, kinds(Build(articles, configs)))
}

func TestComposeDropsStaleGroup(t *testing.T) {
	articles := []*models.Article{art("a", models.CategoryWorld, 0), art("b", models.CategoryWorld, 1)}
	configs := []*models.CuratedGroupConfig{
		{Type: models.GroupDuo, Position: models.PositionAfterTopStories, ArticleIDs: []string{"a", "deleted"}},
	}
	for _, k := range kinds(Build(articles, configs)) {
		assert.NotContains(t, k, "group:")
	}
}

func TestComposeCaps(t *testing.T) {
	var articles []*models.Article
	for i := 0; i < 20; i++ {
		a := art(fmt.Sprintf("a%02d", i), models.CategoryTechnology, i)
		a.Ticker = true
		a.Featured = true
		articles = append(articles, a)
	}
	plan := Build(articles, nil)

	sizes := map[models.SectionKind]int{}
	for _, s := range plan.Sections {
		sizes[s.Kind] = len(s.Items)
	}
	assert.Equal(t, TickerLimit, sizes[models.SectionTicker])
	assert.Equal(t, InstaStripLimit, sizes[models.SectionInstaStrip])
	assert.Equal(t, TopStoriesLimit, sizes[models.SectionTopStories])
	assert.Equal(t, CategorySideCards, sizes[models.SectionCategoryBlock])

	// newest first
	assert.Equal(t, "a19", plan.Sections[0].Items[0].ID)
}

func TestComposeCategoryBlockSplitsMainAndSideCards(t *testing.T) {
	var articles []*models.Article
	for i := 0; i < 6; i++ {
		articles = append(articles, art(fmt.Sprintf("s%d", i), models.CategorySports, i))
	}

	var block *models.Section
	for _, s := range Build(articles, nil).Sections {
		if s.Kind == models.SectionCategoryBlock {
			block = &s
			break
		}
	}
	require.NotNil(t, block)
	require.NotNil(t, block.Main)
	assert.Equal(t, "s5", block.Main.ID)

	ids := make([]string, 0, len(block.Items))
	for _, c := range block.Items {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"s4", "s3", "s2"}, ids)

	// a lone article is the main card with no side cards
	single := Build([]*models.Article{art("only", models.CategoryWorld, 0)}, nil)
	for _, s := range single.Sections {
		if s.Kind == models.SectionCategoryBlock {
			assert.Equal(t, "only", s.Main.ID)
			assert.Empty(t, s.Items)
			assert.NotNil(t, s.Items)
		}
	}
}

func TestComposeDeterministic(t *testing.T) {
	articles := []*models.Article{
		pin(art("a", models.CategoryIndia, 0), 1, models.SlotAfterIndiaSection),
		pin(art("b", models.CategoryIndia, 0), 1, models.SlotAfterIndiaSection),
		art("c", models.CategoryWorld, 0),
	}
	configs := []*models.CuratedGroupConfig{
		{Type: models.GroupDuo, Position: models.PositionAfterTopStories, ArticleIDs: []string{"c", "a"}},
	}

	first, err := json.Marshal(Build(articles, configs))
	require.NoError(t, err)
	reversed := []*models.Article{articles[2], articles[1], articles[0]}
	second, err := json.Marshal(Build(reversed, configs))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestToCardProxiesCover(t *testing.T) {
	a := art("a", models.CategoryWorld, 0)
	a.CoverImage = "https://drive.google.com/file/d/XYZ/view"
	card := ToCard(a)
	assert.Equal(t, "/v1/image?url=https%3A%2F%2Fdrive.google.com%2Fuc%3Fexport%3Dview%26id%3DXYZ", card.CoverImage)
}
