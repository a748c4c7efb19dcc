package benchmark

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/newsroom-api/internal/content"
	"github.com/newsroom-api/internal/layout"
	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/internal/socialcard"
	"github.com/rs/zerolog"
)

func fixtureArticles(n int) []*models.Article {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	slots := []models.SlotName{models.SlotAfterInstaStrip, models.SlotAfterTopStories, models.SlotAfterIndiaSection}

	articles := make([]*models.Article, 0, n)
	for i := 0; i < n; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		a := &models.Article{
			ID:          fmt.Sprintf("article-%05d", i),
			Slug:        fmt.Sprintf("story-%05d", i),
			Title:       fmt.Sprintf("Story number %d", i),
			Summary:     "Summary",
			Category:    models.Categories[i%len(models.Categories)],
			Featured:    i%5 == 0,
			Ticker:      i%3 == 0,
			Status:      models.StatusPublished,
			PublishedAt: &at,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		if i%50 == 0 {
			a.SetPlacement(i%models.ContainerCount+1, models.Placement{Enabled: true, Slot: slots[i%len(slots)]})
		}
		articles = append(articles, a)
	}
	return articles
}

// BenchmarkBuildHomepage benchmarks the full layout pipeline
func BenchmarkBuildHomepage(b *testing.B) {
	articles := fixtureArticles(2000)
	configs := []*models.CuratedGroupConfig{
		{Type: models.GroupClub, Position: models.SectionPosition(models.CategoryBusiness),
			ArticleIDs: []string{"article-00010", "article-00011", "article-00012", "article-00013", "article-00014"}},
		{Type: models.GroupSpotlight, Position: models.PositionAfterTopStories,
			ArticleIDs: []string{"article-00020", "article-00021", "article-00022"}},
		{Type: models.GroupDuo, Position: models.SectionPosition(models.CategoryIndia),
			ArticleIDs: []string{"article-00030", "article-00031"}},
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		plan := layout.Build(articles, configs)
		if plan.Empty {
			b.Fatal("Expected a non-empty plan")
		}
	}
}

// BenchmarkWrapTitle benchmarks headline wrapping
func BenchmarkWrapTitle(b *testing.B) {
	title := socialcard.NormalizeTitle("  Monsoon session of parliament opens with heated debate over new budget proposals  ")

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		socialcard.WrapTitle(title, socialcard.MaxLines)
	}
}

// BenchmarkParseBlocks benchmarks body parsing on a long article
func BenchmarkParseBlocks(b *testing.B) {
	body := ""
	for i := 0; i < 200; i++ {
		body += "## Heading\n\nA paragraph with ==highlight== and !!alert!! text.\n\n- one\n- two\n\n>quote: said someone\n\n"
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		content.ParseBlocks(body)
	}
}

// BenchmarkRenderCard benchmarks compositing a preview-size card
func BenchmarkRenderCard(b *testing.B) {
	fonts, err := socialcard.NewFontLoader("", "", nil, zerolog.Nop()).Load(context.Background())
	if err != nil {
		b.Fatalf("Failed to load fonts: %v", err)
	}

	cover := image.NewRGBA(image.Rect(0, 0, 1200, 800))
	for y := 0; y < 800; y++ {
		for x := 0; x < 1200; x++ {
			cover.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	in := socialcard.Input{
		Size:  socialcard.SizePreview,
		Cover: cover,
		Lines: socialcard.WrapTitle(socialcard.NormalizeTitle("Markets rally as inflation cools"), socialcard.MaxLines),
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := socialcard.Render(in, fonts); err != nil {
			b.Fatalf("Render failed: %v", err)
		}
	}
}
