package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/newsroom-api/internal/content"
	"github.com/newsroom-api/internal/layout"
	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/internal/repository"
	"github.com/newsroom-api/internal/validation"
	"github.com/newsroom-api/pkg/apperr"
	"github.com/rs/zerolog"
)

const (
	// RelatedLimit is how many other articles an article page links to.
	RelatedLimit = 4
	// SearchLimit caps search results.
	SearchLimit = 50
	// MinQueryLength is the shortest query that is searched.
	MinQueryLength = 2

	slugAttempts = 3
)

// cardInvalidator drops cached renders of an article.
type cardInvalidator interface {
	Invalidate(ctx context.Context, articleID string)
}

type articleService struct {
	repo   repository.ArticleRepository
	cards  cardInvalidator
	locks  *slotLocks
	policy *bluemonday.Policy
	now    func() time.Time
	newID  func() string
	log    zerolog.Logger
}

func newArticleService(repo repository.ArticleRepository, cards cardInvalidator, now func() time.Time, newID func() string, log zerolog.Logger) *articleService {
	return &articleService{
		repo:   repo,
		cards:  cards,
		locks:  newSlotLocks(),
		policy: bluemonday.StrictPolicy(),
		now:    now,
		newID:  newID,
		log:    log.With().Str("component", "article_service").Logger(),
	}
}

// Create validates and stores a new article. A slug that is already taken
// gets the first six characters of the new id appended.
func (s *articleService) Create(ctx context.Context, in *models.ArticleInput) (*models.Article, error) {
	in = s.clean(in)
	if err := validation.ValidateArticleInput(in, validation.ModeCreate); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	article := &models.Article{
		ID:        s.newID(),
		CreatedAt: now,
	}
	s.apply(article, in, now)

	base := s.baseSlug(in, article.ID)
	if err := s.save(ctx, article, base, true); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("article_id", article.ID).
		Str("slug", article.Slug).
		Str("status", string(article.Status)).
		Msg("Article created")
	return article, nil
}

// Update replaces an article's editable fields.
func (s *articleService) Update(ctx context.Context, id string, in *models.ArticleInput) (*models.Article, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.NewFieldError("id", "Missing id")
	}
	in = s.clean(in)
	if err := validation.ValidateArticleInput(in, validation.ModeUpdate); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Store("get article", err)
	}
	if existing == nil {
		return nil, apperr.NewNotFoundError("Article not found")
	}

	now := s.now().UTC()
	article := existing.Clone()
	s.apply(article, in, now)
	if article.IsPublished() && existing.PublishedAt != nil {
		article.PublishedAt = existing.PublishedAt
	}

	if err := s.save(ctx, article, s.baseSlug(in, article.ID), false); err != nil {
		return nil, err
	}
	s.cards.Invalidate(ctx, article.ID)

	s.log.Info().
		Str("article_id", article.ID).
		Str("slug", article.Slug).
		Msg("Article updated")
	return article, nil
}

// save claims a free slug and writes the article while holding the locks
// of every hero slot it takes.
func (s *articleService) save(ctx context.Context, article *models.Article, base string, create bool) error {
	unlock := s.locks.lock(claimedSlots(article))
	defer unlock()

	slug, err := s.freeSlug(ctx, base, article.ID)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < slugAttempts; attempt++ {
		article.Slug = slug

		if create {
			err = s.repo.Create(ctx, article)
		} else {
			var found bool
			found, err = s.repo.Update(ctx, article)
			if err == nil && !found {
				return apperr.NewNotFoundError("Article not found")
			}
		}
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateSlug) {
			return apperr.Store("save article", err)
		}

		// lost a race for the slug; pick a fresh suffix
		slug = base + "-" + shortID(s.newID())
		s.log.Warn().Str("slug", article.Slug).Str("retry_slug", slug).Msg("Slug taken concurrently, retrying")
	}
	return apperr.NewConflictError(fmt.Sprintf("could not claim a unique slug for %q", base))
}

func (s *articleService) freeSlug(ctx context.Context, base, id string) (string, error) {
	taken, err := s.repo.SlugExists(ctx, base, id)
	if err != nil {
		return "", apperr.Store("check slug", err)
	}
	if !taken {
		return base, nil
	}
	return base + "-" + shortID(id), nil
}

func (s *articleService) baseSlug(in *models.ArticleInput, id string) string {
	source := in.Slug
	if source == "" {
		source = in.Title
	}
	slug := content.Slugify(source)
	if !validation.ValidSlug(slug) {
		slug = "article-" + shortID(id)
	}
	return slug
}

// clean trims and strips markup from every text field.
func (s *articleService) clean(in *models.ArticleInput) *models.ArticleInput {
	if in == nil {
		in = &models.ArticleInput{}
	}
	out := *in
	out.Title = s.sanitize(in.Title)
	out.Summary = s.sanitize(in.Summary)
	out.Body = s.sanitize(in.Body)
	out.Category = strings.TrimSpace(in.Category)
	out.Slug = strings.TrimSpace(in.Slug)
	out.Status = strings.ToLower(strings.TrimSpace(in.Status))
	out.CoverImage = strings.TrimSpace(in.CoverImage)

	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		tags = append(tags, s.sanitize(t))
	}
	out.Tags = models.NormalizeTags(tags)
	return &out
}

func (s *articleService) sanitize(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

// apply copies validated input onto article.
func (s *articleService) apply(a *models.Article, in *models.ArticleInput, now time.Time) {
	a.Title = in.Title
	a.Summary = in.Summary
	a.Body = in.Body
	a.Tags = in.Tags
	a.CoverImage = content.NormalizeImageURL(in.CoverImage)
	a.Featured = in.Featured
	a.Breaking = in.Breaking
	a.Ticker = in.Ticker
	a.UpdatedAt = now

	a.Category = models.DefaultCategory
	if c, ok := models.ParseCategory(in.Category); ok {
		a.Category = c
	}

	a.Status = models.StatusDraft
	if models.Status(in.Status) == models.StatusPublished {
		a.Status = models.StatusPublished
	}
	a.PublishedAt = nil
	if a.IsPublished() {
		t := now
		a.PublishedAt = &t
	}

	var placements [models.ContainerCount]models.Placement
	a.Placements = placements
	for _, p := range in.Placements {
		a.SetPlacement(p.Container, models.Placement{
			Enabled: p.Enabled,
			Slot:    models.SlotName(strings.TrimSpace(p.Slot)),
		})
	}
}

func (s *articleService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.NewFieldError("id", "Missing id")
	}
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Store("delete article", err)
	}
	if !found {
		return apperr.NewNotFoundError("Article not found")
	}
	s.cards.Invalidate(ctx, id)

	s.log.Info().Str("article_id", id).Msg("Article deleted")
	return nil
}

func (s *articleService) Get(ctx context.Context, id string) (*models.Article, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.NewFieldError("id", "Missing id")
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Store("get article", err)
	}
	if a == nil {
		return nil, apperr.NewNotFoundError("Article not found")
	}
	return a, nil
}

func (s *articleService) List(ctx context.Context) ([]*models.Article, error) {
	articles, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperr.Store("list articles", err)
	}
	return articles, nil
}

// View returns a published article with its parsed body and related links.
func (s *articleService) View(ctx context.Context, slug string) (*models.ArticleView, error) {
	slug = strings.TrimSpace(slug)
	a, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, apperr.Store("get article", err)
	}
	if a == nil || !a.IsPublished() {
		return nil, apperr.NewNotFoundError("Article not found")
	}

	related, err := s.repo.Related(ctx, a.Slug, RelatedLimit)
	if err != nil {
		return nil, apperr.Store("related articles", err)
	}

	return &models.ArticleView{
		Article:     a,
		Blocks:      content.ParseBlocks(a.Body),
		ReadingTime: content.ReadingTime(a.Title, a.Summary, a.Body),
		Related:     cards(related),
	}, nil
}

func (s *articleService) ByCategory(ctx context.Context, slug string) (*models.CategoryListing, error) {
	cat, ok := models.ParseCategory(strings.TrimSpace(slug))
	if !ok {
		return nil, apperr.NewNotFoundError("Category not found")
	}
	articles, err := s.repo.ListByCategory(ctx, cat, true)
	if err != nil {
		return nil, apperr.Store("list category", err)
	}
	return &models.CategoryListing{Category: cat, Articles: cards(articles)}, nil
}

func (s *articleService) Search(ctx context.Context, query string, includeDrafts bool) (*models.SearchResult, error) {
	q := strings.Join(strings.Fields(query), " ")
	result := &models.SearchResult{Query: q, Articles: []models.Card{}}
	if utf8.RuneCountInString(q) < MinQueryLength {
		result.Message = "Query too short"
		return result, nil
	}

	articles, err := s.repo.Search(ctx, repository.SearchQuery{
		Text:          q,
		IncludeDrafts: includeDrafts,
		Limit:         SearchLimit,
	})
	if err != nil {
		return nil, apperr.Store("search articles", err)
	}
	result.Articles = cards(articles)
	return result, nil
}

func cards(articles []*models.Article) []models.Card {
	out := make([]models.Card, 0, len(articles))
	for _, a := range articles {
		out = append(out, layout.ToCard(a))
	}
	return out
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 6 {
		return id[:6]
	}
	return id
}

// slotKey names one hero slot of one container
type slotKey struct {
	container int
	slot      models.SlotName
}

func claimedSlots(a *models.Article) []slotKey {
	var keys []slotKey
	for i := 1; i <= models.ContainerCount; i++ {
		p := a.Placement(i)
		if p.Enabled && p.Slot != "" {
			keys = append(keys, slotKey{container: i, slot: p.Slot})
		}
	}
	return keys
}

// slotLocks serializes writes that claim the same hero slot.
type slotLocks struct {
	mu    sync.Mutex
	locks map[slotKey]*sync.Mutex
}

func newSlotLocks() *slotLocks {
	return &slotLocks{locks: make(map[slotKey]*sync.Mutex)}
}

// lock acquires keys in a fixed order and returns the release func.
func (l *slotLocks) lock(keys []slotKey) func() {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].container != keys[j].container {
			return keys[i].container < keys[j].container
		}
		return keys[i].slot < keys[j].slot
	})

	held := make([]*sync.Mutex, 0, len(keys))
	for _, k := range keys {
		l.mu.Lock()
		m, ok := l.locks[k]
		if !ok {
			m = &sync.Mutex{}
			l.locks[k] = m
		}
		l.mu.Unlock()

		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
