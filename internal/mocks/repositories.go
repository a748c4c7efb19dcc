package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/internal/repository"
)

// Verify interface compliance
var (
	_ repository.ArticleRepository = (*MockArticleRepository)(nil)
	_ repository.GroupRepository   = (*MockGroupRepository)(nil)
)

// MockArticleRepository is an in-memory ArticleRepository. Stored
// articles are copies, so callers cannot mutate them behind its back.
type MockArticleRepository struct {
	mu          sync.Mutex
	Articles    map[string]*models.Article
	InsertError error
	FindError   error
	CreateCalls int
	UpdateCalls int
}

func NewMockArticleRepository() *MockArticleRepository {
	return &MockArticleRepository{
		Articles: make(map[string]*models.Article),
	}
}

// Seed stores articles directly, bypassing slot release.
func (m *MockArticleRepository) Seed(articles ...*models.Article) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range articles {
		m.Articles[a.ID] = a.Clone()
	}
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.InsertError != nil {
		return m.InsertError
	}
	if m.slugTaken(article.Slug, article.ID) {
		return repository.ErrDuplicateSlug
	}
	m.release(article)
	m.Articles[article.ID] = article.Clone()
	return nil
}

func (m *MockArticleRepository) Update(ctx context.Context, article *models.Article) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.InsertError != nil {
		return false, m.InsertError
	}
	if _, ok := m.Articles[article.ID]; !ok {
		return false, nil
	}
	if m.slugTaken(article.Slug, article.ID) {
		return false, repository.ErrDuplicateSlug
	}
	m.release(article)
	m.Articles[article.ID] = article.Clone()
	return true, nil
}

func (m *MockArticleRepository) release(article *models.Article) {
	for i := 1; i <= models.ContainerCount; i++ {
		p := article.Placement(i)
		if !p.Enabled || p.Slot == "" {
			continue
		}
		m.clear(i, p.Slot, article.ID)
	}
}

func (m *MockArticleRepository) clear(container int, slot models.SlotName, exceptID string) int64 {
	var n int64
	for id, other := range m.Articles {
		if id == exceptID || !other.Occupies(container, slot) {
			continue
		}
		other.SetPlacement(container, models.Placement{})
		n++
	}
	return n
}

func (m *MockArticleRepository) slugTaken(slug, exceptID string) bool {
	for id, a := range m.Articles {
		if id != exceptID && a.Slug == slug {
			return true
		}
	}
	return false
}

func (m *MockArticleRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Articles[id]
	delete(m.Articles, id)
	return ok, nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindError != nil {
		return nil, m.FindError
	}
	return m.Articles[id].Clone(), nil
}

func (m *MockArticleRepository) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindError != nil {
		return nil, m.FindError
	}
	for _, a := range m.Articles {
		if a.Slug == slug {
			return a.Clone(), nil
		}
	}
	return nil, nil
}

func (m *MockArticleRepository) SlugExists(ctx context.Context, slug, exceptID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slugTaken(slug, exceptID), nil
}

func (m *MockArticleRepository) FindPublished(ctx context.Context) ([]*models.Article, error) {
	return m.filter(func(a *models.Article) bool {
		return a.IsPublished() && a.Slug != ""
	}, byUpdated, 0)
}

func (m *MockArticleRepository) ListAll(ctx context.Context) ([]*models.Article, error) {
	return m.filter(func(*models.Article) bool { return true }, func(a, b *models.Article) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	}, 0)
}

func (m *MockArticleRepository) ListByCategory(ctx context.Context, category models.Category, publishedOnly bool) ([]*models.Article, error) {
	return m.filter(func(a *models.Article) bool {
		if a.Category != category {
			return false
		}
		return !publishedOnly || (a.IsPublished() && a.Slug != "")
	}, byEffectiveDate, 0)
}

func (m *MockArticleRepository) Search(ctx context.Context, q repository.SearchQuery) ([]*models.Article, error) {
	needle := strings.ToLower(q.Text)
	return m.filter(func(a *models.Article) bool {
		if !q.IncludeDrafts && !a.IsPublished() {
			return false
		}
		hay := strings.ToLower(strings.Join([]string{
			a.Title, a.Summary, a.Body, string(a.Category), strings.Join(a.Tags, " "),
		}, "\n"))
		return strings.Contains(hay, needle)
	}, byEffectiveDate, q.Limit)
}

func (m *MockArticleRepository) Related(ctx context.Context, excludeSlug string, limit int) ([]*models.Article, error) {
	return m.filter(func(a *models.Article) bool {
		return a.IsPublished() && a.Slug != "" && a.Slug != excludeSlug
	}, byEffectiveDate, limit)
}

func (m *MockArticleRepository) ClearSlotOccupants(ctx context.Context, container int, slot models.SlotName, exceptID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clear(container, slot, exceptID), nil
}

func (m *MockArticleRepository) Count(ctx context.Context, publishedOnly bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !publishedOnly {
		return len(m.Articles), nil
	}
	n := 0
	for _, a := range m.Articles {
		if a.IsPublished() {
			n++
		}
	}
	return n, nil
}

func (m *MockArticleRepository) filter(keep func(*models.Article) bool, less func(a, b *models.Article) bool, limit int) ([]*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindError != nil {
		return nil, m.FindError
	}
	out := make([]*models.Article, 0, len(m.Articles))
	for _, a := range m.Articles {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func byUpdated(a, b *models.Article) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID < b.ID
}

func byEffectiveDate(a, b *models.Article) bool {
	da, db := a.EffectiveDate(), b.EffectiveDate()
	if !da.Equal(db) {
		return da.After(db)
	}
	return a.ID < b.ID
}

// MockGroupRepository is an in-memory GroupRepository
type MockGroupRepository struct {
	mu          sync.Mutex
	Groups      map[models.GroupType]*models.CuratedGroupConfig
	UpsertError error
}

func NewMockGroupRepository() *MockGroupRepository {
	return &MockGroupRepository{
		Groups: make(map[models.GroupType]*models.CuratedGroupConfig),
	}
}

func (m *MockGroupRepository) Get(ctx context.Context, group models.GroupType) (*models.CuratedGroupConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.Groups[group]
	if !ok {
		return nil, nil
	}
	c := *cfg
	c.ArticleIDs = append([]string(nil), cfg.ArticleIDs...)
	return &c, nil
}

func (m *MockGroupRepository) List(ctx context.Context) ([]*models.CuratedGroupConfig, error) {
	var out []*models.CuratedGroupConfig
	for _, g := range models.GroupTypes {
		cfg, _ := m.Get(ctx, g)
		if cfg != nil {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (m *MockGroupRepository) Upsert(ctx context.Context, cfg *models.CuratedGroupConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertError != nil {
		return m.UpsertError
	}
	c := *cfg
	c.ArticleIDs = append([]string(nil), cfg.ArticleIDs...)
	m.Groups[cfg.Type] = &c
	return nil
}

func (m *MockGroupRepository) Delete(ctx context.Context, group models.GroupType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Groups[group]
	delete(m.Groups, group)
	return ok, nil
}
