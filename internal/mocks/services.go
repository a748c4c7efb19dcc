package mocks

import (
	"context"
	"sync"

	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/internal/service"
	"github.com/newsroom-api/internal/socialcard"
	"github.com/newsroom-api/pkg/apperr"
)

// Verify interface compliance
var (
	_ service.ArticleService  = (*MockArticleService)(nil)
	_ service.GroupService    = (*MockGroupService)(nil)
	_ service.HomepageService = (*MockHomepageService)(nil)
	_ service.MediaService    = (*MockMediaService)(nil)
	_ service.StatsService    = (*MockStatsService)(nil)
)

// MockArticleService is a mock implementation of ArticleService. Unset
// funcs return NotFound for lookups and echo the input for writes.
type MockArticleService struct {
	CreateFunc     func(ctx context.Context, in *models.ArticleInput) (*models.Article, error)
	UpdateFunc     func(ctx context.Context, id string, in *models.ArticleInput) (*models.Article, error)
	DeleteFunc     func(ctx context.Context, id string) error
	GetFunc        func(ctx context.Context, id string) (*models.Article, error)
	ListFunc       func(ctx context.Context) ([]*models.Article, error)
	ViewFunc       func(ctx context.Context, slug string) (*models.ArticleView, error)
	ByCategoryFunc func(ctx context.Context, slug string) (*models.CategoryListing, error)
	SearchFunc     func(ctx context.Context, query string, includeDrafts bool) (*models.SearchResult, error)

	mu      sync.Mutex
	Created []*models.ArticleInput
	Deleted []string
}

func (m *MockArticleService) Create(ctx context.Context, in *models.ArticleInput) (*models.Article, error) {
	m.mu.Lock()
	m.Created = append(m.Created, in)
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, in)
	}
	return &models.Article{ID: "new-id", Title: in.Title, Summary: in.Summary, Body: in.Body}, nil
}

func (m *MockArticleService) Update(ctx context.Context, id string, in *models.ArticleInput) (*models.Article, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, in)
	}
	return &models.Article{ID: id, Title: in.Title}, nil
}

func (m *MockArticleService) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	m.Deleted = append(m.Deleted, id)
	m.mu.Unlock()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockArticleService) Get(ctx context.Context, id string) (*models.Article, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, apperr.NewNotFoundError("Article not found")
}

func (m *MockArticleService) List(ctx context.Context) ([]*models.Article, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.Article{}, nil
}

func (m *MockArticleService) View(ctx context.Context, slug string) (*models.ArticleView, error) {
	if m.ViewFunc != nil {
		return m.ViewFunc(ctx, slug)
	}
	return nil, apperr.NewNotFoundError("Article not found")
}

func (m *MockArticleService) ByCategory(ctx context.Context, slug string) (*models.CategoryListing, error) {
	if m.ByCategoryFunc != nil {
		return m.ByCategoryFunc(ctx, slug)
	}
	return nil, apperr.NewNotFoundError("Category not found")
}

func (m *MockArticleService) Search(ctx context.Context, query string, includeDrafts bool) (*models.SearchResult, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, includeDrafts)
	}
	return &models.SearchResult{Query: query, Articles: []models.Card{}}, nil
}

// MockGroupService is a mock implementation of GroupService
type MockGroupService struct {
	GetFunc    func(ctx context.Context, group string) (*models.CuratedGroupConfig, error)
	ListFunc   func(ctx context.Context) ([]*models.CuratedGroupConfig, error)
	SaveFunc   func(ctx context.Context, group string, in models.GroupInput) (*models.CuratedGroupConfig, error)
	DeleteFunc func(ctx context.Context, group string) error
}

func (m *MockGroupService) Get(ctx context.Context, group string) (*models.CuratedGroupConfig, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, group)
	}
	return nil, apperr.NewNotFoundError("group is not configured")
}

func (m *MockGroupService) List(ctx context.Context) ([]*models.CuratedGroupConfig, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockGroupService) Save(ctx context.Context, group string, in models.GroupInput) (*models.CuratedGroupConfig, error) {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, group, in)
	}
	return &models.CuratedGroupConfig{
		Type:       models.GroupType(group),
		Position:   models.Position(in.Position),
		ArticleIDs: in.ArticleIDs,
	}, nil
}

func (m *MockGroupService) Delete(ctx context.Context, group string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, group)
	}
	return nil
}

// MockHomepageService is a mock implementation of HomepageService
type MockHomepageService struct {
	Plan  models.RenderPlan
	Error error
}

func (m *MockHomepageService) Build(ctx context.Context) (models.RenderPlan, error) {
	return m.Plan, m.Error
}

// MockMediaService is a mock implementation of MediaService
type MockMediaService struct {
	SocialCardFunc func(ctx context.Context, id string, size int) (*socialcard.Card, error)
	ProxyImageFunc func(ctx context.Context, rawURL string) (*service.ProxiedImage, error)
	Counts         models.CacheCounts

	mu          sync.Mutex
	Sizes       []int
	Invalidated []string
}

func (m *MockMediaService) SocialCard(ctx context.Context, id string, size int) (*socialcard.Card, error) {
	m.mu.Lock()
	m.Sizes = append(m.Sizes, size)
	m.mu.Unlock()
	if m.SocialCardFunc != nil {
		return m.SocialCardFunc(ctx, id, size)
	}
	return &socialcard.Card{Bytes: []byte("png"), ContentType: socialcard.ContentType}, nil
}

func (m *MockMediaService) ProxyImage(ctx context.Context, rawURL string) (*service.ProxiedImage, error) {
	if m.ProxyImageFunc != nil {
		return m.ProxyImageFunc(ctx, rawURL)
	}
	return &service.ProxiedImage{Body: []byte("img"), ContentType: "image/jpeg", CacheControl: "public, max-age=300"}, nil
}

func (m *MockMediaService) Invalidate(ctx context.Context, articleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Invalidated = append(m.Invalidated, articleID)
}

func (m *MockMediaService) CacheStats() models.CacheCounts {
	return m.Counts
}

// MockStatsService is a mock implementation of StatsService
type MockStatsService struct {
	Result *models.Stats
	Error  error
}

func (m *MockStatsService) Stats(ctx context.Context) (*models.Stats, error) {
	if m.Error != nil {
		return nil, m.Error
	}
	if m.Result == nil {
		return &models.Stats{}, nil
	}
	return m.Result, nil
}
