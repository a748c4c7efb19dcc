package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/newsroom-api/internal/config"
	"github.com/newsroom-api/internal/fetcher"
	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/internal/repository"
	"github.com/newsroom-api/internal/socialcard"
	"github.com/rs/zerolog"
)

// ArticleService defines the interface for editorial and reader article operations
type ArticleService interface {
	Create(ctx context.Context, in *models.ArticleInput) (*models.Article, error)
	Update(ctx context.Context, id string, in *models.ArticleInput) (*models.Article, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context) ([]*models.Article, error)
	View(ctx context.Context, slug string) (*models.ArticleView, error)
	ByCategory(ctx context.Context, slug string) (*models.CategoryListing, error)
	Search(ctx context.Context, query string, includeDrafts bool) (*models.SearchResult, error)
}

// GroupService defines the interface for curated-group configuration
type GroupService interface {
	Get(ctx context.Context, group string) (*models.CuratedGroupConfig, error)
	List(ctx context.Context) ([]*models.CuratedGroupConfig, error)
	Save(ctx context.Context, group string, in models.GroupInput) (*models.CuratedGroupConfig, error)
	Delete(ctx context.Context, group string) error
}

// HomepageService defines the interface for homepage composition
type HomepageService interface {
	Build(ctx context.Context) (models.RenderPlan, error)
}

// MediaService defines the interface for social cards and the image proxy
type MediaService interface {
	SocialCard(ctx context.Context, id string, size int) (*socialcard.Card, error)
	ProxyImage(ctx context.Context, rawURL string) (*ProxiedImage, error)
	Invalidate(ctx context.Context, articleID string)
	CacheStats() models.CacheCounts
}

// StatsService defines the interface for the operational summary
type StatsService interface {
	Stats(ctx context.Context) (*models.Stats, error)
}

// Services holds all service interfaces
type Services struct {
	Article  ArticleService
	Group    GroupService
	Homepage HomepageService
	Media    MediaService
	Stats    StatsService
}

// Option customizes NewServices
type Option func(*options)

type options struct {
	now    func() time.Time
	newID  func() string
	fetch  socialcard.AssetFetcher
	shared socialcard.SharedStore
}

// WithClock overrides time.Now for timestamps and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides uuid generation for new articles.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) { o.newID = fn }
}

// WithFetcher replaces the upstream asset fetcher.
func WithFetcher(f socialcard.AssetFetcher) Option {
	return func(o *options) { o.fetch = f }
}

// WithSharedCache adds a shared tier behind the social card cache.
func WithSharedCache(s socialcard.SharedStore) Option {
	return func(o *options) { o.shared = s }
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger, opts ...Option) (*Services, error) {
	o := options{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fetch == nil {
		o.fetch = fetcher.New(cfg.Fetch, log)
	}

	var genOpts []socialcard.Option
	if o.shared != nil {
		genOpts = append(genOpts, socialcard.WithSharedStore(o.shared))
	}
	gen, err := socialcard.NewGenerator(cfg.SocialCard, repos.Article, o.fetch, o.now, log, genOpts...)
	if err != nil {
		return nil, err
	}

	mediaSvc := newMediaService(gen, o.fetch, log)
	articleSvc := newArticleService(repos.Article, mediaSvc, o.now, o.newID, log)
	groupSvc := newGroupService(repos.Group, o.now, log)
	homepageSvc := newHomepageService(repos, log)
	statsSvc := newStatsService(repos.Article, mediaSvc)

	return &Services{
		Article:  articleSvc,
		Group:    groupSvc,
		Homepage: homepageSvc,
		Media:    mediaSvc,
		Stats:    statsSvc,
	}, nil
}
