package service

import (
	"context"
	"time"

	"github.com/newsroom-api/internal/layout"
	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/internal/repository"
	"github.com/newsroom-api/pkg/apperr"
	"github.com/rs/zerolog"
)

type homepageService struct {
	articles repository.ArticleRepository
	groups   repository.GroupRepository
	log      zerolog.Logger
}

func newHomepageService(repos *repository.Repositories, log zerolog.Logger) *homepageService {
	return &homepageService{
		articles: repos.Article,
		groups:   repos.Group,
		log:      log.With().Str("component", "homepage_service").Logger(),
	}
}

// Build loads the published articles and group configs and composes the
// homepage render plan.
func (s *homepageService) Build(ctx context.Context) (models.RenderPlan, error) {
	start := time.Now()

	published, err := s.articles.FindPublished(ctx)
	if err != nil {
		return models.RenderPlan{}, apperr.Store("load published articles", err)
	}
	configs, err := s.groups.List(ctx)
	if err != nil {
		return models.RenderPlan{}, apperr.Store("load group configs", err)
	}

	plan := layout.Build(published, configs)

	s.log.Debug().
		Int("articles", len(published)).
		Int("groups", len(configs)).
		Int("sections", len(plan.Sections)).
		Dur("elapsed", time.Since(start)).
		Msg("Homepage composed")
	return plan, nil
}
