package service

import (
	"context"

	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/internal/repository"
	"github.com/newsroom-api/pkg/apperr"
)

type cacheReporter interface {
	CacheStats() models.CacheCounts
}

type statsService struct {
	articles repository.ArticleRepository
	caches   cacheReporter
}

func newStatsService(articles repository.ArticleRepository, caches cacheReporter) *statsService {
	return &statsService{articles: articles, caches: caches}
}

func (s *statsService) Stats(ctx context.Context) (*models.Stats, error) {
	total, err := s.articles.Count(ctx, false)
	if err != nil {
		return nil, apperr.Store("count articles", err)
	}
	published, err := s.articles.Count(ctx, true)
	if err != nil {
		return nil, apperr.Store("count published", err)
	}
	return &models.Stats{
		Articles: models.ArticleCounts{Total: total, Published: published},
		Cache:    s.caches.CacheStats(),
	}, nil
}
