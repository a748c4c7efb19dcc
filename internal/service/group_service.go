package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/newsroom-api/internal/models"
	"github.com/newsroom-api/internal/repository"
	"github.com/newsroom-api/internal/validation"
	"github.com/newsroom-api/pkg/apperr"
	"github.com/rs/zerolog"
)

type groupService struct {
	repo repository.GroupRepository
	// mu covers the exclusivity check and the upsert that follows it
	mu  sync.Mutex
	now func() time.Time
	log zerolog.Logger
}

func newGroupService(repo repository.GroupRepository, now func() time.Time, log zerolog.Logger) *groupService {
	return &groupService{
		repo: repo,
		now:  now,
		log:  log.With().Str("component", "group_service").Logger(),
	}
}

func parseGroup(group string) (models.GroupType, error) {
	g, ok := models.ParseGroupType(strings.ToLower(strings.TrimSpace(group)))
	if !ok {
		return "", apperr.NewNotFoundError(fmt.Sprintf("unknown group %q", group))
	}
	return g, nil
}

// Get returns the stored config, or NotFound when the group is unset.
func (s *groupService) Get(ctx context.Context, group string) (*models.CuratedGroupConfig, error) {
	g, err := parseGroup(group)
	if err != nil {
		return nil, err
	}
	cfg, err := s.repo.Get(ctx, g)
	if err != nil {
		return nil, apperr.Store("get group", err)
	}
	if cfg == nil {
		return nil, apperr.NewNotFoundError(g.Label() + " is not configured")
	}
	return cfg, nil
}

func (s *groupService) List(ctx context.Context) ([]*models.CuratedGroupConfig, error) {
	configs, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Store("list groups", err)
	}
	return configs, nil
}

// Save validates and replaces the group's singleton config. An article
// already selected by another group is rejected.
func (s *groupService) Save(ctx context.Context, group string, in models.GroupInput) (*models.CuratedGroupConfig, error) {
	g, err := parseGroup(group)
	if err != nil {
		return nil, err
	}
	position, ids, err := validation.ValidateGroupInput(g, in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	others, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Store("list groups", err)
	}
	if err := checkExclusive(g, ids, others); err != nil {
		return nil, err
	}

	cfg := &models.CuratedGroupConfig{
		Type:       g,
		Position:   position,
		ArticleIDs: ids,
		UpdatedAt:  s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, apperr.Store("save group", err)
	}

	s.log.Info().
		Str("group", string(g)).
		Str("position", string(position)).
		Strs("article_ids", ids).
		Msg("Curated group saved")
	return cfg, nil
}

func checkExclusive(g models.GroupType, ids []string, configs []*models.CuratedGroupConfig) error {
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	for _, other := range configs {
		if other == nil || other.Type == g {
			continue
		}
		for _, id := range other.ArticleIDs {
			if selected[id] {
				return apperr.NewFieldError("articleIds",
					fmt.Sprintf("article %s is already in %s", id, other.Type.Label()))
			}
		}
	}
	return nil
}

// Delete clears the group. Deleting an unset group is not an error.
func (s *groupService) Delete(ctx context.Context, group string) error {
	g, err := parseGroup(group)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.repo.Delete(ctx, g)
	if err != nil {
		return apperr.Store("delete group", err)
	}
	s.log.Info().Str("group", string(g)).Bool("existed", found).Msg("Curated group cleared")
	return nil
}
