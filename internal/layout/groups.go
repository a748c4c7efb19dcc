package layout

import "github.com/newsroom-api/internal/models"

// ResolveCuratedGroup maps the configured ids, in order, onto published
// articles. It returns nil unless every id resolves and the count matches
// the group's fixed size; a partial group is never returned.
func ResolveCuratedGroup(cfg *models.CuratedGroupConfig, published []*models.Article) []*models.Article {
	if cfg == nil {
		return nil
	}
	size := cfg.Type.Size()
	if size == 0 || len(cfg.ArticleIDs) != size {
		return nil
	}

	byID := make(map[string]*models.Article, len(published))
	for _, a := range published {
		if a != nil && a.IsPublished() {
			byID[a.ID] = a
		}
	}

	resolved := make([]*models.Article, 0, size)
	for _, id := range cfg.ArticleIDs {
		a, ok := byID[id]
		if !ok {
			return nil
		}
		resolved = append(resolved, a)
	}
	return resolved
}

// GroupResult is a resolved curated group ready to place
type GroupResult struct {
	Type     models.GroupType
	Position models.Position
	Articles []*models.Article
}

// ResolveGroups resolves each stored config, dropping the ones that are
// not currently renderable.
func ResolveGroups(configs []*models.CuratedGroupConfig, published []*models.Article) []GroupResult {
	var out []GroupResult
	for _, cfg := range configs {
		if arts := ResolveCuratedGroup(cfg, published); arts != nil {
			out = append(out, GroupResult{Type: cfg.Type, Position: cfg.Position, Articles: arts})
		}
	}
	return out
}
