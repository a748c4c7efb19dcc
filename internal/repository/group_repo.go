package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/newsroom-api/internal/database"
	"github.com/newsroom-api/internal/models"
)

// groupRepo is the concrete implementation of GroupRepository
type groupRepo struct {
	db *database.DB
	d  dialect
}

// NewGroupRepo creates a new curated-group repository
func NewGroupRepo(db *database.DB, d dialect) GroupRepository {
	return &groupRepo{db: db, d: d}
}

// Get retrieves the stored config for a group, nil if none
func (r *groupRepo) Get(ctx context.Context, group models.GroupType) (*models.CuratedGroupConfig, error) {
	query, args, err := r.d.sb.Select("group_type", "position", "article_ids", "updated_at").
		From("curated_groups").
		Where(sq.Eq{"group_type": string(group)}).
		ToSql()
	if err != nil {
		return nil, err
	}

	cfg, err := scanGroup(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cfg, err
}

// List returns every stored group config
func (r *groupRepo) List(ctx context.Context) ([]*models.CuratedGroupConfig, error) {
	query, args, err := r.d.sb.Select("group_type", "position", "article_ids", "updated_at").
		From("curated_groups").
		OrderBy("group_type").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.CuratedGroupConfig
	for rows.Next() {
		cfg, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// Upsert replaces the singleton config wholesale
func (r *groupRepo) Upsert(ctx context.Context, cfg *models.CuratedGroupConfig) error {
	ids := cfg.ArticleIDs
	if ids == nil {
		ids = []string{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	query, args, err := r.d.sb.Insert("curated_groups").
		Columns("group_type", "position", "article_ids", "updated_at").
		Values(string(cfg.Type), string(cfg.Position), string(idsJSON), cfg.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (group_type) DO UPDATE SET " +
			"position = EXCLUDED.position, " +
			"article_ids = EXCLUDED.article_ids, " +
			"updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// Delete clears the singleton; the group becomes absent
func (r *groupRepo) Delete(ctx context.Context, group models.GroupType) (bool, error) {
	query, args, err := r.d.sb.Delete("curated_groups").Where(sq.Eq{"group_type": string(group)}).ToSql()
	if err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanGroup(row rowScanner) (*models.CuratedGroupConfig, error) {
	var (
		cfg       models.CuratedGroupConfig
		groupType string
		position  string
		idsJSON   []byte
	)
	if err := row.Scan(&groupType, &position, &idsJSON, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	cfg.Type = models.GroupType(groupType)
	cfg.Position = models.Position(position)
	if err := json.Unmarshal(idsJSON, &cfg.ArticleIDs); err != nil {
		return nil, fmt.Errorf("failed to decode article ids for group %s: %w", groupType, err)
	}
	return &cfg, nil
}
