package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/newsroom-api/internal/database"
	"github.com/newsroom-api/internal/models"
)

var articleColumns = []string{
	"id", "slug", "title", "summary", "body", "category", "tags", "cover_image",
	"featured", "breaking", "ticker",
	"c1_enabled", "c1_slot", "c2_enabled", "c2_slot", "c3_enabled", "c3_slot",
	"status", "published_at", "created_at", "updated_at",
}

const canonicalOrder = "COALESCE(published_at, created_at) DESC"

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
	d  dialect
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB, d dialect) ArticleRepository {
	return &articleRepo{db: db, d: d}
}

// Create inserts a new article
func (r *articleRepo) Create(ctx context.Context, article *models.Article) error {
	values, err := articleValues(article)
	if err != nil {
		return err
	}

	query, args, err := r.d.sb.Insert("articles").Columns(articleColumns...).Values(values...).ToSql()
	if err != nil {
		return err
	}

	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.releaseSlots(ctx, tx, article); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	if isSlugViolation(err) {
		return ErrDuplicateSlug
	}
	return err
}

// Update overwrites every column except id and created_at
func (r *articleRepo) Update(ctx context.Context, article *models.Article) (bool, error) {
	values, err := articleValues(article)
	if err != nil {
		return false, err
	}

	ub := r.d.sb.Update("articles").Where(sq.Eq{"id": article.ID})
	for i, col := range articleColumns {
		if col == "id" || col == "created_at" {
			continue
		}
		ub = ub.Set(col, values[i])
	}
	query, args, err := ub.ToSql()
	if err != nil {
		return false, err
	}

	var found bool
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.releaseSlots(ctx, tx, article); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			// Roll back the slot release, nothing was saved
			return sql.ErrNoRows
		}
		found = true
		return nil
	})
	if err == sql.ErrNoRows {
		return false, nil
	}
	if isSlugViolation(err) {
		return false, ErrDuplicateSlug
	}
	return found, err
}

// releaseSlots clears every other occupant of the slots the article claims.
func (r *articleRepo) releaseSlots(ctx context.Context, ex execer, article *models.Article) error {
	for i := 1; i <= models.ContainerCount; i++ {
		p := article.Placement(i)
		if !p.Enabled || p.Slot == "" {
			continue
		}
		if _, err := r.clearSlot(ctx, ex, i, p.Slot, article.ID, article.UpdatedAt); err != nil {
			return fmt.Errorf("failed to release container %d slot %s: %w", i, p.Slot, err)
		}
	}
	return nil
}

func (r *articleRepo) clearSlot(ctx context.Context, ex execer, container int, slot models.SlotName, exceptID string, now time.Time) (int64, error) {
	if container < 1 || container > models.ContainerCount {
		return 0, fmt.Errorf("invalid container %d", container)
	}
	if now.IsZero() {
		now = time.Now()
	}
	enabledCol := fmt.Sprintf("c%d_enabled", container)
	slotCol := fmt.Sprintf("c%d_slot", container)

	query, args, err := r.d.sb.Update("articles").
		Set(enabledCol, 0).
		Set(slotCol, nil).
		Set("updated_at", now.UTC()).
		Where(sq.Eq{enabledCol: 1, slotCol: string(slot)}).
		Where(sq.NotEq{"id": exceptID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClearSlotOccupants disables the placement of every article except
// exceptID that holds slot in the given container.
func (r *articleRepo) ClearSlotOccupants(ctx context.Context, container int, slot models.SlotName, exceptID string) (int64, error) {
	return r.clearSlot(ctx, r.db, container, slot, exceptID, time.Now())
}

// Delete removes an article by ID
func (r *articleRepo) Delete(ctx context.Context, id string) (bool, error) {
	query, args, err := r.d.sb.Delete("articles").Where(sq.Eq{"id": id}).ToSql()
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

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

// GetBySlug retrieves an article by slug
func (r *articleRepo) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	return r.getOne(ctx, sq.Eq{"slug": slug})
}

func (r *articleRepo) getOne(ctx context.Context, where sq.Sqlizer) (*models.Article, error) {
	query, args, err := r.d.sb.Select(articleColumns...).From("articles").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}

	article, err := scanArticle(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return article, nil
}

// SlugExists checks if another article already uses the slug
func (r *articleRepo) SlugExists(ctx context.Context, slug, exceptID string) (bool, error) {
	sb := r.d.sb.Select("1").From("articles").Where(sq.Eq{"slug": slug})
	if exceptID != "" {
		sb = sb.Where(sq.NotEq{"id": exceptID})
	}
	query, args, err := sb.Limit(1).ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// FindPublished returns every published article with a slug, most
// recently saved first.
func (r *articleRepo) FindPublished(ctx context.Context) ([]*models.Article, error) {
	return r.list(ctx, r.d.sb.Select(articleColumns...).From("articles").
		Where(sq.Eq{"status": string(models.StatusPublished)}).
		Where(sq.NotEq{"slug": ""}).
		OrderBy("updated_at DESC", "id ASC"))
}

// ListAll returns every article, newest created first
func (r *articleRepo) ListAll(ctx context.Context) ([]*models.Article, error) {
	return r.list(ctx, r.d.sb.Select(articleColumns...).From("articles").
		OrderBy("created_at DESC", "id ASC"))
}

// ListByCategory returns a category's articles in canonical order
func (r *articleRepo) ListByCategory(ctx context.Context, category models.Category, publishedOnly bool) ([]*models.Article, error) {
	sb := r.d.sb.Select(articleColumns...).From("articles").Where(sq.Eq{"category": string(category)})
	if publishedOnly {
		sb = sb.Where(sq.Eq{"status": string(models.StatusPublished)}).Where(sq.NotEq{"slug": ""})
	}
	return r.list(ctx, sb.OrderBy(canonicalOrder, "id ASC"))
}

// Search runs a case-insensitive substring match over title, summary,
// body, category and tags.
func (r *articleRepo) Search(ctx context.Context, q SearchQuery) ([]*models.Article, error) {
	pattern := "%" + escapeLike(strings.ToLower(q.Text)) + "%"

	match := sq.Or{}
	for _, col := range []string{"title", "summary", "body", "category", r.d.tagsText} {
		match = append(match, sq.Expr("LOWER("+col+") LIKE ? ESCAPE '\\'", pattern))
	}

	sb := r.d.sb.Select(articleColumns...).From("articles").Where(match)
	if !q.IncludeDrafts {
		sb = sb.Where(sq.Eq{"status": string(models.StatusPublished)})
	}
	if q.Limit > 0 {
		sb = sb.Limit(uint64(q.Limit))
	}
	return r.list(ctx, sb.OrderBy(canonicalOrder, "id ASC"))
}

// Related returns the latest published articles other than excludeSlug
func (r *articleRepo) Related(ctx context.Context, excludeSlug string, limit int) ([]*models.Article, error) {
	sb := r.d.sb.Select(articleColumns...).From("articles").
		Where(sq.Eq{"status": string(models.StatusPublished)}).
		Where(sq.NotEq{"slug": ""}).
		Where(sq.NotEq{"slug": excludeSlug}).
		OrderBy(canonicalOrder, "id ASC")
	if limit > 0 {
		sb = sb.Limit(uint64(limit))
	}
	return r.list(ctx, sb)
}

// Count returns the total number of articles
func (r *articleRepo) Count(ctx context.Context, publishedOnly bool) (int, error) {
	sb := r.d.sb.Select("COUNT(*)").From("articles")
	if publishedOnly {
		sb = sb.Where(sq.Eq{"status": string(models.StatusPublished)})
	}
	query, args, err := sb.ToSql()
	if err != nil {
		return 0, err
	}
	var count int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

func (r *articleRepo) list(ctx context.Context, sb sq.SelectBuilder) ([]*models.Article, error) {
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := make([]*models.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanArticle(row rowScanner) (*models.Article, error) {
	var (
		article     models.Article
		category    string
		status      string
		tagsJSON    []byte
		slots       [models.ContainerCount]sql.NullString
		enabled     [models.ContainerCount]bool
		publishedAt sql.NullTime
	)

	err := row.Scan(
		&article.ID, &article.Slug, &article.Title, &article.Summary, &article.Body,
		&category, &tagsJSON, &article.CoverImage,
		&article.Featured, &article.Breaking, &article.Ticker,
		&enabled[0], &slots[0], &enabled[1], &slots[1], &enabled[2], &slots[2],
		&status, &publishedAt, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	article.Category = models.Category(category)
	article.Status = models.Status(status)
	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &article.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags for %s: %w", article.ID, err)
		}
	}
	if article.Tags == nil {
		article.Tags = []string{}
	}
	for i := range slots {
		article.SetPlacement(i+1, models.Placement{
			Enabled: enabled[i] && slots[i].Valid && slots[i].String != "",
			Slot:    models.SlotName(slots[i].String),
		})
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		article.PublishedAt = &t
	}

	return &article, nil
}

func articleValues(a *models.Article) ([]interface{}, error) {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}

	var publishedAt interface{}
	if a.PublishedAt != nil {
		publishedAt = a.PublishedAt.UTC()
	}

	values := []interface{}{
		a.ID, a.Slug, a.Title, a.Summary, a.Body, string(a.Category), string(tagsJSON), a.CoverImage,
		boolToInt(a.Featured), boolToInt(a.Breaking), boolToInt(a.Ticker),
	}
	for i := 1; i <= models.ContainerCount; i++ {
		p := a.Placement(i)
		var slot interface{}
		if p.Enabled && p.Slot != "" {
			slot = string(p.Slot)
		}
		values = append(values, boolToInt(p.Enabled && p.Slot != ""), slot)
	}
	values = append(values, string(a.Status), publishedAt, a.CreatedAt.UTC(), a.UpdatedAt.UTC())
	return values, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
