package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/newsroom-api/internal/database"
	"github.com/newsroom-api/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicateSlug is returned by Create/Update when the slug is already taken.
var ErrDuplicateSlug = errors.New("duplicate slug")

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	// Create inserts the article and, in the same transaction, releases
	// every slot the article claims from its previous occupant.
	Create(ctx context.Context, article *models.Article) error
	// Update overwrites the article with the same slot-release semantics
	// as Create. It reports false when no article has that id.
	Update(ctx context.Context, article *models.Article) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Article, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	SlugExists(ctx context.Context, slug, exceptID string) (bool, error)
	FindPublished(ctx context.Context) ([]*models.Article, error)
	ListAll(ctx context.Context) ([]*models.Article, error)
	ListByCategory(ctx context.Context, category models.Category, publishedOnly bool) ([]*models.Article, error)
	Search(ctx context.Context, q SearchQuery) ([]*models.Article, error)
	Related(ctx context.Context, excludeSlug string, limit int) ([]*models.Article, error)
	ClearSlotOccupants(ctx context.Context, container int, slot models.SlotName, exceptID string) (int64, error)
	Count(ctx context.Context, publishedOnly bool) (int, error)
}

// GroupRepository defines the interface for curated-group config storage
type GroupRepository interface {
	Get(ctx context.Context, group models.GroupType) (*models.CuratedGroupConfig, error)
	List(ctx context.Context) ([]*models.CuratedGroupConfig, error)
	Upsert(ctx context.Context, cfg *models.CuratedGroupConfig) error
	Delete(ctx context.Context, group models.GroupType) (bool, error)
}

// SearchQuery filters Search results
type SearchQuery struct {
	Text          string
	IncludeDrafts bool
	Limit         int
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article ArticleRepository
	Group   GroupRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	d := dialectFor(db.Driver())
	return &Repositories{
		Article: NewArticleRepo(db, d),
		Group:   NewGroupRepo(db, d),
	}
}

// dialect captures the SQL differences between Postgres and SQLite
type dialect struct {
	sb       sq.StatementBuilderType
	tagsText string
}

func dialectFor(driver string) dialect {
	if driver == database.DriverSQLite {
		return dialect{
			sb:       sq.StatementBuilder.PlaceholderFormat(sq.Question),
			tagsText: "tags",
		}
	}
	return dialect{
		sb:       sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		tagsText: "tags::text",
	}
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func withTx(ctx context.Context, db *database.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func isSlugViolation(err error) bool {
	if !isUniqueViolation(err) {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint == "idx_articles_slug"
	}
	return strings.Contains(err.Error(), "articles.slug")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
