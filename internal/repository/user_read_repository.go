package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cfmail/console/internal/models"
	sharedredis "github.com/cfmail/console/internal/redis"
	goredis "github.com/redis/go-redis/v9"
)

const (
	userViewKeyPrefix = "user:view:"
	userViewTTL       = 10 * time.Minute
	userViewColumns   = `id, username, email, frequency, permissions, created_at, updated_at`
)

// UserReadRepository handles all read operations for users.
// Single-user lookups go to Redis first; listings always query PostgreSQL.
type UserReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.UserView]
}

func NewUserReadRepository(db *sql.DB, redisClient *goredis.Client) *UserReadRepository {
	return &UserReadRepository{
		db:    db,
		cache: sharedredis.NewViewCache[models.UserView](redisClient, userViewTTL),
	}
}

func scanUserView(row rowScanner) (*models.UserView, error) {
	var v models.UserView
	if err := row.Scan(&v.ID, &v.Username, &v.Email, &v.Frequency, &v.Permissions, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetByID returns a UserView from Redis first, then PostgreSQL.
func (r *UserReadRepository) GetByID(ctx context.Context, id string) (*models.UserView, error) {
	return r.cache.Fetch(ctx, userViewKeyPrefix+id, func(ctx context.Context) (*models.UserView, error) {
		user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		if err != nil {
			return nil, err
		}
		return user.View(), nil
	})
}

func (r *UserReadRepository) List(ctx context.Context) ([]models.UserView, error) {
	return r.queryViews(ctx, `SELECT `+userViewColumns+` FROM users ORDER BY created_at DESC`)
}

// Page matches search against username and email, case-insensitively.
func (r *UserReadRepository) Page(ctx context.Context, search string, pageNum, pageSize int) (*models.Page[models.UserView], error) {
	pageNum, pageSize = models.NormalizePage(pageNum, pageSize)
	pattern := likePattern(search)
	where := `WHERE $1 = '' OR username ILIKE $1 OR email ILIKE $1`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users `+where, pattern).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	views, err := r.queryViews(ctx,
		`SELECT `+userViewColumns+` FROM users `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		pattern, pageSize, models.Offset(pageNum, pageSize),
	)
	if err != nil {
		return nil, err
	}
	return models.NewPage(views, total, pageNum, pageSize), nil
}

func (r *UserReadRepository) queryViews(ctx context.Context, query string, args ...any) ([]models.UserView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	views := []models.UserView{}
	for rows.Next() {
		v, err := scanUserView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		views = append(views, *v)
	}
	return views, rows.Err()
}

// CacheUserView stores or refreshes the Redis read model for a user.
// Called by the command services after every mutation.
func (r *UserReadRepository) CacheUserView(ctx context.Context, view *models.UserView) {
	r.cache.Set(ctx, userViewKeyPrefix+view.ID, view)
}

// InvalidateUserView removes the Redis read model entries for deleted users.
func (r *UserReadRepository) InvalidateUserView(ctx context.Context, userIDs ...string) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, userViewKeyPrefix+id)
	}
	r.cache.Delete(ctx, keys...)
}
