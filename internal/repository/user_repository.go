package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cfmail/console/internal/db"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/models"
	"github.com/lib/pq"
)

const userColumns = `id, username, email, password_hash, frequency, permissions, created_at, updated_at`

// UserWriteRepository handles all state-mutating operations for users.
// It operates exclusively against the PostgreSQL write store (source of truth).
type UserWriteRepository struct {
	db *sql.DB
}

func NewUserWriteRepository(db *sql.DB) *UserWriteRepository {
	return &UserWriteRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Frequency, &u.Permissions, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func userConflict(err error) error {
	constraint, ok := db.UniqueViolation(err)
	if !ok {
		return nil
	}
	if constraint == "users_email_key" {
		return errs.ErrEmailTaken
	}
	return errs.ErrUsernameTaken
}

func (r *UserWriteRepository) Create(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Frequency, user.Permissions,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if conflict := userConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID fetches the full write model (including PasswordHash) for internal operations.
func (r *UserWriteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByUsername matches case-insensitively, like the unique index.
func (r *UserWriteRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username))
}

// Update writes the profile columns. The balance is only changed through
// SetFrequency and AddFrequency so a stale read cannot overwrite a spend.
func (r *UserWriteRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, permissions = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Permissions, user.UpdatedAt,
	)
	if err != nil {
		if conflict := userConflict(err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return expectRows(result, errs.ErrUserNotFound)
}

// SetFrequency overwrites the balance and returns the user as it was before.
func (r *UserWriteRepository) SetFrequency(ctx context.Context, id string, frequency int) (*models.User, error) {
	var before *models.User
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		before, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET frequency = $2, updated_at = $3 WHERE id = $1`, id, frequency, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to set frequency: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return before, nil
}

// AddFrequency adds delta unless the result would exceed max, and returns
// the updated user.
func (r *UserWriteRepository) AddFrequency(ctx context.Context, id string, delta, max int) (*models.User, error) {
	query := `
		UPDATE users SET frequency = frequency + $2, updated_at = $4
		WHERE id = $1 AND frequency + $2 <= $3
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRowContext(ctx, query, id, delta, max, time.Now().UTC()))
	if errors.Is(err, errs.ErrUserNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, errs.ErrQuotaLimit
	}
	return user, err
}

func (r *UserWriteRepository) SetPermissions(ctx context.Context, id, permissions string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET permissions = $2, updated_at = $3 WHERE id = $1`,
		id, permissions, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	return expectRows(result, errs.ErrUserNotFound)
}

func (r *UserWriteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectRows(result, errs.ErrUserNotFound)
}

func (r *UserWriteRepository) DeleteBatch(ctx context.Context, ids []string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}
	return result.RowsAffected()
}

func expectRows(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
