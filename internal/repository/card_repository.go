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

const cardColumns = `id, code, value, status, COALESCE(used_by_user_id, ''), COALESCE(used_by_username, ''),
	used_at, expires_at, description, created_at, updated_at`

type CardRepository struct {
	db *sql.DB
}

func NewCardRepository(db *sql.DB) *CardRepository {
	return &CardRepository{db: db}
}

func scanCard(row rowScanner) (*models.CardCode, error) {
	var c models.CardCode
	var usedAt, expiresAt sql.NullTime
	err := row.Scan(&c.ID, &c.Code, &c.Value, &c.Status, &c.UsedByUserID, &c.UsedByUsername,
		&usedAt, &expiresAt, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan card code: %w", err)
	}
	c.UsedAt = timePtr(usedAt)
	c.ExpiresAt = timePtr(expiresAt)
	return &c, nil
}

// CreateBatch inserts all codes or none.
func (r *CardRepository) CreateBatch(ctx context.Context, codes []models.CardCode) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO card_codes (id, code, value, status, expires_at, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
		if err != nil {
			return fmt.Errorf("failed to prepare card insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range codes {
			_, err := stmt.ExecContext(ctx, c.ID, c.Code, c.Value, c.Status, nullTime(c.ExpiresAt), c.Description, c.CreatedAt, c.UpdatedAt)
			if err != nil {
				if _, ok := db.UniqueViolation(err); ok {
					return fmt.Errorf("card code %s: %w", c.Code, errs.ErrConflict)
				}
				return fmt.Errorf("failed to create card code: %w", err)
			}
		}
		return nil
	})
}

func (r *CardRepository) GetByID(ctx context.Context, id string) (*models.CardCode, error) {
	return scanCard(r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM card_codes WHERE id = $1`, id))
}

func (r *CardRepository) List(ctx context.Context) ([]models.CardCode, error) {
	return r.query(ctx, `SELECT `+cardColumns+` FROM card_codes ORDER BY created_at DESC`)
}

// Page filters by a substring of code, description or redeemer and by an
// exact status when one is given.
func (r *CardRepository) Page(ctx context.Context, search, status string, pageNum, pageSize int) (*models.Page[models.CardCode], error) {
	pageNum, pageSize = models.NormalizePage(pageNum, pageSize)
	pattern := likePattern(search)
	where := `WHERE ($1 = '' OR code ILIKE $1 OR description ILIKE $1 OR used_by_username ILIKE $1)
		AND ($2 = '' OR status = $2)`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_codes `+where, pattern, status).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count card codes: %w", err)
	}
	codes, err := r.query(ctx,
		`SELECT `+cardColumns+` FROM card_codes `+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		pattern, status, pageSize, models.Offset(pageNum, pageSize),
	)
	if err != nil {
		return nil, err
	}
	return models.NewPage(codes, total, pageNum, pageSize), nil
}

func (r *CardRepository) query(ctx context.Context, query string, args ...any) ([]models.CardCode, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list card codes: %w", err)
	}
	defer rows.Close()

	codes := []models.CardCode{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, *c)
	}
	return codes, rows.Err()
}

// Transition moves a code from one status to another. A code in any other
// status yields ErrInvalidTransition.
func (r *CardRepository) Transition(ctx context.Context, id, from, to string) (*models.CardCode, error) {
	card, err := scanCard(r.db.QueryRowContext(ctx, `
		UPDATE card_codes SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
		RETURNING `+cardColumns, id, from, to, time.Now().UTC()))
	if errors.Is(err, errs.ErrCardNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, errs.ErrInvalidTransition
	}
	return card, err
}

func (r *CardRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM card_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card code: %w", err)
	}
	return expectRows(result, errs.ErrCardNotFound)
}

func (r *CardRepository) DeleteBatch(ctx context.Context, ids []string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM card_codes WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete card codes: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired removes unused codes whose expiry is not after now.
func (r *CardRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM card_codes
		WHERE status = 'unused' AND expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired card codes: %w", err)
	}
	return result.RowsAffected()
}
