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
)

const rechargeColumns = `id, user_id, username, COALESCE(card_code, ''), amount, type, before_balance, after_balance,
	description, COALESCE(admin_id, ''), COALESCE(admin_name, ''), created_at`

// RechargeResult is everything a balance top-up touched.
type RechargeResult struct {
	Record models.RechargeRecord
	User   models.User
	Card   *models.CardCode
}

type RedeemParams struct {
	Code     string
	UserID   string
	RecordID string
	Now      time.Time
}

type AdminRechargeParams struct {
	UserID      string
	Amount      int
	MaxQuota    int
	AdminID     string
	AdminName   string
	Description string
	RecordID    string
	Now         time.Time
}

type RechargeRepository struct {
	db *sql.DB
}

func NewRechargeRepository(db *sql.DB) *RechargeRepository {
	return &RechargeRepository{db: db}
}

func scanRecharge(row rowScanner) (*models.RechargeRecord, error) {
	var rec models.RechargeRecord
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Username, &rec.CardCode, &rec.Amount, &rec.Type,
		&rec.BeforeBalance, &rec.AfterBalance, &rec.Description, &rec.AdminID, &rec.AdminName, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrRechargeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan recharge record: %w", err)
	}
	return &rec, nil
}

func insertRecharge(ctx context.Context, tx *sql.Tx, rec *models.RechargeRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO recharge_records (id, user_id, username, card_code, amount, type, before_balance, after_balance,
			description, admin_id, admin_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.UserID, rec.Username, nullString(rec.CardCode), rec.Amount, rec.Type, rec.BeforeBalance, rec.AfterBalance,
		rec.Description, nullString(rec.AdminID), nullString(rec.AdminName), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create recharge record: %w", err)
	}
	return nil
}

func lockUser(ctx context.Context, tx *sql.Tx, id string) (*models.User, error) {
	return scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

func addBalance(ctx context.Context, tx *sql.Tx, user *models.User, amount int, now time.Time) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET frequency = frequency + $2, updated_at = $3 WHERE id = $1`, user.ID, amount, now)
	if err != nil {
		return fmt.Errorf("failed to add quota: %w", err)
	}
	user.Frequency += amount
	user.UpdatedAt = now
	return nil
}

// RedeemCard locks the card row, checks it can be used, credits its value to
// the user and records the recharge, all in one transaction.
func (r *RechargeRepository) RedeemCard(ctx context.Context, p RedeemParams) (*RechargeResult, error) {
	var result RechargeResult
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		card, err := scanCard(tx.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM card_codes WHERE code = $1 FOR UPDATE`, p.Code))
		if err != nil {
			return err
		}
		switch {
		case card.Status == models.CardStatusUsed:
			return errs.ErrCardUsed
		case card.Status == models.CardStatusDisabled:
			return errs.ErrCardDisabled
		case card.Expired(p.Now):
			return errs.ErrCardExpired
		}

		user, err := lockUser(ctx, tx, p.UserID)
		if err != nil {
			return err
		}
		before := user.Frequency
		if err := addBalance(ctx, tx, user, card.Value, p.Now); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE card_codes
			SET status = $2, used_by_user_id = $3, used_by_username = $4, used_at = $5, updated_at = $5
			WHERE id = $1`, card.ID, models.CardStatusUsed, user.ID, user.Username, p.Now); err != nil {
			return fmt.Errorf("failed to mark card code used: %w", err)
		}
		card.Status = models.CardStatusUsed
		card.UsedByUserID = user.ID
		card.UsedByUsername = user.Username
		usedAt := p.Now
		card.UsedAt = &usedAt
		card.UpdatedAt = p.Now

		result.Record = models.RechargeRecord{
			ID:            p.RecordID,
			UserID:        user.ID,
			Username:      user.Username,
			CardCode:      card.Code,
			Amount:        card.Value,
			Type:          models.RechargeTypeCard,
			BeforeBalance: before,
			AfterBalance:  user.Frequency,
			Description:   card.Description,
			CreatedAt:     p.Now,
		}
		result.User = *user
		result.Card = card
		return insertRecharge(ctx, tx, &result.Record)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AdminRecharge credits amount to a user unless the balance would exceed
// MaxQuota.
func (r *RechargeRepository) AdminRecharge(ctx context.Context, p AdminRechargeParams) (*RechargeResult, error) {
	var result RechargeResult
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		user, err := lockUser(ctx, tx, p.UserID)
		if err != nil {
			return err
		}
		if user.Frequency+p.Amount > p.MaxQuota {
			return errs.ErrQuotaLimit
		}
		before := user.Frequency
		if err := addBalance(ctx, tx, user, p.Amount, p.Now); err != nil {
			return err
		}

		result.Record = models.RechargeRecord{
			ID:            p.RecordID,
			UserID:        user.ID,
			Username:      user.Username,
			Amount:        p.Amount,
			Type:          models.RechargeTypeAdmin,
			BeforeBalance: before,
			AfterBalance:  user.Frequency,
			Description:   p.Description,
			AdminID:       p.AdminID,
			AdminName:     p.AdminName,
			CreatedAt:     p.Now,
		}
		result.User = *user
		return insertRecharge(ctx, tx, &result.Record)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *RechargeRepository) ListByUser(ctx context.Context, userID string) ([]models.RechargeRecord, error) {
	return r.query(ctx, `SELECT `+rechargeColumns+` FROM recharge_records WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *RechargeRepository) ListAll(ctx context.Context) ([]models.RechargeRecord, error) {
	return r.query(ctx, `SELECT `+rechargeColumns+` FROM recharge_records ORDER BY created_at DESC`)
}

// Page filters by a substring of username, card code or description and by
// an exact recharge type when one is given.
func (r *RechargeRepository) Page(ctx context.Context, search, rechargeType string, pageNum, pageSize int) (*models.Page[models.RechargeRecord], error) {
	pageNum, pageSize = models.NormalizePage(pageNum, pageSize)
	pattern := likePattern(search)
	where := `WHERE ($1 = '' OR username ILIKE $1 OR card_code ILIKE $1 OR description ILIKE $1)
		AND ($2 = '' OR type = $2)`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recharge_records `+where, pattern, rechargeType).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count recharge records: %w", err)
	}
	records, err := r.query(ctx,
		`SELECT `+rechargeColumns+` FROM recharge_records `+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		pattern, rechargeType, pageSize, models.Offset(pageNum, pageSize),
	)
	if err != nil {
		return nil, err
	}
	return models.NewPage(records, total, pageNum, pageSize), nil
}

func (r *RechargeRepository) query(ctx context.Context, query string, args ...any) ([]models.RechargeRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recharge records: %w", err)
	}
	defer rows.Close()

	records := []models.RechargeRecord{}
	for rows.Next() {
		rec, err := scanRecharge(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *RechargeRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recharge_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recharge record: %w", err)
	}
	return expectRows(result, errs.ErrRechargeNotFound)
}
