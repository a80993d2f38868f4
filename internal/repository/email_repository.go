package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cfmail/console/internal/db"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/models"
	"github.com/lib/pq"
)

const (
	emailColumns     = `id, user_id, email, to_email, COALESCE(rule_id, ''), created_at, updated_at`
	emailViewColumns = `e.id, e.user_id, e.email, e.to_email, COALESCE(e.rule_id, ''), e.created_at, e.updated_at, COALESCE(u.username, '')`
	emailViewFrom    = `FROM email_records e LEFT JOIN users u ON u.id = e.user_id`
)

// EmailRepository owns email_records, the local mirror of the routing rules
// users have paid quota for.
type EmailRepository struct {
	db *sql.DB
}

func NewEmailRepository(db *sql.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

func scanEmail(row rowScanner) (*models.EmailRecord, error) {
	var e models.EmailRecord
	err := row.Scan(&e.ID, &e.UserID, &e.Email, &e.ToEmail, &e.RuleID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan email record: %w", err)
	}
	return &e, nil
}

func scanEmailView(row rowScanner) (*models.EmailRecordView, error) {
	var v models.EmailRecordView
	err := row.Scan(&v.ID, &v.UserID, &v.Email, &v.ToEmail, &v.RuleID, &v.CreatedAt, &v.UpdatedAt, &v.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrEmailNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan email record: %w", err)
	}
	return &v, nil
}

func insertEmail(ctx context.Context, exec interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, rec *models.EmailRecord) error {
	_, err := exec.ExecContext(ctx, `
		INSERT INTO email_records (id, user_id, email, to_email, rule_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.UserID, rec.Email, rec.ToEmail, nullString(rec.RuleID), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return errs.ErrAddressTaken
		}
		return fmt.Errorf("failed to create email record: %w", err)
	}
	return nil
}

// CreateWithQuota inserts rec and takes one unit of the owner's quota in a
// single transaction. It returns the owner's remaining balance.
func (r *EmailRepository) CreateWithQuota(ctx context.Context, rec *models.EmailRecord) (int, error) {
	var remaining int
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE users SET frequency = frequency - 1, updated_at = $2
			WHERE id = $1 AND frequency > 0
			RETURNING frequency`, rec.UserID, rec.CreatedAt,
		).Scan(&remaining)
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrInsufficientQuota
		}
		if err != nil {
			return fmt.Errorf("failed to consume quota: %w", err)
		}
		return insertEmail(ctx, tx, rec)
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Create stores a record without touching quota; used by administrators.
func (r *EmailRepository) Create(ctx context.Context, rec *models.EmailRecord) error {
	return insertEmail(ctx, r.db, rec)
}

func (r *EmailRepository) GetByID(ctx context.Context, id string) (*models.EmailRecordView, error) {
	return scanEmailView(r.db.QueryRowContext(ctx, `SELECT `+emailViewColumns+` `+emailViewFrom+` WHERE e.id = $1`, id))
}

// GetByAddress looks up the record that owns a custom address.
func (r *EmailRepository) GetByAddress(ctx context.Context, email string) (*models.EmailRecord, error) {
	return scanEmail(r.db.QueryRowContext(ctx, `SELECT `+emailColumns+` FROM email_records WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *EmailRepository) GetByRuleID(ctx context.Context, ruleID string) (*models.EmailRecord, error) {
	return scanEmail(r.db.QueryRowContext(ctx, `SELECT `+emailColumns+` FROM email_records WHERE rule_id = $1`, ruleID))
}

func (r *EmailRepository) ListByUser(ctx context.Context, userID string) ([]models.EmailRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+emailColumns+` FROM email_records WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list email records: %w", err)
	}
	defer rows.Close()
	return collectEmails(rows)
}

func (r *EmailRepository) ListAll(ctx context.Context) ([]models.EmailRecordView, error) {
	return r.queryViews(ctx, `SELECT `+emailViewColumns+` `+emailViewFrom+` ORDER BY e.created_at DESC`)
}

// Page matches search against the custom address, the destination and the
// owner's username.
func (r *EmailRepository) Page(ctx context.Context, search string, pageNum, pageSize int) (*models.Page[models.EmailRecordView], error) {
	pageNum, pageSize = models.NormalizePage(pageNum, pageSize)
	pattern := likePattern(search)
	where := `WHERE $1 = '' OR e.email ILIKE $1 OR e.to_email ILIKE $1 OR u.username ILIKE $1`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+emailViewFrom+` `+where, pattern).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count email records: %w", err)
	}
	views, err := r.queryViews(ctx,
		`SELECT `+emailViewColumns+` `+emailViewFrom+` `+where+` ORDER BY e.created_at DESC LIMIT $2 OFFSET $3`,
		pattern, pageSize, models.Offset(pageNum, pageSize),
	)
	if err != nil {
		return nil, err
	}
	return models.NewPage(views, total, pageNum, pageSize), nil
}

func (r *EmailRepository) queryViews(ctx context.Context, query string, args ...any) ([]models.EmailRecordView, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list email records: %w", err)
	}
	defer rows.Close()

	views := []models.EmailRecordView{}
	for rows.Next() {
		v, err := scanEmailView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, rows.Err()
}

func (r *EmailRepository) Update(ctx context.Context, rec *models.EmailRecord) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE email_records SET email = $2, to_email = $3, rule_id = $4, updated_at = $5
		WHERE id = $1`,
		rec.ID, rec.Email, rec.ToEmail, nullString(rec.RuleID), rec.UpdatedAt,
	)
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return errs.ErrAddressTaken
		}
		return fmt.Errorf("failed to update email record: %w", err)
	}
	return expectRows(result, errs.ErrEmailNotFound)
}

// Delete removes a record and returns what was deleted.
func (r *EmailRepository) Delete(ctx context.Context, id string) (*models.EmailRecord, error) {
	return scanEmail(r.db.QueryRowContext(ctx, `DELETE FROM email_records WHERE id = $1 RETURNING `+emailColumns, id))
}

func (r *EmailRepository) DeleteByRuleID(ctx context.Context, ruleID string) (*models.EmailRecord, error) {
	return scanEmail(r.db.QueryRowContext(ctx, `DELETE FROM email_records WHERE rule_id = $1 RETURNING `+emailColumns, ruleID))
}

func (r *EmailRepository) DeleteBatch(ctx context.Context, ids []string) ([]models.EmailRecord, error) {
	return r.deleteWhere(ctx, `id = ANY($1)`, pq.Array(ids))
}

// ListByUsers is read before users are removed so their rules can be
// cleaned up at Cloudflare once the rows cascade away.
func (r *EmailRepository) ListByUsers(ctx context.Context, userIDs []string) ([]models.EmailRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+emailColumns+` FROM email_records WHERE user_id = ANY($1)`, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list email records: %w", err)
	}
	defer rows.Close()
	return collectEmails(rows)
}

func (r *EmailRepository) deleteWhere(ctx context.Context, cond string, args ...any) ([]models.EmailRecord, error) {
	rows, err := r.db.QueryContext(ctx, `DELETE FROM email_records WHERE `+cond+` RETURNING `+emailColumns, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete email records: %w", err)
	}
	defer rows.Close()
	return collectEmails(rows)
}

func collectEmails(rows *sql.Rows) ([]models.EmailRecord, error) {
	records := []models.EmailRecord{}
	for rows.Next() {
		rec, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
