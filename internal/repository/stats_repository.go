package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cfmail/console/internal/models"
)

const (
	recentLimit = 5
	growthDays  = 7
	dayLayout   = "2006-01-02"
)

// StatsRepository answers the admin dashboard's aggregate queries.
type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) Dashboard(ctx context.Context, now time.Time) (*models.DashboardStats, error) {
	var s models.DashboardStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM email_records),
			(SELECT COUNT(*) FROM users WHERE permissions = 'admin'),
			(SELECT COUNT(*) FROM users WHERE frequency > 0),
			(SELECT COUNT(*) FROM card_codes),
			(SELECT COUNT(*) FROM recharge_records)`,
	).Scan(&s.TotalUsers, &s.TotalEmails, &s.TotalAdmins, &s.TotalActiveUsers, &s.TotalCardCodes, &s.TotalRechargeRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard totals: %w", err)
	}

	if s.RecentUsers, err = (&UserReadRepository{db: r.db}).queryViews(ctx,
		`SELECT `+userViewColumns+` FROM users ORDER BY created_at DESC LIMIT $1`, recentLimit); err != nil {
		return nil, err
	}
	if s.RecentEmails, err = (&EmailRepository{db: r.db}).queryViews(ctx,
		`SELECT `+emailViewColumns+` `+emailViewFrom+` ORDER BY e.created_at DESC LIMIT $1`, recentLimit); err != nil {
		return nil, err
	}
	if s.RecentCardCodes, err = (&CardRepository{db: r.db}).query(ctx,
		`SELECT `+cardColumns+` FROM card_codes ORDER BY created_at DESC LIMIT $1`, recentLimit); err != nil {
		return nil, err
	}
	if s.RecentRechargeRecords, err = (&RechargeRepository{db: r.db}).query(ctx,
		`SELECT `+rechargeColumns+` FROM recharge_records ORDER BY created_at DESC LIMIT $1`, recentLimit); err != nil {
		return nil, err
	}

	if s.UserGrowth, err = r.growth(ctx, "users", now); err != nil {
		return nil, err
	}
	if s.EmailGrowth, err = r.growth(ctx, "email_records", now); err != nil {
		return nil, err
	}
	if s.RechargeGrowth, err = r.growth(ctx, "recharge_records", now); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StatsRepository) CountActiveUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE frequency > 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active users: %w", err)
	}
	return n, nil
}

// growth counts rows created per UTC day over the trailing window. table is
// always one of the constants above.
func (r *StatsRepository) growth(ctx context.Context, table string, now time.Time) ([]models.GrowthPoint, error) {
	since := windowStart(now)
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM `+table+`
		WHERE created_at >= $1
		GROUP BY day`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s growth: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("failed to scan %s growth: %w", table, err)
		}
		counts[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return growthSeries(counts, now), nil
}

func windowStart(now time.Time) time.Time {
	today := now.UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -(growthDays - 1))
}

// growthSeries lays counts out oldest first, one point per day, zero-filled.
func growthSeries(counts map[string]int, now time.Time) []models.GrowthPoint {
	start := windowStart(now)
	points := make([]models.GrowthPoint, 0, growthDays)
	for i := 0; i < growthDays; i++ {
		day := start.AddDate(0, 0, i).Format(dayLayout)
		points = append(points, models.GrowthPoint{Date: day, Count: counts[day]})
	}
	return points
}
