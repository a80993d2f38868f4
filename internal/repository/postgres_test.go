package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/cfmail/console/internal/db"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/utils"
)

// openTestDB connects to TEST_DATABASE_URL and skips when it is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	conn, err := db.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.InitSchema(ctx, conn); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return conn
}

func seedUser(t *testing.T, conn *sql.DB, frequency int) *models.User {
	t.Helper()
	now := time.Now().UTC()
	id := utils.GenerateID("usr")
	user := &models.User{
		ID:           id,
		Username:     id,
		Email:        id + "@example.com",
		PasswordHash: "x",
		Frequency:    frequency,
		Permissions:  models.PermissionUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := NewUserWriteRepository(conn).Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.Exec(`DELETE FROM users WHERE id = $1`, id)
	})
	return user
}

func seedCard(t *testing.T, conn *sql.DB, value int, expiresAt *time.Time) models.CardCode {
	t.Helper()
	now := time.Now().UTC()
	card := models.CardCode{
		ID:        utils.GenerateID("card"),
		Code:      utils.GenerateCardCode(),
		Value:     value,
		Status:    models.CardStatusUnused,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := NewCardRepository(conn).CreateBatch(context.Background(), []models.CardCode{card}); err != nil {
		t.Fatalf("seed card: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.Exec(`DELETE FROM card_codes WHERE id = $1`, card.ID)
	})
	return card
}

func frequencyOf(t *testing.T, conn *sql.DB, userID string) int {
	t.Helper()
	user, err := NewUserWriteRepository(conn).GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return user.Frequency
}

func TestPostgresCreateWithQuotaNeedsBalance(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	emails := NewEmailRepository(conn)
	user := seedUser(t, conn, 1)

	newRecord := func() *models.EmailRecord {
		id := utils.GenerateID("eml")
		now := time.Now().UTC()
		return &models.EmailRecord{ID: id, UserID: user.ID, Email: id + "@mail.example.com", ToEmail: user.Email, CreatedAt: now, UpdatedAt: now}
	}

	remaining, err := emails.CreateWithQuota(ctx, newRecord())
	if err != nil || remaining != 0 {
		t.Fatalf("expected first record to spend the last unit, got %d %v", remaining, err)
	}

	second := newRecord()
	if _, err := emails.CreateWithQuota(ctx, second); !errors.Is(err, errs.ErrInsufficientQuota) {
		t.Fatalf("expected ErrInsufficientQuota, got %v", err)
	}
	if _, err := emails.GetByAddress(ctx, second.Email); !errors.Is(err, errs.ErrEmailNotFound) {
		t.Errorf("expected rejected record to be rolled back, got %v", err)
	}
	if got := frequencyOf(t, conn, user.ID); got != 0 {
		t.Errorf("expected balance 0, got %d", got)
	}
}

func TestPostgresRedeemCardRejections(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	recharges := NewRechargeRepository(conn)
	user := seedUser(t, conn, 2)
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	expired := seedCard(t, conn, 5, &past)
	_, err := recharges.RedeemCard(ctx, RedeemParams{Code: expired.Code, UserID: user.ID, RecordID: utils.GenerateID("rch"), Now: now})
	if !errors.Is(err, errs.ErrCardExpired) {
		t.Fatalf("expected ErrCardExpired, got %v", err)
	}

	card := seedCard(t, conn, 3, nil)
	result, err := recharges.RedeemCard(ctx, RedeemParams{Code: card.Code, UserID: user.ID, RecordID: utils.GenerateID("rch"), Now: now})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.Record.BeforeBalance != 2 || result.Record.AfterBalance != 5 {
		t.Errorf("unexpected balances: %+v", result.Record)
	}

	_, err = recharges.RedeemCard(ctx, RedeemParams{Code: card.Code, UserID: user.ID, RecordID: utils.GenerateID("rch"), Now: now})
	if !errors.Is(err, errs.ErrCardUsed) {
		t.Fatalf("expected ErrCardUsed, got %v", err)
	}
	if got := frequencyOf(t, conn, user.ID); got != 5 {
		t.Errorf("expected balance 5 after one redemption, got %d", got)
	}
}

func TestPostgresAddFrequencyCap(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	users := NewUserWriteRepository(conn)
	user := seedUser(t, conn, 8)

	if _, err := users.AddFrequency(ctx, user.ID, 3, 10); !errors.Is(err, errs.ErrQuotaLimit) {
		t.Fatalf("expected ErrQuotaLimit, got %v", err)
	}
	updated, err := users.AddFrequency(ctx, user.ID, 2, 10)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if updated.Frequency != 10 {
		t.Errorf("expected balance at the cap, got %d", updated.Frequency)
	}
	if _, err := users.AddFrequency(ctx, "usr-missing", 1, 10); !errors.Is(err, errs.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestPostgresUpdateLeavesBalance(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	users := NewUserWriteRepository(conn)
	user := seedUser(t, conn, 5)

	stale, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := users.SetFrequency(ctx, user.ID, 4); err != nil {
		t.Fatalf("set: %v", err)
	}

	stale.Email = "renamed-" + user.Email
	stale.UpdatedAt = time.Now().UTC()
	if err := users.Update(ctx, stale); err != nil {
		t.Fatalf("update: %v", err)
	}

	current, err := users.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Frequency != 4 || current.Email != stale.Email {
		t.Errorf("expected new email and untouched balance, got %+v", current)
	}
}
