package command

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/models"
)

var cardCodePattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{4}(-[A-HJ-NP-Z2-9]{4}){3}$`)

func TestGenerateCardCodes(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := &mockCardStore{}
	svc := NewCardCommandService(store)
	svc.now = func() time.Time { return now }

	codes, err := svc.Generate(context.Background(), cqrs.GenerateCardCodesCommand{Value: 10, Count: 25, ValidDays: 30, Description: " promo "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(codes) != 25 {
		t.Fatalf("expected 25 codes, got %d", len(codes))
	}
	seen := map[string]bool{}
	for _, c := range codes {
		if !cardCodePattern.MatchString(c.Code) {
			t.Errorf("bad code format %q", c.Code)
		}
		if seen[c.Code] {
			t.Errorf("duplicate code %q", c.Code)
		}
		seen[c.Code] = true
		if c.Status != models.CardStatusUnused || c.Value != 10 || c.Description != "promo" {
			t.Errorf("unexpected card %+v", c)
		}
		if c.ExpiresAt == nil || !c.ExpiresAt.Equal(now.AddDate(0, 0, 30)) {
			t.Errorf("unexpected expiry %v", c.ExpiresAt)
		}
	}
}

func TestGenerateCardCodesNoExpiry(t *testing.T) {
	svc := NewCardCommandService(&mockCardStore{})
	codes, err := svc.Generate(context.Background(), cqrs.GenerateCardCodesCommand{Value: 1, Count: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if codes[0].ExpiresAt != nil {
		t.Error("expected no expiry when validDays is zero")
	}
}

func TestGenerateCardCodesValidation(t *testing.T) {
	tests := []struct {
		name string
		cmd  cqrs.GenerateCardCodesCommand
	}{
		{"zero value", cqrs.GenerateCardCodesCommand{Value: 0, Count: 1}},
		{"zero count", cqrs.GenerateCardCodesCommand{Value: 1, Count: 0}},
		{"count too large", cqrs.GenerateCardCodesCommand{Value: 1, Count: MaxCardBatch + 1}},
		{"negative days", cqrs.GenerateCardCodesCommand{Value: 1, Count: 1, ValidDays: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockCardStore{}
			_, err := NewCardCommandService(store).Generate(context.Background(), tt.cmd)
			if !errors.Is(err, errs.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
			if store.batches != 0 {
				t.Error("expected nothing to be stored")
			}
		})
	}
}

func TestGenerateCardCodesRetriesCollision(t *testing.T) {
	store := &mockCardStore{}
	store.createBatchFn = func([]models.CardCode) error {
		if store.batches == 1 {
			return errs.ErrConflict
		}
		return nil
	}
	if _, err := NewCardCommandService(store).Generate(context.Background(), cqrs.GenerateCardCodesCommand{Value: 1, Count: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.batches != 2 {
		t.Errorf("expected a retry, got %d attempts", store.batches)
	}
}

func TestCardTransitions(t *testing.T) {
	var gotFrom, gotTo string
	store := &mockCardStore{transitionFn: func(id, from, to string) (*models.CardCode, error) {
		gotFrom, gotTo = from, to
		return &models.CardCode{ID: id, Status: to}, nil
	}}
	svc := NewCardCommandService(store)

	if _, err := svc.Disable(context.Background(), cqrs.CardCodeCommand{ID: "crd-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFrom != models.CardStatusUnused || gotTo != models.CardStatusDisabled {
		t.Errorf("disable used %s -> %s", gotFrom, gotTo)
	}
	if _, err := svc.Enable(context.Background(), cqrs.CardCodeCommand{ID: "crd-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFrom != models.CardStatusDisabled || gotTo != models.CardStatusUnused {
		t.Errorf("enable used %s -> %s", gotFrom, gotTo)
	}
}

func TestCleanExpiredUsesClock(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var got time.Time
	svc := NewCardCommandService(&mockCardStore{deleteExpiredFn: func(t time.Time) (int64, error) {
		got = t
		return 4, nil
	}})
	svc.now = func() time.Time { return now }

	n, err := svc.CleanExpired(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("expected 4, got %d %v", n, err)
	}
	if !got.Equal(now) {
		t.Errorf("expected cutoff %v, got %v", now, got)
	}
}
