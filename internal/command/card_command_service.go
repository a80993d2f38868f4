package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/utils"
)

const (
	MaxCardBatch = 1000

	// generateAttempts bounds retries when a generated code collides with an
	// existing one.
	generateAttempts = 3
)

type CardCommandService struct {
	cards CardStore
	now   func() time.Time
}

func NewCardCommandService(cards CardStore) *CardCommandService {
	return &CardCommandService{cards: cards, now: func() time.Time { return time.Now().UTC() }}
}

// Generate creates count unused codes worth value each. validDays of zero
// means the codes never expire.
func (s *CardCommandService) Generate(ctx context.Context, cmd cqrs.GenerateCardCodesCommand) ([]models.CardCode, error) {
	switch {
	case cmd.Value <= 0:
		return nil, fmt.Errorf("%w: value must be greater than zero", errs.ErrInvalidArgument)
	case cmd.Count < 1 || cmd.Count > MaxCardBatch:
		return nil, fmt.Errorf("%w: count must be between 1 and %d", errs.ErrInvalidArgument, MaxCardBatch)
	case cmd.ValidDays < 0:
		return nil, fmt.Errorf("%w: validDays must not be negative", errs.ErrInvalidArgument)
	}

	var err error
	for attempt := 0; attempt < generateAttempts; attempt++ {
		codes := s.buildCodes(cmd)
		if err = s.cards.CreateBatch(ctx, codes); err == nil {
			return codes, nil
		}
		if !errors.Is(err, errs.ErrConflict) {
			return nil, err
		}
	}
	return nil, err
}

func (s *CardCommandService) buildCodes(cmd cqrs.GenerateCardCodesCommand) []models.CardCode {
	now := s.now()
	var expiresAt *time.Time
	if cmd.ValidDays > 0 {
		t := now.AddDate(0, 0, cmd.ValidDays)
		expiresAt = &t
	}
	description := strings.TrimSpace(cmd.Description)

	seen := make(map[string]struct{}, cmd.Count)
	codes := make([]models.CardCode, 0, cmd.Count)
	for len(codes) < cmd.Count {
		code := utils.GenerateCardCode()
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, models.CardCode{
			ID:          utils.GenerateID("crd"),
			Code:        code,
			Value:       cmd.Value,
			Status:      models.CardStatusUnused,
			ExpiresAt:   expiresAt,
			Description: description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return codes
}

func (s *CardCommandService) Disable(ctx context.Context, cmd cqrs.CardCodeCommand) (*models.CardCode, error) {
	return s.cards.Transition(ctx, cmd.ID, models.CardStatusUnused, models.CardStatusDisabled)
}

func (s *CardCommandService) Enable(ctx context.Context, cmd cqrs.CardCodeCommand) (*models.CardCode, error) {
	return s.cards.Transition(ctx, cmd.ID, models.CardStatusDisabled, models.CardStatusUnused)
}

func (s *CardCommandService) Delete(ctx context.Context, cmd cqrs.CardCodeCommand) error {
	return s.cards.Delete(ctx, cmd.ID)
}

func (s *CardCommandService) DeleteBatch(ctx context.Context, cmd cqrs.DeleteCardCodesCommand) (int64, error) {
	if len(cmd.IDs) == 0 {
		return 0, fmt.Errorf("%w: no card codes selected", errs.ErrInvalidArgument)
	}
	return s.cards.DeleteBatch(ctx, cmd.IDs)
}

// CleanExpired deletes unused codes past their expiry.
func (s *CardCommandService) CleanExpired(ctx context.Context) (int64, error) {
	return s.cards.DeleteExpired(ctx, s.now())
}
