package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/events"
	"github.com/cfmail/console/internal/metrics"
	"github.com/cfmail/console/internal/repository"
	"github.com/cfmail/console/internal/utils"
)

type RechargeCommandService struct {
	recharges RechargeStore
	views     UserViewCache
	settings  SettingsSource
	publisher EventPublisher
	now       func() time.Time
}

func NewRechargeCommandService(
	recharges RechargeStore,
	views UserViewCache,
	settings SettingsSource,
	publisher EventPublisher,
) *RechargeCommandService {
	return &RechargeCommandService{
		recharges: recharges,
		views:     views,
		settings:  settings,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RedeemCard spends a card code on the caller's balance.
func (s *RechargeCommandService) RedeemCard(ctx context.Context, cmd cqrs.RedeemCardCommand) (*repository.RechargeResult, error) {
	code := utils.NormalizeCardCode(cmd.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: card code is required", errs.ErrInvalidArgument)
	}
	result, err := s.recharges.RedeemCard(ctx, repository.RedeemParams{
		Code:     code,
		UserID:   cmd.UserID,
		RecordID: utils.GenerateID("rch"),
		Now:      s.now(),
	})
	metrics.CardRedemptionsTotal.WithLabelValues(redemptionOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	user := result.User
	s.views.InvalidateUserView(ctx, user.ID)
	publish(ctx, s.publisher, events.QuotaEventsStream, events.CardRedeemed, events.CardRedeemedEvent{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Code:     result.Record.CardCode,
		Value:    result.Record.Amount,
		Before:   result.Record.BeforeBalance,
		After:    result.Record.AfterBalance,
	})
	publishQuotaChange(ctx, s.publisher, user.ID, user.Username, user.Email,
		result.Record.BeforeBalance, result.Record.AfterBalance, events.ReasonCardRedeemed)
	return result, nil
}

// AdminRecharge credits a user directly, bounded by maxQuota.
func (s *RechargeCommandService) AdminRecharge(ctx context.Context, cmd cqrs.AdminRechargeCommand) (*repository.RechargeResult, error) {
	if cmd.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", errs.ErrInvalidArgument)
	}
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(cmd.Description)
	if description == "" {
		description = "Admin recharge"
	}
	result, err := s.recharges.AdminRecharge(ctx, repository.AdminRechargeParams{
		UserID:      cmd.UserID,
		Amount:      cmd.Amount,
		MaxQuota:    cfg.MaxQuota,
		AdminID:     cmd.AdminID,
		AdminName:   cmd.AdminName,
		Description: description,
		RecordID:    utils.GenerateID("rch"),
		Now:         s.now(),
	})
	if err != nil {
		return nil, err
	}

	user := result.User
	s.views.InvalidateUserView(ctx, user.ID)
	publishQuotaChange(ctx, s.publisher, user.ID, user.Username, user.Email,
		result.Record.BeforeBalance, result.Record.AfterBalance, events.ReasonAdminRecharge)
	return result, nil
}

func (s *RechargeCommandService) DeleteRecord(ctx context.Context, cmd cqrs.DeleteRechargeRecordCommand) error {
	return s.recharges.Delete(ctx, cmd.ID)
}

func redemptionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errs.ErrCardNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrCardUsed):
		return "used"
	case errors.Is(err, errs.ErrCardDisabled):
		return "disabled"
	case errors.Is(err, errs.ErrCardExpired):
		return "expired"
	default:
		return "error"
	}
}
