package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cfmail/console/internal/cloudflare"
	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/events"
	"github.com/cfmail/console/internal/metrics"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/quota"
	"github.com/cfmail/console/internal/utils"
)

// RuleResult is returned when a user spends quota on a new address.
type RuleResult struct {
	Record    models.EmailRecord `json:"record"`
	Rule      *cloudflare.Rule   `json:"rule"`
	Frequency int                `json:"frequency"`
}

// EmailCommandService keeps Cloudflare routing rules and the local
// email_records mirror in step.
type EmailCommandService struct {
	users     UserStore
	views     UserViewCache
	emails    EmailStore
	rules     RuleClient
	publisher EventPublisher
}

func NewEmailCommandService(
	users UserStore,
	views UserViewCache,
	emails EmailStore,
	rules RuleClient,
	publisher EventPublisher,
) *EmailCommandService {
	return &EmailCommandService{
		users:     users,
		views:     views,
		emails:    emails,
		rules:     rules,
		publisher: publisher,
	}
}

// CreateForwardingRule creates prefix@domain for the user, forwarding to
// their registered email, and takes one unit of quota. The Cloudflare rule is
// created first; if the local write fails it is deleted again.
func (s *EmailCommandService) CreateForwardingRule(ctx context.Context, cmd cqrs.CreateRuleCommand) (*RuleResult, error) {
	prefix := strings.TrimSpace(cmd.Prefix)
	if !cloudflare.ValidPrefix(prefix) {
		return nil, errs.ErrInvalidPrefix
	}
	user, err := s.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if !quota.HasQuota(user.Frequency) {
		return nil, errs.ErrInsufficientQuota
	}

	address := s.rules.Address(prefix)
	if err := s.ensureAddressFree(ctx, address); err != nil {
		return nil, err
	}

	rule, err := s.rules.CreateRule(ctx, prefix, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to create forwarding rule: %w", err)
	}

	now := time.Now().UTC()
	rec := &models.EmailRecord{
		ID:        utils.GenerateID("eml"),
		UserID:    user.ID,
		Email:     address,
		ToEmail:   utils.NormalizeEmail(user.Email),
		RuleID:    rule.Identifier(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	remaining, err := s.emails.CreateWithQuota(ctx, rec)
	if err != nil {
		if delErr := s.rules.DeleteRule(ctx, rec.RuleID); delErr != nil {
			log.Printf("Failed to roll back rule %s after write error: %v", rec.RuleID, delErr)
		}
		return nil, err
	}
	metrics.QuotaConsumedTotal.Inc()
	s.views.InvalidateUserView(ctx, user.ID)

	publish(ctx, s.publisher, events.EmailEventsStream, events.EmailCreated, events.EmailCreatedEvent{
		RecordID: rec.ID,
		UserID:   user.ID,
		Email:    rec.Email,
		ToEmail:  rec.ToEmail,
		RuleID:   rec.RuleID,
	})
	publishQuotaChange(ctx, s.publisher, user.ID, user.Username, user.Email, remaining+1, remaining, events.ReasonRuleCreated)

	return &RuleResult{Record: *rec, Rule: rule, Frequency: remaining}, nil
}

// UpdateRule rewrites a rule at Cloudflare. An empty forwardTo keeps the
// destination stored on the matching record.
func (s *EmailCommandService) UpdateRule(ctx context.Context, cmd cqrs.UpdateRuleCommand) (*cloudflare.Rule, error) {
	prefix := strings.TrimSpace(cmd.Prefix)
	if !cloudflare.ValidPrefix(prefix) {
		return nil, errs.ErrInvalidPrefix
	}
	rec, err := s.emails.GetByRuleID(ctx, cmd.RuleID)
	if err != nil && !errors.Is(err, errs.ErrEmailNotFound) {
		return nil, err
	}
	forwardTo := utils.NormalizeEmail(cmd.ForwardTo)
	if forwardTo == "" {
		if rec == nil {
			return nil, fmt.Errorf("%w: forwardTo is required for rules without a record", errs.ErrInvalidArgument)
		}
		forwardTo = rec.ToEmail
	}
	address := s.rules.Address(prefix)
	if rec != nil && !strings.EqualFold(address, rec.Email) {
		if err := s.ensureAddressFree(ctx, address); err != nil {
			return nil, err
		}
	}

	rule, err := s.rules.UpdateRule(ctx, cmd.RuleID, prefix, forwardTo)
	if err != nil {
		return nil, fmt.Errorf("failed to update forwarding rule: %w", err)
	}

	if rec != nil {
		rec.Email = address
		rec.ToEmail = forwardTo
		rec.UpdatedAt = time.Now().UTC()
		if err := s.emails.Update(ctx, rec); err != nil {
			return nil, fmt.Errorf("rule %s updated but record %s was not: %w", cmd.RuleID, rec.ID, err)
		}
	}
	return rule, nil
}

// DeleteRule removes the rule and the record mirroring it, if any.
func (s *EmailCommandService) DeleteRule(ctx context.Context, cmd cqrs.DeleteRuleCommand) error {
	if err := s.rules.DeleteRule(ctx, cmd.RuleID); err != nil {
		return fmt.Errorf("failed to delete forwarding rule: %w", err)
	}
	rec, err := s.emails.DeleteByRuleID(ctx, cmd.RuleID)
	if errors.Is(err, errs.ErrEmailNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.publishDeleted(ctx, *rec)
	return nil
}

// CreateRecord stores a record without touching Cloudflare or quota.
func (s *EmailCommandService) CreateRecord(ctx context.Context, cmd cqrs.CreateEmailRecordCommand) (*models.EmailRecord, error) {
	if _, err := s.users.GetByID(ctx, cmd.UserID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rec := &models.EmailRecord{
		ID:        utils.GenerateID("eml"),
		UserID:    cmd.UserID,
		Email:     utils.NormalizeEmail(cmd.Email),
		ToEmail:   utils.NormalizeEmail(cmd.ToEmail),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.emails.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *EmailCommandService) UpdateRecord(ctx context.Context, cmd cqrs.UpdateEmailRecordCommand) (*models.EmailRecord, error) {
	view, err := s.emails.GetByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	rec := view.EmailRecord
	if cmd.Email != "" {
		rec.Email = utils.NormalizeEmail(cmd.Email)
	}
	if cmd.ToEmail != "" {
		rec.ToEmail = utils.NormalizeEmail(cmd.ToEmail)
	}
	rec.UpdatedAt = time.Now().UTC()
	if err := s.emails.Update(ctx, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteRecord lets owners remove their own records. The linked rule is
// removed at Cloudflare on a best-effort basis.
func (s *EmailCommandService) DeleteRecord(ctx context.Context, cmd cqrs.DeleteEmailRecordCommand) error {
	view, err := s.emails.GetByID(ctx, cmd.ID)
	if err != nil {
		return err
	}
	if !cmd.IsAdmin && view.UserID != cmd.RequestingUserID {
		return errs.ErrForbidden
	}
	rec, err := s.emails.Delete(ctx, cmd.ID)
	if err != nil {
		return err
	}
	deleteRules(ctx, s.rules, []models.EmailRecord{*rec})
	s.publishDeleted(ctx, *rec)
	return nil
}

func (s *EmailCommandService) DeleteRecords(ctx context.Context, cmd cqrs.DeleteEmailRecordsCommand) (int, error) {
	if len(cmd.IDs) == 0 {
		return 0, fmt.Errorf("%w: no records selected", errs.ErrInvalidArgument)
	}
	deleted, err := s.emails.DeleteBatch(ctx, cmd.IDs)
	if err != nil {
		return 0, err
	}
	deleteRules(ctx, s.rules, deleted)
	for _, rec := range deleted {
		s.publishDeleted(ctx, rec)
	}
	return len(deleted), nil
}

func (s *EmailCommandService) ensureAddressFree(ctx context.Context, address string) error {
	_, err := s.emails.GetByAddress(ctx, address)
	switch {
	case err == nil:
		return errs.ErrAddressTaken
	case errors.Is(err, errs.ErrEmailNotFound):
		return nil
	default:
		return err
	}
}

func (s *EmailCommandService) publishDeleted(ctx context.Context, rec models.EmailRecord) {
	publish(ctx, s.publisher, events.EmailEventsStream, events.EmailDeleted, events.EmailDeletedEvent{
		RecordID: rec.ID,
		UserID:   rec.UserID,
		Email:    rec.Email,
	})
}

// deleteRules removes the Cloudflare rules behind deleted records. Failures
// are logged; the local rows are already gone.
func deleteRules(ctx context.Context, rules RuleClient, records []models.EmailRecord) {
	if rules == nil {
		return
	}
	for _, rec := range records {
		if rec.RuleID == "" {
			continue
		}
		if err := rules.DeleteRule(ctx, rec.RuleID); err != nil {
			log.Printf("Failed to delete rule %s for record %s: %v", rec.RuleID, rec.ID, err)
		}
	}
}
