package query

import (
	"context"
	"strings"

	"github.com/cfmail/console/internal/cloudflare"
	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/models"
)

type EmailQueryService struct {
	emails EmailReader
	rules  RuleLister
}

func NewEmailQueryService(emails EmailReader, rules RuleLister) *EmailQueryService {
	return &EmailQueryService{emails: emails, rules: rules}
}

// GetRecord returns a record to its owner or to an admin.
func (s *EmailQueryService) GetRecord(ctx context.Context, q cqrs.GetEmailRecordQuery) (*models.EmailRecordView, error) {
	rec, err := s.emails.GetByID(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	if !q.IsAdmin && rec.UserID != q.RequestingUserID {
		return nil, errs.ErrForbidden
	}
	return rec, nil
}

func (s *EmailQueryService) ListByUser(ctx context.Context, q cqrs.ListUserEmailsQuery) ([]models.EmailRecord, error) {
	if !q.IsAdmin && q.UserID != q.RequestingUserID {
		return nil, errs.ErrForbidden
	}
	return s.emails.ListByUser(ctx, q.UserID)
}

func (s *EmailQueryService) ListAll(ctx context.Context) ([]models.EmailRecordView, error) {
	return s.emails.ListAll(ctx)
}

func (s *EmailQueryService) Page(ctx context.Context, q cqrs.PageQuery) (*models.Page[models.EmailRecordView], error) {
	return s.emails.Page(ctx, q.Search, q.PageNum, q.PageSize)
}

// ListRules returns the zone's routing rules. Non-admins only see rules for
// addresses they hold a record for.
func (s *EmailQueryService) ListRules(ctx context.Context, q cqrs.ListRulesQuery) ([]cloudflare.Rule, error) {
	rules, err := s.rules.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	if q.IsAdmin {
		return rules, nil
	}

	records, err := s.emails.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]struct{}, len(records))
	for _, rec := range records {
		owned[strings.ToLower(rec.Email)] = struct{}{}
	}
	visible := []cloudflare.Rule{}
	for _, rule := range rules {
		if _, ok := owned[strings.ToLower(rule.Address())]; ok {
			visible = append(visible, rule)
		}
	}
	return visible, nil
}
