package query

import (
	"context"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/models"
)

type RechargeQueryService struct {
	recharges RechargeReader
}

func NewRechargeQueryService(recharges RechargeReader) *RechargeQueryService {
	return &RechargeQueryService{recharges: recharges}
}

func (s *RechargeQueryService) ListByUser(ctx context.Context, q cqrs.ListRechargeRecordsQuery) ([]models.RechargeRecord, error) {
	return s.recharges.ListByUser(ctx, q.UserID)
}

func (s *RechargeQueryService) ListAll(ctx context.Context) ([]models.RechargeRecord, error) {
	return s.recharges.ListAll(ctx)
}

func (s *RechargeQueryService) Page(ctx context.Context, q cqrs.PageQuery) (*models.Page[models.RechargeRecord], error) {
	return s.recharges.Page(ctx, q.Search, q.Type, q.PageNum, q.PageSize)
}
