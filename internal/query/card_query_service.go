package query

import (
	"context"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/models"
)

type CardQueryService struct {
	cards CardReader
}

func NewCardQueryService(cards CardReader) *CardQueryService {
	return &CardQueryService{cards: cards}
}

func (s *CardQueryService) List(ctx context.Context) ([]models.CardCode, error) {
	return s.cards.List(ctx)
}

func (s *CardQueryService) Page(ctx context.Context, q cqrs.PageQuery) (*models.Page[models.CardCode], error) {
	return s.cards.Page(ctx, q.Search, q.Status, q.PageNum, q.PageSize)
}
