package query

import (
	"context"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/quota"
	"github.com/cfmail/console/internal/utils"
)

// UserInfo is the signed-in user's own view with their quota classified.
type UserInfo struct {
	models.UserView
	Quota quota.Summary `json:"quota"`
}

// UserQueryService handles all read operations for users.
type UserQueryService struct {
	views UserViewReader
}

func NewUserQueryService(views UserViewReader) *UserQueryService {
	return &UserQueryService{views: views}
}

// GetUser answers not found for ids that could never have been issued.
func (s *UserQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.UserView, error) {
	if !utils.ValidateUserID(q.UserID) {
		return nil, errs.ErrUserNotFound
	}
	return s.views.GetByID(ctx, q.UserID)
}

func (s *UserQueryService) UserInfo(ctx context.Context, q cqrs.GetUserQuery) (*UserInfo, error) {
	view, err := s.views.GetByID(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	return &UserInfo{UserView: *view, Quota: quota.Summarize(view.Frequency)}, nil
}

func (s *UserQueryService) ListUsers(ctx context.Context) ([]models.UserView, error) {
	return s.views.List(ctx)
}

func (s *UserQueryService) PageUsers(ctx context.Context, q cqrs.PageQuery) (*models.Page[models.UserView], error) {
	return s.views.Page(ctx, q.Search, q.PageNum, q.PageSize)
}
