package query

import (
	"context"
	"time"

	"github.com/cfmail/console/internal/cloudflare"
	"github.com/cfmail/console/internal/models"
)

type SettingsSource interface {
	Get(ctx context.Context) (*models.SystemConfig, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

type UserViewReader interface {
	GetByID(ctx context.Context, id string) (*models.UserView, error)
	List(ctx context.Context) ([]models.UserView, error)
	Page(ctx context.Context, search string, pageNum, pageSize int) (*models.Page[models.UserView], error)
}

type EmailReader interface {
	GetByID(ctx context.Context, id string) (*models.EmailRecordView, error)
	ListByUser(ctx context.Context, userID string) ([]models.EmailRecord, error)
	ListAll(ctx context.Context) ([]models.EmailRecordView, error)
	Page(ctx context.Context, search string, pageNum, pageSize int) (*models.Page[models.EmailRecordView], error)
}

type RuleLister interface {
	ListRules(ctx context.Context) ([]cloudflare.Rule, error)
}

type CardReader interface {
	List(ctx context.Context) ([]models.CardCode, error)
	Page(ctx context.Context, search, status string, pageNum, pageSize int) (*models.Page[models.CardCode], error)
}

type RechargeReader interface {
	ListByUser(ctx context.Context, userID string) ([]models.RechargeRecord, error)
	ListAll(ctx context.Context) ([]models.RechargeRecord, error)
	Page(ctx context.Context, search, rechargeType string, pageNum, pageSize int) (*models.Page[models.RechargeRecord], error)
}

type StatsReader interface {
	Dashboard(ctx context.Context, now time.Time) (*models.DashboardStats, error)
	CountActiveUsers(ctx context.Context) (int, error)
}
