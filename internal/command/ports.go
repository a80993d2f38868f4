package command

import (
	"context"
	"time"

	"github.com/cfmail/console/internal/cloudflare"
	"github.com/cfmail/console/internal/models"
	"github.com/cfmail/console/internal/repository"
)

// EventPublisher appends an event to a Redis stream.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

type SettingsSource interface {
	Get(ctx context.Context) (*models.SystemConfig, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetFrequency(ctx context.Context, id string, frequency int) (*models.User, error)
	AddFrequency(ctx context.Context, id string, delta, max int) (*models.User, error)
	SetPermissions(ctx context.Context, id, permissions string) error
	Delete(ctx context.Context, id string) error
	DeleteBatch(ctx context.Context, ids []string) (int64, error)
}

type UserViewCache interface {
	CacheUserView(ctx context.Context, view *models.UserView)
	InvalidateUserView(ctx context.Context, userIDs ...string)
}

type EmailStore interface {
	CreateWithQuota(ctx context.Context, rec *models.EmailRecord) (int, error)
	Create(ctx context.Context, rec *models.EmailRecord) error
	GetByID(ctx context.Context, id string) (*models.EmailRecordView, error)
	GetByAddress(ctx context.Context, email string) (*models.EmailRecord, error)
	GetByRuleID(ctx context.Context, ruleID string) (*models.EmailRecord, error)
	ListByUsers(ctx context.Context, userIDs []string) ([]models.EmailRecord, error)
	Update(ctx context.Context, rec *models.EmailRecord) error
	Delete(ctx context.Context, id string) (*models.EmailRecord, error)
	DeleteByRuleID(ctx context.Context, ruleID string) (*models.EmailRecord, error)
	DeleteBatch(ctx context.Context, ids []string) ([]models.EmailRecord, error)
}

// RuleClient is the slice of the Cloudflare client that manages routing rules.
type RuleClient interface {
	Address(prefix string) string
	CreateRule(ctx context.Context, prefix, forwardTo string) (*cloudflare.Rule, error)
	UpdateRule(ctx context.Context, id, prefix, forwardTo string) (*cloudflare.Rule, error)
	DeleteRule(ctx context.Context, id string) error
}

type DestinationRegistrar interface {
	CreateDestinationAddress(ctx context.Context, email string) (*cloudflare.DestinationAddress, error)
}

type CardStore interface {
	CreateBatch(ctx context.Context, codes []models.CardCode) error
	Transition(ctx context.Context, id, from, to string) (*models.CardCode, error)
	Delete(ctx context.Context, id string) error
	DeleteBatch(ctx context.Context, ids []string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type RechargeStore interface {
	RedeemCard(ctx context.Context, p repository.RedeemParams) (*repository.RechargeResult, error)
	AdminRecharge(ctx context.Context, p repository.AdminRechargeParams) (*repository.RechargeResult, error)
	Delete(ctx context.Context, id string) error
}

type SettingsStore interface {
	SettingsSource
	Save(ctx context.Context, cfg *models.SystemConfig) error
	Reset(ctx context.Context) error
}
