package command

import (
	"context"
	"fmt"

	"github.com/cfmail/console/internal/cqrs"
	"github.com/cfmail/console/internal/errs"
	"github.com/cfmail/console/internal/models"
)

type SettingsCommandService struct {
	store SettingsStore
}

func NewSettingsCommandService(store SettingsStore) *SettingsCommandService {
	return &SettingsCommandService{store: store}
}

// Update replaces the whole configuration. Field ranges are validated by the
// handler; the cross-field rule lives here.
func (s *SettingsCommandService) Update(ctx context.Context, cmd cqrs.UpdateSettingsCommand) (*models.SystemConfig, error) {
	cfg := cmd.Config
	if cfg.DefaultQuota > cfg.MaxQuota {
		return nil, fmt.Errorf("%w: defaultQuota must not exceed maxQuota", errs.ErrInvalidArgument)
	}
	if err := s.store.Save(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *SettingsCommandService) Reset(ctx context.Context) (*models.SystemConfig, error) {
	if err := s.store.Reset(ctx); err != nil {
		return nil, err
	}
	cfg := models.DefaultSystemConfig()
	return &cfg, nil
}
