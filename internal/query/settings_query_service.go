package query

import (
	"context"

	"github.com/cfmail/console/internal/models"
)

type SettingsQueryService struct {
	settings SettingsSource
}

func NewSettingsQueryService(settings SettingsSource) *SettingsQueryService {
	return &SettingsQueryService{settings: settings}
}

func (s *SettingsQueryService) Get(ctx context.Context) (*models.SystemConfig, error) {
	return s.settings.Get(ctx)
}

// Public is served without authentication to the sign-in page.
func (s *SettingsQueryService) Public(ctx context.Context) (*models.PublicSettings, error) {
	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	public := cfg.Public()
	return &public, nil
}
