package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cfmail/console/internal/models"
	sharedredis "github.com/cfmail/console/internal/redis"
	goredis "github.com/redis/go-redis/v9"
)

const (
	settingsViewKey = "settings:view"
	settingsTTL     = 5 * time.Minute
)

// SettingsRepository stores the single system_config row as JSON. Reads are
// served from Redis because every request consults the settings.
type SettingsRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.SystemConfig]
}

func NewSettingsRepository(db *sql.DB, redisClient *goredis.Client) *SettingsRepository {
	return &SettingsRepository{
		db:    db,
		cache: sharedredis.NewViewCache[models.SystemConfig](redisClient, settingsTTL),
	}
}

// Get returns the stored settings, or the defaults when none were saved.
// Keys missing from the stored document keep their default values.
func (r *SettingsRepository) Get(ctx context.Context) (*models.SystemConfig, error) {
	return r.cache.Fetch(ctx, settingsViewKey, func(ctx context.Context) (*models.SystemConfig, error) {
		cfg := models.DefaultSystemConfig()
		var data []byte
		err := r.db.QueryRowContext(ctx, `SELECT data FROM system_config WHERE id = 1`).Scan(&data)
		if errors.Is(err, sql.ErrNoRows) {
			return &cfg, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode settings: %w", err)
		}
		return &cfg, nil
	})
}

func (r *SettingsRepository) Save(ctx context.Context, cfg *models.SystemConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO system_config (id, data, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	r.cache.Delete(ctx, settingsViewKey)
	return nil
}

// Reset drops the stored row so the defaults apply again.
func (r *SettingsRepository) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM system_config WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to reset settings: %w", err)
	}
	r.cache.Delete(ctx, settingsViewKey)
	return nil
}
