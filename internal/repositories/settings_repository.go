package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
)

type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (*models.Setting, error)
	UpsertSetting(ctx context.Context, key, value string) (*models.Setting, error)
}

type settingsRepository struct {
	DB *sql.DB
}

func NewSettingsRepo(db *sql.DB) SettingsRepository {
	return &settingsRepository{DB: db}
}

func (r *settingsRepository) GetSetting(ctx context.Context, key string) (*models.Setting, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	setting := &models.Setting{}

	err := r.DB.QueryRowContext(dbCtx, `SELECT key, value, updated_at FROM settings WHERE key = $1`, key).
		Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get setting: %w", err)
	}

	return setting, nil
}

// UpsertSetting writes the value; the settings trigger announces the change
// on the settings_changed channel.
func (r *settingsRepository) UpsertSetting(ctx context.Context, key, value string) (*models.Setting, error) {
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING key, value, updated_at`

	setting := &models.Setting{}

	if err := r.DB.QueryRowContext(dbCtx, query, key, value).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to upsert setting: %w", err)
	}

	return setting, nil
}
