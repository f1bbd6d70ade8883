package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"taskbot/internal/model"
)

// SettingsRepository owns per-user notification preferences. Rows are created
// lazily with defaults on first read or write (ensure-exists is part of the
// contract).
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetOrDefault ensures a row exists with defaults, then returns it.
func (r *SettingsRepository) GetOrDefault(ctx context.Context, userID int64) (*model.Settings, error) {
	settings := model.DefaultSettings(userID)
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).FirstOrCreate(&settings).Error; err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &settings, nil
}

// ListAll returns every stored settings row. Users without a row fall back to
// model.DefaultSettings on the caller's side.
func (r *SettingsRepository) ListAll(ctx context.Context) ([]model.Settings, error) {
	var rows []model.Settings
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return rows, nil
}

// SettingsPatch carries the fields of an update; nil fields are left untouched.
type SettingsPatch struct {
	Muted     *bool
	StartHour *int
	EndHour   *int
}

// Update writes only the supplied fields, clamping hours to [0, 24] before
// storage. An empty patch is a no-op beyond ensuring the row exists.
func (r *SettingsRepository) Update(ctx context.Context, userID int64, patch SettingsPatch) (*model.Settings, error) {
	settings, err := r.GetOrDefault(ctx, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if patch.Muted != nil {
		updates["muted"] = *patch.Muted
	}
	if patch.StartHour != nil {
		updates["start_hour"] = clampHour(*patch.StartHour)
	}
	if patch.EndHour != nil {
		updates["end_hour"] = clampHour(*patch.EndHour)
	}
	if len(updates) == 0 {
		return settings, nil
	}

	if err := r.db.WithContext(ctx).Model(settings).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return settings, nil
}

func clampHour(h int) int {
	if h < 0 {
		return 0
	}
	if h > 24 {
		return 24
	}
	return h
}
