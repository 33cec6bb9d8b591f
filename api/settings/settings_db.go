package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"lattice/infrastructure/apperr"
	"lattice/infrastructure/schedule"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

// ErrSettingNotFound is returned for a key that was never saved.
var ErrSettingNotFound = apperr.Missing("Settings not found for this key.")

// GetSetting returns the stored JSON blob for key.
func GetSetting(ctx context.Context, db *sqlite.DB, key string) (json.RawMessage, error) {
	var row models.Setting
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&row).Where("key = ?", key).Limit(1).Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSettingNotFound
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(row.Value), nil
}

// SaveSetting upserts the JSON blob for key. The schedule key must decode
// into valid grid settings.
func SaveSetting(ctx context.Context, db *sqlite.DB, key string, value json.RawMessage) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperr.Validation("key is required")
	}
	if !json.Valid(value) {
		return apperr.Validation("value must be valid JSON")
	}
	if key == schedule.SettingsKey {
		var s schedule.Settings
		if err := json.Unmarshal(value, &s); err != nil {
			return apperr.Validation("schedule settings: %v", err)
		}
		if err := s.Validate(); err != nil {
			return apperr.Validation("schedule settings: %v", err)
		}
	}
	row := models.Setting{Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&row).
			On("CONFLICT (key) DO UPDATE").
			Set("value = EXCLUDED.value").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
}

// LoadScheduleSettings returns the saved grid settings, or the defaults.
func LoadScheduleSettings(ctx context.Context, db *sqlite.DB) (schedule.Settings, error) {
	raw, err := GetSetting(ctx, db, schedule.SettingsKey)
	if errors.Is(err, apperr.ErrNotFound) {
		return schedule.DefaultSettings(), nil
	}
	if err != nil {
		return schedule.Settings{}, err
	}
	s := schedule.DefaultSettings()
	if err := json.Unmarshal(raw, &s); err != nil {
		return schedule.Settings{}, err
	}
	return s, nil
}
