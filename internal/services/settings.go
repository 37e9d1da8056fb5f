package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HerbHall/wlanmon/internal/store"
)

// Setting represents a key-value configuration entry.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsRepository provides access to persisted preferences.
type SettingsRepository interface {
	// Get returns a single setting by key.
	Get(ctx context.Context, key string) (*Setting, error)

	// Set creates or updates a setting.
	Set(ctx context.Context, key, value string) error
}

// Compile-time interface guard.
var _ SettingsRepository = (*SQLSettingsRepository)(nil)

// SQLSettingsRepository implements SettingsRepository on the core_settings
// table.
type SQLSettingsRepository struct {
	db *store.DB
}

// NewSQLSettingsRepository creates a SettingsRepository and runs the
// core_settings migration.
func NewSQLSettingsRepository(ctx context.Context, db *store.DB) (*SQLSettingsRepository, error) {
	if err := db.Migrate(ctx, "core", settingsMigrations); err != nil {
		return nil, fmt.Errorf("core settings migrations: %w", err)
	}
	return &SQLSettingsRepository{db: db}, nil
}

func (r *SQLSettingsRepository) Get(ctx context.Context, key string) (*Setting, error) {
	var s Setting
	err := r.db.DB().QueryRowContext(ctx,
		r.db.Rebind(`SELECT key, value, updated_at FROM core_settings WHERE key = ?`), key,
	).Scan(&s.Key, &s.Value, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get setting %q: %w", key, err)
	}
	return &s, nil
}

func (r *SQLSettingsRepository) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC()
	_, err := r.db.DB().ExecContext(ctx, r.db.Rebind(`
		INSERT INTO core_settings (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, value, now,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// settingsMigrations defines the database schema for core_settings.
var settingsMigrations = []store.Migration{
	{
		Version:     1,
		Description: "create core_settings table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE core_settings (
					key        TEXT PRIMARY KEY,
					value      TEXT NOT NULL,
					updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`)
			return err
		},
	},
}
