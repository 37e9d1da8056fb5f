package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HerbHall/wlanmon/internal/store"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// SnapshotRepository caches the last-known device collection and alert log
// so a restart can show state before the backend answers.
type SnapshotRepository interface {
	// SaveDevices replaces the cached device collection.
	SaveDevices(ctx context.Context, devices []models.Device) error

	// LoadDevices returns the cached devices in their saved order.
	LoadDevices(ctx context.Context) ([]models.Device, error)

	// SaveAlerts replaces the cached alert log.
	SaveAlerts(ctx context.Context, alerts []models.Alert) error

	// LoadAlerts returns the cached alerts, oldest first.
	LoadAlerts(ctx context.Context) ([]models.Alert, error)
}

// Compile-time interface guard.
var _ SnapshotRepository = (*SQLSnapshotRepository)(nil)

// SQLSnapshotRepository implements SnapshotRepository on the cache_devices
// and cache_alerts tables. Rows hold the JSON wire form of each record.
type SQLSnapshotRepository struct {
	db *store.DB
}

// NewSQLSnapshotRepository creates a SnapshotRepository and runs the cache
// migrations.
func NewSQLSnapshotRepository(ctx context.Context, db *store.DB) (*SQLSnapshotRepository, error) {
	if err := db.Migrate(ctx, "cache", cacheMigrations); err != nil {
		return nil, fmt.Errorf("cache migrations: %w", err)
	}
	return &SQLSnapshotRepository{db: db}, nil
}

func (r *SQLSnapshotRepository) SaveDevices(ctx context.Context, devices []models.Device) error {
	return r.replace(ctx, "cache_devices", len(devices), func(i int) (string, any) {
		return devices[i].ID, devices[i]
	})
}

func (r *SQLSnapshotRepository) LoadDevices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	err := r.load(ctx, "cache_devices", func(payload []byte) error {
		var d models.Device
		if err := json.Unmarshal(payload, &d); err != nil {
			return err
		}
		devices = append(devices, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *SQLSnapshotRepository) SaveAlerts(ctx context.Context, alerts []models.Alert) error {
	return r.replace(ctx, "cache_alerts", len(alerts), func(i int) (string, any) {
		return alerts[i].ID, alerts[i]
	})
}

func (r *SQLSnapshotRepository) LoadAlerts(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	err := r.load(ctx, "cache_alerts", func(payload []byte) error {
		var a models.Alert
		if err := json.Unmarshal(payload, &a); err != nil {
			return err
		}
		alerts = append(alerts, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// replace swaps the whole content of table inside one transaction.
func (r *SQLSnapshotRepository) replace(ctx context.Context, table string, n int, row func(i int) (string, any)) error {
	now := time.Now().UTC()
	return r.db.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		stmt, err := tx.PrepareContext(ctx, r.db.Rebind(
			`INSERT INTO `+table+` (position, id, payload, updated_at) VALUES (?, ?, ?, ?)`))
		if err != nil {
			return fmt.Errorf("prepare %s insert: %w", table, err)
		}
		defer stmt.Close()

		for i := 0; i < n; i++ {
			id, v := row(i)
			payload, err := json.Marshal(v)
			if err != nil {
				return fmt.Errorf("marshal %s row %q: %w", table, id, err)
			}
			if _, err := stmt.ExecContext(ctx, i, id, string(payload), now); err != nil {
				return fmt.Errorf("insert %s row %q: %w", table, id, err)
			}
		}
		return nil
	})
}

func (r *SQLSnapshotRepository) load(ctx context.Context, table string, each func(payload []byte) error) error {
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT payload FROM `+table+` ORDER BY position`)
	if err != nil {
		return fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("scan %s row: %w", table, err)
		}
		if err := each([]byte(payload)); err != nil {
			return fmt.Errorf("decode %s row: %w", table, err)
		}
	}
	return rows.Err()
}

var cacheMigrations = []store.Migration{
	{
		Version:     1,
		Description: "create cache_devices and cache_alerts tables",
		Up: func(tx *sql.Tx) error {
			for _, ddl := range []string{
				`CREATE TABLE cache_devices (
					position   INTEGER   NOT NULL PRIMARY KEY,
					id         TEXT      NOT NULL,
					payload    TEXT      NOT NULL,
					updated_at TIMESTAMP NOT NULL
				)`,
				`CREATE TABLE cache_alerts (
					position   INTEGER   NOT NULL PRIMARY KEY,
					id         TEXT      NOT NULL,
					payload    TEXT      NOT NULL,
					updated_at TIMESTAMP NOT NULL
				)`,
			} {
				if _, err := tx.Exec(ddl); err != nil {
					return err
				}
			}
			return nil
		},
	},
}
