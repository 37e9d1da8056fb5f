package state

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/event"
	"github.com/HerbHall/wlanmon/internal/services"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// Backend is the remote REST service that stores devices and alerts.
type Backend interface {
	FetchDevices(ctx context.Context) ([]models.Device, error)
	FetchAlerts(ctx context.Context) ([]models.Alert, error)
	PushDevices(ctx context.Context, devices []models.Device) error
	PushAlerts(ctx context.Context, alerts []models.Alert) error
}

// Restore rehydrates the active sector preference and, when a cache is
// configured, the last-known devices and alerts. Missing or invalid values
// leave the current state in place.
func (s *Store) Restore(ctx context.Context) {
	if s.prefs != nil {
		setting, err := s.prefs.Get(ctx, SectorPreferenceKey)
		switch {
		case errors.Is(err, services.ErrNotFound):
		case err != nil:
			s.logger.Warn("read sector preference failed", zap.Error(err))
		default:
			sector, perr := models.ParseSectorFilter(setting.Value)
			if perr != nil {
				s.logger.Warn("ignoring stored sector preference", zap.String("value", setting.Value))
				break
			}
			s.do(func() []event.Event {
				s.filter.ActiveSector = sector
				return []event.Event{{Topic: event.TopicFilterChanged, Payload: s.filter}}
			})
		}
	}

	if s.cache == nil {
		return
	}
	if devices, err := s.cache.LoadDevices(ctx); err != nil {
		s.logger.Warn("read cached devices failed", zap.Error(err))
	} else if len(devices) > 0 {
		s.ReplaceDevices(devices)
	}
	if alerts, err := s.cache.LoadAlerts(ctx); err != nil {
		s.logger.Warn("read cached alerts failed", zap.Error(err))
	} else if len(alerts) > 0 {
		s.ReplaceAlerts(alerts)
	}
}

// Load fetches devices and alerts from the backend. Non-empty results
// replace the local collections; errors and empty results keep what is
// already there.
func (s *Store) Load(ctx context.Context, backend Backend) {
	devices, err := backend.FetchDevices(ctx)
	switch {
	case err != nil:
		s.logger.Warn("backend devices unavailable, keeping local data", zap.Error(err))
	case len(devices) == 0:
		s.logger.Warn("backend returned no devices, keeping local data")
	default:
		s.ReplaceDevices(devices)
	}

	alerts, err := backend.FetchAlerts(ctx)
	switch {
	case err != nil:
		s.logger.Warn("backend alerts unavailable, keeping local data", zap.Error(err))
	case len(alerts) == 0:
		s.logger.Warn("backend returned no alerts, keeping local data")
	default:
		s.ReplaceAlerts(alerts)
	}
}

// Sync pushes the local devices and alerts to the backend and then reloads
// both from it. On any failure local state is unchanged and a "Sync failed"
// notice is posted.
func (s *Store) Sync(ctx context.Context, backend Backend) error {
	if s.Closed() {
		return ErrClosed
	}
	snap := s.Snapshot()

	devices, alerts, err := s.roundTrip(ctx, backend, snap)
	if err != nil {
		s.logger.Warn("sync to backend failed", zap.Error(err))
		s.PostNotice(NoticeError, "Sync failed", err.Error())
		return err
	}

	s.ReplaceDevices(devices)
	s.ReplaceAlerts(alerts)
	s.PostNotice(NoticeSuccess, "Synced to backend", "Local devices and alerts stored in the backend.")
	s.logger.Info("synced to backend",
		zap.Int("devices", len(devices)),
		zap.Int("alerts", len(alerts)),
	)
	return nil
}

func (s *Store) roundTrip(ctx context.Context, backend Backend, snap Snapshot) ([]models.Device, []models.Alert, error) {
	if err := backend.PushDevices(ctx, snap.Devices); err != nil {
		return nil, nil, fmt.Errorf("push devices: %w", err)
	}
	if err := backend.PushAlerts(ctx, snap.Alerts); err != nil {
		return nil, nil, fmt.Errorf("push alerts: %w", err)
	}
	devices, err := backend.FetchDevices(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("refetch devices: %w", err)
	}
	alerts, err := backend.FetchAlerts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("refetch alerts: %w", err)
	}
	return devices, alerts, nil
}

// SaveCache writes the current devices and alerts to the cache, if one is
// configured.
func (s *Store) SaveCache(ctx context.Context) error {
	s.mu.RLock()
	devices := models.CloneDevices(s.devices)
	alerts := s.alerts.List(0)
	s.mu.RUnlock()
	return s.saveCache(ctx, devices, alerts)
}

func (s *Store) saveCache(ctx context.Context, devices []models.Device, alerts []models.Alert) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.SaveDevices(ctx, devices); err != nil {
		return fmt.Errorf("cache devices: %w", err)
	}
	if err := s.cache.SaveAlerts(ctx, alerts); err != nil {
		return fmt.Errorf("cache alerts: %w", err)
	}
	return nil
}
