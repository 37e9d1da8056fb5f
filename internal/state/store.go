// Package state holds the single authoritative in-memory model of the
// dashboard: devices, the alert log, the connection state, the UI filter
// and pending notices. Every mutation is serialized behind one lock and
// published on the event bus once applied.
package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/clock"
	"github.com/HerbHall/wlanmon/internal/event"
	"github.com/HerbHall/wlanmon/internal/live"
	"github.com/HerbHall/wlanmon/internal/services"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// SectorPreferenceKey is the settings key holding the active sector.
const SectorPreferenceKey = "wlan_sector"

// eventSource tags events published by the store.
const eventSource = "state"

// ErrClosed is returned by operations attempted after Close.
var ErrClosed = errors.New("state: store closed")

// Preferences persists small user choices.
type Preferences interface {
	Get(ctx context.Context, key string) (*services.Setting, error)
	Set(ctx context.Context, key, value string) error
}

// Options configures a Store. Nil collaborators are optional.
type Options struct {
	AlertCap  int
	NoticeCap int
	Clock     clock.Clock
	Logger    *zap.Logger
	Events    event.Publisher
	Prefs     Preferences
	Cache     services.SnapshotRepository
}

// Snapshot is a consistent, copied view of the store.
type Snapshot struct {
	Version    uint64                 `json:"version"`
	Devices    []models.Device        `json:"devices"`
	Alerts     []models.Alert         `json:"alerts"`
	Filter     models.UIFilter        `json:"filter"`
	Connection models.ConnectionState `json:"connection"`
}

// DevicesPayload is published with TopicDevicesReplaced.
type DevicesPayload struct {
	Version uint64          `json:"version"`
	Devices []models.Device `json:"devices"`
}

// FilterPatch carries optional filter changes. Nil fields are left as is.
type FilterPatch struct {
	Sector           *string `json:"sector,omitempty"`
	Search           *string `json:"search,omitempty"`
	SelectedDeviceID *string `json:"selectedDeviceId,omitempty"`
}

// Store is the State Store.
type Store struct {
	logger *zap.Logger
	clock  clock.Clock
	events event.Publisher
	prefs  Preferences
	cache  services.SnapshotRepository

	emitMu sync.Mutex // orders event delivery

	mu        sync.RWMutex
	devices   []models.Device
	alerts    *AlertLog
	filter    models.UIFilter
	conn      models.ConnectionState
	last      live.Message
	notices   []Notice
	noticeCap int
	version   uint64
	appended  uint64
	closed    bool
}

// New returns a Store holding the built-in seed dataset.
func New(opts Options) (*Store, error) {
	devices, err := models.SeedDevices()
	if err != nil {
		return nil, fmt.Errorf("load seed devices: %w", err)
	}
	alerts, err := models.SeedAlerts()
	if err != nil {
		return nil, fmt.Errorf("load seed alerts: %w", err)
	}
	return NewWith(devices, alerts, opts), nil
}

// NewWith returns a Store holding the given initial data.
func NewWith(devices []models.Device, alerts []models.Alert, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NoticeCap <= 0 {
		opts.NoticeCap = DefaultNoticeCap
	}
	s := &Store{
		logger:    opts.Logger,
		clock:     opts.Clock,
		events:    opts.Events,
		prefs:     opts.Prefs,
		cache:     opts.Cache,
		devices:   models.CloneDevices(devices),
		alerts:    NewAlertLog(opts.AlertCap),
		filter:    models.UIFilter{ActiveSector: models.SectorAll},
		conn:      models.ConnectionState{Status: models.ConnectionConnecting},
		noticeCap: opts.NoticeCap,
		version:   1,
	}
	s.alerts.Replace(alerts)
	return s
}

// Apply mutates the store according to an inbound live message.
//
//	device_update  replaces the device collection
//	alert          appends to the alert log
//	connect_error  posts a notice only
//	heartbeat, raw recorded as the last message only
func (s *Store) Apply(msg live.Message) {
	s.do(func() []event.Event {
		now := s.clock.Now()
		s.last = cloneMessage(msg)
		s.conn.LastMessage = string(msg.Kind)
		s.conn.LastMessageAt = now

		switch msg.Kind {
		case live.KindDeviceUpdate:
			return s.replaceDevicesLocked(msg.Devices)
		case live.KindAlert:
			return s.appendAlertLocked(msg.Alert)
		case live.KindConnectError:
			return s.noticeLocked(NoticeError, "Live connection error", msg.Reason)
		case live.KindRaw:
			s.logger.Debug("ignoring raw live frame", zap.Int("bytes", len(msg.Raw)))
		}
		return nil
	})
}

// ReplaceDevices replaces the whole device collection.
func (s *Store) ReplaceDevices(devices []models.Device) {
	s.do(func() []event.Event {
		return s.replaceDevicesLocked(devices)
	})
}

// UpdateDevices replaces the collection with fn applied to the current one,
// atomically with respect to other mutations. fn receives a copy and may
// decline the update by returning false.
func (s *Store) UpdateDevices(fn func([]models.Device) ([]models.Device, bool)) {
	s.do(func() []event.Event {
		next, ok := fn(models.CloneDevices(s.devices))
		if !ok {
			return nil
		}
		return s.replaceDevicesLocked(next)
	})
}

// AppendAlert appends a to the alert log, evicting the oldest past the cap.
func (s *Store) AppendAlert(a models.Alert) {
	s.do(func() []event.Event {
		return s.appendAlertLocked(a)
	})
}

// AppendAlertFunc builds an alert from the current devices and appends it
// if fn reports ok.
func (s *Store) AppendAlertFunc(fn func([]models.Device) (models.Alert, bool)) {
	s.do(func() []event.Event {
		a, ok := fn(models.CloneDevices(s.devices))
		if !ok {
			return nil
		}
		return s.appendAlertLocked(a)
	})
}

// ReplaceAlerts replaces the alert log, keeping the most recent cap alerts.
func (s *Store) ReplaceAlerts(alerts []models.Alert) {
	s.do(func() []event.Event {
		s.alerts.Replace(alerts)
		s.version++
		return []event.Event{{Topic: event.TopicAlertsReplaced, Payload: s.alerts.List(0)}}
	})
}

// SetConnection records the connection status reported by the live manager.
// The last-message fields are owned by Apply and are preserved.
func (s *Store) SetConnection(st models.ConnectionState) {
	s.do(func() []event.Event {
		if s.conn.Status == st.Status && s.conn.ReconnectAttempt == st.ReconnectAttempt {
			return nil
		}
		s.conn.Status = st.Status
		s.conn.ReconnectAttempt = st.ReconnectAttempt
		return []event.Event{{Topic: event.TopicConnectionChanged, Payload: s.conn}}
	})
}

// SetSector changes the active sector and persists it immediately.
func (s *Store) SetSector(ctx context.Context, sector models.SectorFilter) error {
	_, err := s.UpdateFilter(ctx, FilterPatch{Sector: ptr(string(sector))})
	return err
}

// SetSearch changes the search term.
func (s *Store) SetSearch(term string) {
	_, _ = s.UpdateFilter(context.Background(), FilterPatch{Search: &term})
}

// SelectDevice records the selected device id. The id is not validated.
func (s *Store) SelectDevice(id string) {
	_, _ = s.UpdateFilter(context.Background(), FilterPatch{SelectedDeviceID: &id})
}

// UpdateFilter applies patch and returns the resulting filter. An unknown
// sector fails with models.ErrInvalidSector and changes nothing.
func (s *Store) UpdateFilter(ctx context.Context, patch FilterPatch) (models.UIFilter, error) {
	out := models.UIFilter{}
	err := ErrClosed
	s.do(func() []event.Event {
		err = nil
		next := s.filter
		if patch.Sector != nil {
			sector, perr := models.ParseSectorFilter(strings.ToLower(strings.TrimSpace(*patch.Sector)))
			if perr != nil {
				err = perr
				out = s.filter
				return nil
			}
			next.ActiveSector = sector
		}
		if patch.Search != nil {
			next.SearchTerm = *patch.Search
		}
		if patch.SelectedDeviceID != nil {
			next.SelectedDeviceID = *patch.SelectedDeviceID
		}
		out = next
		if next == s.filter {
			return nil
		}

		if next.ActiveSector != s.filter.ActiveSector && s.prefs != nil {
			if perr := s.prefs.Set(ctx, SectorPreferenceKey, string(next.ActiveSector)); perr != nil {
				s.logger.Warn("persist active sector failed", zap.Error(perr))
			}
		}
		s.filter = next
		return []event.Event{{Topic: event.TopicFilterChanged, Payload: next}}
	})
	return out, err
}

// PostNotice adds a user-visible notice.
func (s *Store) PostNotice(level NoticeLevel, title, detail string) {
	s.do(func() []event.Event {
		return s.noticeLocked(level, title, detail)
	})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Version:    s.version,
		Devices:    models.CloneDevices(s.devices),
		Alerts:     s.alerts.List(0),
		Filter:     s.filter,
		Connection: s.conn,
	}
}

// Version returns a counter that changes whenever devices or alerts change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// AlertsAppended returns how many alerts have been appended since start,
// including evicted ones.
func (s *Store) AlertsAppended() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.appended
}

// Devices returns a copy of the device collection.
func (s *Store) Devices() []models.Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneDevices(s.devices)
}

// Alerts returns up to limit of the most recent alerts, oldest first.
func (s *Store) Alerts(limit int) []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alerts.List(limit)
}

// Filter returns the current UI filter.
func (s *Store) Filter() models.UIFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// LastMessage returns a copy of the most recent normalized inbound
// message, or the zero Message before any has arrived.
func (s *Store) LastMessage() live.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessage(s.last)
}

// Connection returns the current connection state.
func (s *Store) Connection() models.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// Notices returns the retained notices, oldest first.
func (s *Store) Notices() []Notice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notice, len(s.notices))
	copy(out, s.notices)
	return out
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close makes every later mutation a no-op and writes the final snapshot to
// the cache, if one is configured.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	devices := models.CloneDevices(s.devices)
	alerts := s.alerts.List(0)
	s.mu.Unlock()

	return s.saveCache(ctx, devices, alerts)
}

// do applies fn under the write lock, unless the store is closed, and then
// publishes the returned events in order. Event handlers must not mutate
// the store.
func (s *Store) do(fn func() []event.Event) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	events := fn()
	s.mu.Unlock()

	if s.events == nil {
		return
	}
	now := s.clock.Now()
	for _, e := range events {
		e.Source = eventSource
		e.Timestamp = now
		if err := s.events.Publish(context.Background(), e); err != nil {
			s.logger.Warn("publish event failed", zap.String("topic", e.Topic), zap.Error(err))
		}
	}
}

func (s *Store) replaceDevicesLocked(devices []models.Device) []event.Event {
	s.devices = models.CloneDevices(devices)
	if s.devices == nil {
		s.devices = []models.Device{}
	}
	s.version++
	return []event.Event{{
		Topic:   event.TopicDevicesReplaced,
		Payload: DevicesPayload{Version: s.version, Devices: models.CloneDevices(s.devices)},
	}}
}

func (s *Store) appendAlertLocked(a models.Alert) []event.Event {
	s.alerts.Add(a)
	s.appended++
	s.version++
	events := []event.Event{{Topic: event.TopicAlertAppended, Payload: a}}
	if a.Message != "" && a.DeviceID != "" {
		events = append(events, s.noticeLocked(levelFor(a.Severity),
			fmt.Sprintf("New %s alert", strings.ToUpper(string(a.Severity))),
			fmt.Sprintf("%s on %s", a.Message, a.DeviceID))...)
	}
	return events
}

func (s *Store) noticeLocked(level NoticeLevel, title, detail string) []event.Event {
	n := Notice{Level: level, Title: title, Detail: detail, At: s.clock.Now()}
	if len(s.notices) >= s.noticeCap {
		copy(s.notices, s.notices[1:])
		s.notices[len(s.notices)-1] = n
	} else {
		s.notices = append(s.notices, n)
	}
	return []event.Event{{Topic: event.TopicNoticePosted, Payload: n}}
}

func levelFor(sev models.Severity) NoticeLevel {
	switch sev {
	case models.SeverityCritical:
		return NoticeError
	case models.SeverityWarning:
		return NoticeWarning
	default:
		return NoticeInfo
	}
}

func ptr[T any](v T) *T { return &v }

func cloneMessage(m live.Message) live.Message {
	m.Devices = models.CloneDevices(m.Devices)
	m.Raw = append([]byte(nil), m.Raw...)
	return m
}
