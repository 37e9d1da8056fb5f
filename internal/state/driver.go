package state

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/clock"
	"github.com/HerbHall/wlanmon/internal/simulate"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// DriverConfig controls the background simulation cadence.
type DriverConfig struct {
	DeviceInterval   time.Duration `mapstructure:"device_interval"`
	AlertInterval    time.Duration `mapstructure:"alert_interval"`
	AlertProbability float64       `mapstructure:"alert_probability"`
	CacheInterval    time.Duration `mapstructure:"cache_interval"`
}

// DefaultDriverConfig ticks devices every 5s and rolls for an alert every
// 5s with p=0.4.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		DeviceInterval:   5 * time.Second,
		AlertInterval:    5 * time.Second,
		AlertProbability: 0.4,
		CacheInterval:    time.Minute,
	}
}

// Driver advances the simulation on a schedule. It runs regardless of the
// live connection state.
type Driver struct {
	store  *Store
	cfg    DriverConfig
	clock  clock.Clock
	rng    simulate.Rand
	logger *zap.Logger

	// OnDeviceTick, if set, is called after every device tick.
	OnDeviceTick func()

	mu      sync.Mutex
	stopped bool
	timers  map[string]clock.Timer
}

// NewDriver creates a Driver. Zero intervals fall back to the defaults.
func NewDriver(store *Store, cfg DriverConfig, clk clock.Clock, rng simulate.Rand, logger *zap.Logger) *Driver {
	def := DefaultDriverConfig()
	if cfg.DeviceInterval <= 0 {
		cfg.DeviceInterval = def.DeviceInterval
	}
	if cfg.AlertInterval <= 0 {
		cfg.AlertInterval = def.AlertInterval
	}
	if cfg.AlertProbability < 0 {
		cfg.AlertProbability = 0
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if rng == nil {
		rng = simulate.NewRand()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		store:  store,
		cfg:    cfg,
		clock:  clk,
		rng:    rng,
		logger: logger,
		timers: make(map[string]clock.Timer),
	}
}

// Start schedules the first ticks.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.scheduleLocked("devices", d.cfg.DeviceInterval, d.deviceTick)
	d.scheduleLocked("alerts", d.cfg.AlertInterval, d.alertTick)
	if d.cfg.CacheInterval > 0 && d.store.cache != nil {
		d.scheduleLocked("cache", d.cfg.CacheInterval, d.cacheTick)
	}
}

// Stop cancels every pending tick. It is idempotent.
func (d *Driver) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for name, t := range d.timers {
		t.Stop()
		delete(d.timers, name)
	}
}

func (d *Driver) deviceTick() {
	if !d.reschedule("devices", d.cfg.DeviceInterval, d.deviceTick) {
		return
	}
	now := d.clock.Now()
	ticked := false
	d.store.UpdateDevices(func(devices []models.Device) ([]models.Device, bool) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.stopped {
			return nil, false
		}
		ticked = true
		return simulate.NextDevices(devices, d.rng, now), true
	})
	if ticked && d.OnDeviceTick != nil {
		d.OnDeviceTick()
	}
}

func (d *Driver) alertTick() {
	if !d.reschedule("alerts", d.cfg.AlertInterval, d.alertTick) {
		return
	}
	now := d.clock.Now()
	d.store.AppendAlertFunc(func(devices []models.Device) (models.Alert, bool) {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.stopped || d.rng.Float64() >= d.cfg.AlertProbability {
			return models.Alert{}, false
		}
		return simulate.NextRandomAlert(devices, d.rng, now)
	})
}

func (d *Driver) cacheTick() {
	if !d.reschedule("cache", d.cfg.CacheInterval, d.cacheTick) {
		return
	}
	if err := d.store.SaveCache(context.Background()); err != nil {
		d.logger.Warn("cache snapshot failed", zap.Error(err))
	}
}

// reschedule arms the next tick and reports whether the driver is still
// running.
func (d *Driver) reschedule(name string, every time.Duration, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	d.scheduleLocked(name, every, fn)
	return true
}

func (d *Driver) scheduleLocked(name string, every time.Duration, fn func()) {
	d.timers[name] = d.clock.AfterFunc(every, fn)
}
