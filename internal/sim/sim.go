// Package sim is the "sim" plugin: it drives the simulation ticks against
// the state store and samples the dashboard trend series after each one.
package sim

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/clock"
	"github.com/HerbHall/wlanmon/internal/config"
	"github.com/HerbHall/wlanmon/internal/metrics"
	"github.com/HerbHall/wlanmon/internal/plugin"
	"github.com/HerbHall/wlanmon/internal/server"
	"github.com/HerbHall/wlanmon/internal/simulate"
	"github.com/HerbHall/wlanmon/internal/state"
	"github.com/HerbHall/wlanmon/internal/view"
)

// Compile-time interface guard.
var _ plugin.Plugin = (*Plugin)(nil)

// Plugin implements the simulation module.
type Plugin struct {
	store   *state.Store
	trends  *view.Trends
	metrics *metrics.Metrics
	clock   clock.Clock
	rng     simulate.Rand

	logger *zap.Logger
	cfg    state.DriverConfig
	driver *state.Driver
}

// New creates the sim plugin. m may be nil; a nil clock means wall time.
func New(store *state.Store, trends *view.Trends, m *metrics.Metrics, clk clock.Clock) *Plugin {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Plugin{store: store, trends: trends, metrics: m, clock: clk}
}

// WithRand replaces the random source.
func (p *Plugin) WithRand(rng simulate.Rand) *Plugin {
	p.rng = rng
	return p
}

func (p *Plugin) Name() string    { return "sim" }
func (p *Plugin) Version() string { return "0.1.0" }

func (p *Plugin) Init(cfg config.Config, logger *zap.Logger) error {
	p.logger = logger
	p.cfg = state.DefaultDriverConfig()
	if err := cfg.Unmarshal(&p.cfg); err != nil {
		return fmt.Errorf("decode sim config: %w", err)
	}
	if p.cfg.AlertProbability > 1 {
		return fmt.Errorf("sim alert_probability %.2f out of range [0,1]", p.cfg.AlertProbability)
	}

	p.driver = state.NewDriver(p.store, p.cfg, p.clock, p.rng, logger)
	p.driver.OnDeviceTick = p.onDeviceTick
	p.logger.Info("sim module initialized",
		zap.Duration("device_interval", p.cfg.DeviceInterval),
		zap.Duration("alert_interval", p.cfg.AlertInterval),
		zap.Float64("alert_probability", p.cfg.AlertProbability),
	)
	return nil
}

func (p *Plugin) Start(_ context.Context) error {
	p.sample()
	p.driver.Start()
	p.logger.Info("sim module started")
	return nil
}

func (p *Plugin) Stop() error {
	if p.driver != nil {
		p.driver.Stop()
	}
	p.logger.Info("sim module stopped")
	return nil
}

func (p *Plugin) onDeviceTick() {
	if p.metrics != nil {
		p.metrics.SimTick()
	}
	p.sample()
}

func (p *Plugin) sample() {
	if p.trends == nil || p.store.Closed() {
		return
	}
	p.trends.Sample(p.store.Devices(), p.store.AlertsAppended(), p.clock.Now())
}

func (p *Plugin) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/config", Handler: p.handleConfig},
	}
}

// configResponse is the body of GET /config.
type configResponse struct {
	DeviceInterval   string  `json:"deviceInterval"`
	AlertInterval    string  `json:"alertInterval"`
	AlertProbability float64 `json:"alertProbability"`
	CacheInterval    string  `json:"cacheInterval"`
}

// handleConfig reports the effective simulation cadence.
func (p *Plugin) handleConfig(w http.ResponseWriter, r *http.Request) {
	server.WriteJSON(w, http.StatusOK, configResponse{
		DeviceInterval:   p.cfg.DeviceInterval.String(),
		AlertInterval:    p.cfg.AlertInterval.String(),
		AlertProbability: p.cfg.AlertProbability,
		CacheInterval:    p.cfg.CacheInterval.String(),
	})
}
