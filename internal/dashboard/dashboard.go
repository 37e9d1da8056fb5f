// Package dashboard is the "dashboard" plugin: the read API over the
// derived view, the filter controls, CSV export and the backend sync
// action.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HerbHall/wlanmon/internal/clock"
	"github.com/HerbHall/wlanmon/internal/config"
	"github.com/HerbHall/wlanmon/internal/plugin"
	"github.com/HerbHall/wlanmon/internal/state"
	"github.com/HerbHall/wlanmon/internal/view"
)

// Config is the plugins.dashboard configuration subtree.
type Config struct {
	SyncPerMinute float64 `mapstructure:"sync_per_minute"`
	SyncBurst     int     `mapstructure:"sync_burst"`
	LoadOnStart   bool    `mapstructure:"load_on_start"`
}

// DefaultConfig allows six syncs a minute, one at a time, and loads from
// the backend on start.
func DefaultConfig() Config {
	return Config{SyncPerMinute: 6, SyncBurst: 1, LoadOnStart: true}
}

// Compile-time interface guard.
var _ plugin.Plugin = (*Plugin)(nil)

// Plugin implements the dashboard module.
type Plugin struct {
	store   *state.Store
	memo    *view.Memo
	trends  *view.Trends
	backend state.Backend
	clock   clock.Clock

	logger  *zap.Logger
	cfg     Config
	limiter *rate.Limiter

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates the dashboard plugin. backend may be nil, in which case sync
// answers 503. trends may be nil when the sim module is disabled.
func New(store *state.Store, trends *view.Trends, backend state.Backend, clk clock.Clock) *Plugin {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Plugin{
		store:   store,
		memo:    view.NewMemo(store),
		trends:  trends,
		backend: backend,
		clock:   clk,
	}
}

func (p *Plugin) Name() string    { return "dashboard" }
func (p *Plugin) Version() string { return "0.1.0" }

func (p *Plugin) Init(cfg config.Config, logger *zap.Logger) error {
	p.logger = logger
	p.cfg = DefaultConfig()
	if err := cfg.Unmarshal(&p.cfg); err != nil {
		return fmt.Errorf("decode dashboard config: %w", err)
	}
	if p.cfg.SyncBurst < 1 {
		p.cfg.SyncBurst = 1
	}

	limit := rate.Inf
	if p.cfg.SyncPerMinute > 0 {
		limit = rate.Every(time.Duration(float64(time.Minute) / p.cfg.SyncPerMinute))
	}
	p.limiter = rate.NewLimiter(limit, p.cfg.SyncBurst)

	p.logger.Info("dashboard module initialized",
		zap.Float64("sync_per_minute", p.cfg.SyncPerMinute),
		zap.Bool("backend", p.backend != nil),
	)
	return nil
}

// Start kicks off the initial backend load in the background. The seed
// (or cached) data is served until it completes.
func (p *Plugin) Start(ctx context.Context) error {
	if p.backend != nil && p.cfg.LoadOnStart {
		loadCtx, cancel := context.WithCancel(ctx)
		p.cancel = cancel
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.store.Load(loadCtx, p.backend)
			p.logger.Debug("initial backend load finished")
		}()
	}
	p.logger.Info("dashboard module started")
	return nil
}

// Stop abandons an initial load still in flight and waits for it.
func (p *Plugin) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("dashboard module stopped")
	return nil
}

// Dashboard returns the memoized derived view.
func (p *Plugin) Dashboard() view.Dashboard {
	return p.memo.Dashboard()
}
