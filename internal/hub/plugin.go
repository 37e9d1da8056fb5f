package hub

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/config"
	"github.com/HerbHall/wlanmon/internal/event"
	"github.com/HerbHall/wlanmon/internal/plugin"
)

// shutdownTimeout bounds how long Stop waits for clients to go away.
const shutdownTimeout = 5 * time.Second

// Compile-time interface guard.
var _ plugin.Plugin = (*Plugin)(nil)

// Plugin exposes the Hub as GET /stream.
type Plugin struct {
	bus      event.Subscriber
	snapshot func() any

	logger *zap.Logger
	hub    *Hub
	unsub  func()
}

// NewPlugin creates the hub plugin. snapshot provides the first frame sent
// to every client and may be nil.
func NewPlugin(bus event.Subscriber, snapshot func() any) *Plugin {
	return &Plugin{bus: bus, snapshot: snapshot}
}

func (p *Plugin) Name() string    { return "hub" }
func (p *Plugin) Version() string { return "0.1.0" }

func (p *Plugin) Init(cfg config.Config, logger *zap.Logger) error {
	p.logger = logger
	var opts struct {
		OriginPatterns []string `mapstructure:"origin_patterns"`
	}
	if err := cfg.Unmarshal(&opts); err != nil {
		return fmt.Errorf("decode hub config: %w", err)
	}
	p.hub = New(Options{
		Snapshot:       p.snapshot,
		OriginPatterns: opts.OriginPatterns,
		Logger:         logger,
	})
	p.logger.Info("hub module initialized")
	return nil
}

func (p *Plugin) Start(_ context.Context) error {
	p.unsub = p.hub.Subscribe(p.bus)
	p.logger.Info("hub module started")
	return nil
}

func (p *Plugin) Stop() error {
	if p.unsub != nil {
		p.unsub()
	}
	if p.hub == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := p.hub.Close(ctx)
	p.logger.Info("hub module stopped")
	return err
}

// Hub returns the underlying hub; nil before Init.
func (p *Plugin) Hub() *Hub {
	return p.hub
}

func (p *Plugin) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/stream", Handler: p.hub.ServeHTTP},
	}
}
