// Package feed is the "live" plugin: it owns the live connection manager,
// picks its transport from configuration and applies inbound messages to
// the state store.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/clock"
	"github.com/HerbHall/wlanmon/internal/config"
	"github.com/HerbHall/wlanmon/internal/live"
	"github.com/HerbHall/wlanmon/internal/metrics"
	"github.com/HerbHall/wlanmon/internal/plugin"
	"github.com/HerbHall/wlanmon/internal/state"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// Supported values of the transport key.
const (
	TransportWebSocket = "websocket"
	TransportMQTT      = "mqtt"
	TransportKafka     = "kafka"
)

// Config is the plugins.live configuration subtree.
type Config struct {
	Transport      string        `mapstructure:"transport"`
	Endpoint       string        `mapstructure:"endpoint"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Backoff        live.Backoff  `mapstructure:"backoff"`
	MQTT           MQTTConfig    `mapstructure:"mqtt"`
	Kafka          KafkaConfig   `mapstructure:"kafka"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	QoS         byte   `mapstructure:"qos"`
}

// KafkaConfig configures the Kafka transport.
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	OutboundTopic string   `mapstructure:"outbound_topic"`
}

// DefaultConfig mirrors the defaults registered by config.SetDefaults.
func DefaultConfig() Config {
	return Config{
		Transport:      TransportWebSocket,
		Endpoint:       "ws://localhost:8080/ws",
		ConnectTimeout: live.DefaultConnectTimeout,
		Backoff:        live.DefaultBackoff,
		MQTT:           MQTTConfig{TopicPrefix: "wlan"},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "wlan-telemetry",
			GroupID: "wlanmon",
		},
	}
}

// BuildTransport returns the live.Transport named by c.Transport and the
// endpoint to dial with it.
func (c Config) BuildTransport() (live.Transport, string, error) {
	switch strings.ToLower(c.Transport) {
	case "", TransportWebSocket:
		return live.WebSocketTransport{}, c.Endpoint, nil
	case TransportMQTT:
		return live.MQTTTransport{
			TopicPrefix: c.MQTT.TopicPrefix,
			ClientID:    c.MQTT.ClientID,
			QoS:         c.MQTT.QoS,
		}, c.Endpoint, nil
	case TransportKafka:
		return live.KafkaTransport{
			Brokers:       c.Kafka.Brokers,
			Topic:         c.Kafka.Topic,
			GroupID:       c.Kafka.GroupID,
			OutboundTopic: c.Kafka.OutboundTopic,
		}, strings.Join(c.Kafka.Brokers, ","), nil
	default:
		return nil, "", fmt.Errorf("unsupported live transport %q", c.Transport)
	}
}

// Compile-time interface guard.
var _ plugin.Plugin = (*Plugin)(nil)

// Plugin implements the live feed module.
type Plugin struct {
	store   *state.Store
	metrics *metrics.Metrics
	clock   clock.Clock

	// transport, when set, replaces the configured one.
	transport live.Transport

	logger  *zap.Logger
	cfg     Config
	manager *live.Manager
}

// New creates the live plugin. m may be nil.
func New(store *state.Store, m *metrics.Metrics, clk clock.Clock) *Plugin {
	return &Plugin{store: store, metrics: m, clock: clk}
}

// WithTransport overrides the configured transport.
func (p *Plugin) WithTransport(t live.Transport) *Plugin {
	p.transport = t
	return p
}

func (p *Plugin) Name() string    { return "live" }
func (p *Plugin) Version() string { return "0.1.0" }

func (p *Plugin) Init(cfg config.Config, logger *zap.Logger) error {
	p.logger = logger
	p.cfg = DefaultConfig()
	if err := cfg.Unmarshal(&p.cfg); err != nil {
		return fmt.Errorf("decode live config: %w", err)
	}

	transport, endpoint, err := p.cfg.BuildTransport()
	if err != nil {
		return err
	}
	if p.transport != nil {
		transport = p.transport
	}

	p.manager = live.NewManager(transport, live.Options{
		Endpoint:       endpoint,
		ConnectTimeout: p.cfg.ConnectTimeout,
		Backoff:        p.cfg.Backoff,
		Clock:          p.clock,
		Logger:         logger,
		OnStatus:       p.store.SetConnection,
		OnMessage:      p.onMessage,
	})
	p.logger.Info("live module initialized",
		zap.String("transport", p.cfg.Transport),
		zap.String("endpoint", endpoint),
	)
	return nil
}

func (p *Plugin) onMessage(msg live.Message) {
	if p.metrics != nil {
		p.metrics.ObserveMessage(string(msg.Kind))
	}
	p.store.Apply(msg)
}

func (p *Plugin) Start(ctx context.Context) error {
	if err := p.manager.Start(ctx); err != nil {
		return fmt.Errorf("start live manager: %w", err)
	}
	p.logger.Info("live module started")
	return nil
}

func (p *Plugin) Stop() error {
	if p.manager == nil {
		return nil
	}
	err := p.manager.Close()
	p.logger.Info("live module stopped")
	return err
}

// State returns the manager's connection state.
func (p *Plugin) State() models.ConnectionState {
	if p.manager == nil {
		return models.ConnectionState{Status: models.ConnectionDisconnected}
	}
	return p.manager.State()
}

// Send forwards payload to the live endpoint if connected.
func (p *Plugin) Send(ctx context.Context, payload []byte) bool {
	if p.manager == nil {
		return false
	}
	return p.manager.Send(ctx, payload)
}
