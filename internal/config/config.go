// Package config wraps Viper behind a small read-only interface and owns the
// default configuration for wlanmon.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the read-only configuration view handed to modules.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetFloat64(key string) float64
	GetDuration(key string) time.Duration
	GetStringSlice(key string) []string
	IsSet(key string) bool
	Sub(key string) Config
	Unmarshal(target any) error
}

// Compile-time interface guard.
var _ Config = (*ViperConfig)(nil)

// ViperConfig implements Config on top of a *viper.Viper.
type ViperConfig struct {
	v *viper.Viper
}

// New wraps v. A nil v behaves as an empty configuration.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

func (c *ViperConfig) GetString(key string) string          { return c.v.GetString(key) }
func (c *ViperConfig) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *ViperConfig) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *ViperConfig) GetFloat64(key string) float64        { return c.v.GetFloat64(key) }
func (c *ViperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *ViperConfig) GetStringSlice(key string) []string   { return c.v.GetStringSlice(key) }
func (c *ViperConfig) IsSet(key string) bool                { return c.v.IsSet(key) }

// Sub returns the subtree rooted at key. A missing key yields an empty
// Config rather than nil.
func (c *ViperConfig) Sub(key string) Config {
	sub := c.v.Sub(key)
	if sub == nil {
		return New(nil)
	}
	return New(sub)
}

// Unmarshal decodes the whole tree into target using mapstructure tags.
func (c *ViperConfig) Unmarshal(target any) error {
	return c.v.Unmarshal(target)
}

// EnvPrefix is prepended to environment overrides, e.g.
// WLANMON_LIVE_ENDPOINT overrides live.endpoint.
const EnvPrefix = "WLANMON"

// SetDefaults registers the default value of every known key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")

	v.SetDefault("log.development", false)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "wlanmon.db")

	v.SetDefault("backend.url", "http://localhost:8001/api")
	v.SetDefault("backend.timeout", 15*time.Second)

	v.SetDefault("alerts.cap", 200)

	v.SetDefault("plugins.live.enabled", true)
	v.SetDefault("plugins.live.transport", "websocket")
	v.SetDefault("plugins.live.endpoint", "ws://localhost:8080/ws")
	v.SetDefault("plugins.live.connect_timeout", 10*time.Second)
	v.SetDefault("plugins.live.backoff.base", time.Second)
	v.SetDefault("plugins.live.backoff.max", 8*time.Second)
	v.SetDefault("plugins.live.backoff.max_attempt", 10)
	v.SetDefault("plugins.live.mqtt.topic_prefix", "wlan")
	v.SetDefault("plugins.live.mqtt.client_id", "")
	v.SetDefault("plugins.live.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("plugins.live.kafka.topic", "wlan-telemetry")
	v.SetDefault("plugins.live.kafka.group_id", "wlanmon")

	v.SetDefault("plugins.sim.enabled", true)
	v.SetDefault("plugins.sim.device_interval", 5*time.Second)
	v.SetDefault("plugins.sim.alert_interval", 5*time.Second)
	v.SetDefault("plugins.sim.alert_probability", 0.4)
	v.SetDefault("plugins.sim.cache_interval", time.Minute)

	v.SetDefault("plugins.dashboard.enabled", true)
	v.SetDefault("plugins.dashboard.sync_per_minute", 6)
	v.SetDefault("plugins.dashboard.sync_burst", 1)
	v.SetDefault("plugins.dashboard.load_on_start", true)
	v.SetDefault("plugins.hub.enabled", true)
	v.SetDefault("plugins.hub.origin_patterns", []string{})
}

// Load reads the YAML file at path (optional) on top of the defaults and
// applies environment overrides.
func Load(path string) (*ViperConfig, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config %q: %w", path, err)
			}
		}
	}
	return New(v), nil
}
