// Package plugin defines the lifecycle contract shared by wlanmon modules
// and the registry that drives it.
package plugin

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/config"
)

// Route represents an HTTP route exposed by a plugin.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Plugin defines the interface that all wlanmon modules must implement.
type Plugin interface {
	// Name returns the plugin's unique identifier (e.g., "live", "sim").
	Name() string

	// Version returns the plugin's semantic version.
	Version() string

	// Init receives the plugin's own configuration subtree
	// (plugins.<name>) and a named logger.
	Init(cfg config.Config, logger *zap.Logger) error

	// Start begins the plugin's background operations.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the plugin.
	Stop() error

	// Routes returns the HTTP routes this plugin exposes.
	Routes() []Route
}
