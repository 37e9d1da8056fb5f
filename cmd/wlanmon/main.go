package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/backend"
	"github.com/HerbHall/wlanmon/internal/config"
	"github.com/HerbHall/wlanmon/internal/dashboard"
	"github.com/HerbHall/wlanmon/internal/event"
	"github.com/HerbHall/wlanmon/internal/feed"
	"github.com/HerbHall/wlanmon/internal/hub"
	"github.com/HerbHall/wlanmon/internal/metrics"
	"github.com/HerbHall/wlanmon/internal/plugin"
	"github.com/HerbHall/wlanmon/internal/server"
	"github.com/HerbHall/wlanmon/internal/services"
	"github.com/HerbHall/wlanmon/internal/sim"
	"github.com/HerbHall/wlanmon/internal/state"
	"github.com/HerbHall/wlanmon/internal/store"
	"github.com/HerbHall/wlanmon/internal/version"
	"github.com/HerbHall/wlanmon/internal/view"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "export":
			runExport(os.Args[2:])
			return
		case "version":
			fmt.Println(version.Info())
			return
		}
	}
	runServer(os.Args[1:])
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runServer(args []string) {
	fs := flag.NewFlagSet("wlanmon", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *showVersion {
		fmt.Println(version.Info())
		return
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.GetBool("log.development"))
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("wlanmon starting", zap.String("version", version.Short()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Local storage: sector preference and last-known snapshot
	db, err := store.Open(ctx, cfg.GetString("database.driver"), cfg.GetString("database.dsn"))
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	settings, err := services.NewSQLSettingsRepository(ctx, db)
	if err != nil {
		logger.Fatal("failed to prepare settings", zap.Error(err))
	}
	cache, err := services.NewSQLSnapshotRepository(ctx, db)
	if err != nil {
		logger.Fatal("failed to prepare cache", zap.Error(err))
	}

	bus := event.NewBus(logger.Named("event"))
	m := metrics.New(prometheus.DefaultRegisterer)
	m.Subscribe(bus)

	st, err := state.New(state.Options{
		AlertCap: cfg.GetInt("alerts.cap"),
		Logger:   logger.Named("state"),
		Events:   bus,
		Prefs:    settings,
		Cache:    cache,
	})
	if err != nil {
		logger.Fatal("failed to create state store", zap.Error(err))
	}
	st.Restore(ctx)
	m.ObserveDevices(st.Devices())

	// The first fetch runs in the dashboard plugin's Start so it never
	// delays the API or the simulation.
	be := backend.New(cfg.GetString("backend.url"),
		backend.WithTimeout(cfg.GetDuration("backend.timeout")),
		backend.WithLogger(logger.Named("backend")),
	)

	trends := view.NewTrends()

	// Create plugin registry
	registry := plugin.NewRegistry(logger)

	// Register all plugins (compile-time composition)
	plugins := []plugin.Plugin{
		feed.New(st, m, nil),
		sim.New(st, trends, m, nil),
		dashboard.New(st, trends, be, nil),
		hub.NewPlugin(bus, func() any { return st.Snapshot() }),
	}
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			logger.Fatal("failed to register plugin", zap.Error(err))
		}
	}

	// Initialize all plugins
	if err := registry.InitAll(cfg); err != nil {
		logger.Fatal("failed to initialize plugins", zap.Error(err))
	}

	// Start plugins
	if err := registry.StartAll(ctx); err != nil {
		logger.Fatal("failed to start plugins", zap.Error(err))
	}

	// Create and start HTTP server
	addr := cfg.GetString("server.host") + ":" + cfg.GetString("server.port")
	srv := server.New(addr, registry, logger, server.WithMetrics(prometheus.DefaultGatherer, m))

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("wlanmon ready", zap.String("addr", addr))

	// Wait for shutdown signal
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown: HTTP server, then plugins in reverse order (hub,
	// dashboard, sim driver, live manager), then the store and database.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	registry.StopAll()
	cancel()

	if err := st.Close(shutdownCtx); err != nil {
		logger.Error("failed to save cache", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		logger.Error("failed to close database", zap.Error(err))
	}

	logger.Info("wlanmon stopped")
}
