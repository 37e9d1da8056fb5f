package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/HerbHall/wlanmon/internal/config"
	"github.com/HerbHall/wlanmon/internal/services"
	"github.com/HerbHall/wlanmon/internal/store"
	"github.com/HerbHall/wlanmon/internal/view"
	"github.com/HerbHall/wlanmon/pkg/models"
)

// runExport writes the last cached devices (or the seed dataset when the
// cache is empty) to a CSV file without starting the server.
func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	output := fs.String("output", "", "output file path (default: devices_{unix-ms}.csv)")
	sector := fs.String("sector", "all", "sector filter: all, education, healthcare, logistics, government")
	search := fs.String("search", "", "search term matched against id, location and sector")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	filter, err := models.ParseSectorFilter(*sector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
	if *output == "" {
		*output = view.ExportFilename(time.Now())
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	n, err := export(ctx, cfg, filter, *search, *output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d devices to %s\n", n, *output)
}

func export(ctx context.Context, cfg config.Config, filter models.SectorFilter, search, output string) (int, error) {
	db, err := store.Open(ctx, cfg.GetString("database.driver"), cfg.GetString("database.dsn"))
	if err != nil {
		return 0, err
	}
	defer db.Close()

	cache, err := services.NewSQLSnapshotRepository(ctx, db)
	if err != nil {
		return 0, err
	}
	devices, err := cache.LoadDevices(ctx)
	if err != nil {
		return 0, fmt.Errorf("load cached devices: %w", err)
	}
	if len(devices) == 0 {
		if devices, err = models.SeedDevices(); err != nil {
			return 0, err
		}
	}
	devices = view.FilterDevices(devices, filter, search)

	f, err := os.Create(output)
	if err != nil {
		return 0, fmt.Errorf("creating output file: %w", err)
	}
	if err := view.WriteCSV(f, devices); err != nil {
		f.Close()
		return 0, fmt.Errorf("writing csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("closing output file: %w", err)
	}
	return len(devices), nil
}
