// Command import loads an alumni CSV into the store, resolving every address
// to a coordinate on the way in.
//
// Usage:
//
//	go run ./cmd/import -csv data/alumni.csv
//	go run ./cmd/import -csv data/alumni.csv -dry-run
//
// Store, geocoder, and catalog settings come from the same environment
// variables as the monitor service.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/adapter/store"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/config"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/ingest"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "import:", err)
		os.Exit(1)
	}
}

func run() error {
	csvPath := flag.String("csv", "", "path to the alumni CSV file")
	dryRun := flag.Bool("dry-run", false, "resolve addresses without writing to the store")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		return errors.New("missing required flag: -csv")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	overlay, err := config.LoadOverlay(cfg.CatalogFile)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver, err := ingest.NewResolver(cfg, overlay.Regions, metrics, logger)
	if err != nil {
		return err
	}

	var persons ingest.PersonStore
	if !*dryRun {
		db, err := store.New(cfg.StoreDriver, cfg.StoreDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Init(ctx); err != nil {
			return err
		}
		persons = db
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	summary, err := ingest.NewImporter(resolver, persons, metrics, logger).Import(ctx, f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
