// Command evaluate computes proximity alerts offline from a saved EONET
// events document and an alumni CSV, without touching the store, the network,
// or Kafka. Addresses are resolved with the region table only. Output is
// deterministic for a given -at time, which makes it useful for producing
// test fixtures and for checking threshold choices.
//
// Usage:
//
//	go run ./cmd/evaluate \
//	  -feed testdata/eonet_events.json \
//	  -csv testdata/alumni.csv \
//	  -threshold 200 \
//	  -types Wildfires,Earthquakes \
//	  -out alerts.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/config"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/ingest"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/observability"
	"github.com/jonboulle/clockwork"
)

type output struct {
	GeneratedAt time.Time               `json:"generated_at"`
	ThresholdKm float64                 `json:"threshold_km"`
	Types       []string                `json:"types"`
	Import      ingest.Summary          `json:"import"`
	Disasters   int                     `json:"disasters"`
	Dropped     int                     `json:"dropped"`
	Alerts      []domain.ProximityAlert `json:"alerts"`
}

// personCollector keeps imported persons in memory.
type personCollector struct {
	persons []domain.PersonLocation
}

func (c *personCollector) UpsertPerson(_ context.Context, p domain.PersonLocation) error {
	c.persons = append(c.persons, p)
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	feedPath := flag.String("feed", "", "EONET events JSON file")
	csvPath := flag.String("csv", "", "alumni CSV file")
	threshold := flag.String("threshold", "200", "alert distance in kilometers")
	types := flag.String("types", "", "comma-separated disaster types (default: every type in the catalog)")
	catalogFile := flag.String("catalog", "", "optional YAML catalog overlay")
	at := flag.String("at", "2024-01-01T00:00:00Z", "RFC 3339 timestamp stamped on alerts")
	out := flag.String("out", "", "output path (default: stdout)")
	flag.Parse()

	if *feedPath == "" || *csvPath == "" {
		flag.Usage()
		return errors.New("missing required flags: -feed, -csv")
	}

	thresholdKm, err := domain.ParseThreshold(*threshold)
	if err != nil {
		return err
	}
	stamp, err := time.Parse(time.RFC3339, *at)
	if err != nil {
		return fmt.Errorf("invalid -at: %w", err)
	}
	overlay, err := config.LoadOverlay(*catalogFile)
	if err != nil {
		return err
	}
	selected := config.ParseList(*types)
	if len(selected) == 0 {
		selected = overlay.Categories.Names()
	}
	if err := overlay.Categories.ValidateTypes(selected); err != nil {
		return err
	}

	// Fixed clock for reproducible GeneratedAt timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(stamp))

	data, err := os.ReadFile(*feedPath)
	if err != nil {
		return err
	}
	batch, err := domain.ParseFeed(data)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	collector := &personCollector{}
	f, err := os.Open(*csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	resolver := domain.NewResolver(overlay.Regions, nil, logger)
	summary, err := ingest.NewImporter(resolver, collector, observability.NewMetricsForTesting(), logger).Import(context.Background(), f)
	if err != nil {
		return err
	}

	disasters := overlay.Categories.Filter(batch.Events, selected)
	alerts, err := domain.FindNearby(collector.persons, disasters, thresholdKm)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		file, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output{
		GeneratedAt: domain.Now(),
		ThresholdKm: thresholdKm,
		Types:       selected,
		Import:      summary,
		Disasters:   len(disasters),
		Dropped:     batch.Dropped,
		Alerts:      alerts,
	}); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "%d persons (%d located), %d disasters, %d alerts\n",
		summary.Imported, summary.Valid, len(disasters), len(alerts))
	return nil
}
