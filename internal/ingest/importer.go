// Package ingest loads alumni address lists from CSV, resolves each address
// to a coordinate, and stores the result.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/observability"
)

// Resolver turns a person's address into a located person.
type Resolver interface {
	ResolvePerson(ctx context.Context, name string, addr domain.AddressComponents) domain.PersonLocation
}

// PersonStore persists located persons.
type PersonStore interface {
	UpsertPerson(ctx context.Context, p domain.PersonLocation) error
}

// Summary counts the outcome of one import.
type Summary struct {
	Encoding string `json:"encoding"`
	Rows     int    `json:"rows"`
	Imported int    `json:"imported"`
	Valid    int    `json:"valid"`
	Fallback int    `json:"fallback"`
	Skipped  int    `json:"skipped"`
}

// Importer reads a CSV address list.
type Importer struct {
	resolver Resolver
	store    PersonStore
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewImporter creates an Importer. A nil store resolves rows without saving
// them, which is how dry runs work.
func NewImporter(resolver Resolver, store PersonStore, metrics *observability.Metrics, logger *slog.Logger) *Importer {
	return &Importer{resolver: resolver, store: store, metrics: metrics, logger: logger}
}

// ErrNoHeader is returned when no row names a person column.
var ErrNoHeader = errors.New("csv has no recognizable header row")

// Import reads every row of r. Rows without a name are skipped; rows whose
// address cannot be resolved are stored with the default coordinate and
// counted as Fallback.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Summary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Summary{}, fmt.Errorf("read csv: %w", err)
	}
	text, enc := decodeText(data)
	summary := Summary{Encoding: enc}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	cols, err := readHeader(reader)
	if err != nil {
		return summary, err
	}
	im.logger.Info("importing alumni csv", "encoding", enc, "columns", cols.describe())

	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read csv row %d: %w", summary.Rows+1, err)
		}
		if blank(record) {
			continue
		}
		summary.Rows++

		name, addr := cols.person(record)
		if name == "" {
			summary.Skipped++
			im.logger.Debug("skipping row without name", "row", summary.Rows)
			continue
		}

		person := im.resolver.ResolvePerson(ctx, name, addr)
		im.metrics.Resolutions.WithLabelValues(person.Source).Inc()
		if im.store != nil {
			if err := im.store.UpsertPerson(ctx, person); err != nil {
				return summary, err
			}
		}
		summary.Imported++
		if person.IsValid {
			summary.Valid++
		} else {
			summary.Fallback++
		}
	}

	im.logger.Info("alumni csv imported",
		"rows", summary.Rows,
		"imported", summary.Imported,
		"valid", summary.Valid,
		"fallback", summary.Fallback,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// columns maps the fields of interest to record indexes; -1 means absent.
type columns struct {
	name, first, last                               int
	street1, street2, city, region, postal, country int
}

var columnAliases = map[string][]string{
	"name":    {"name", "full name"},
	"first":   {"first name", "first"},
	"last":    {"last name", "last", "prim_last"},
	"street1": {"address 1", "address1", "street", "street 1"},
	"street2": {"address 2", "address2", "street 2"},
	"city":    {"city"},
	"region":  {"state", "prefecture", "region"},
	"postal":  {"postal", "postal code", "zip"},
	"country": {"country"},
}

// readHeader returns the column mapping from the first row that names a
// person column. Leading preamble rows are skipped.
func readHeader(reader *csv.Reader) (columns, error) {
	for range 5 {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return columns{}, fmt.Errorf("read csv header: %w", err)
		}
		cols := mapColumns(record)
		if cols.name >= 0 || cols.first >= 0 || cols.last >= 0 {
			return cols, nil
		}
	}
	return columns{}, ErrNoHeader
}

func mapColumns(header []string) columns {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.TrimPrefix(key, "original_")
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}
	find := func(field string) int {
		for _, alias := range columnAliases[field] {
			if i, ok := index[alias]; ok {
				return i
			}
		}
		return -1
	}
	return columns{
		name:    find("name"),
		first:   find("first"),
		last:    find("last"),
		street1: find("street1"),
		street2: find("street2"),
		city:    find("city"),
		region:  find("region"),
		postal:  find("postal"),
		country: find("country"),
	}
}

func (c columns) person(record []string) (string, domain.AddressComponents) {
	name := field(record, c.name)
	if name == "" {
		name = strings.TrimSpace(field(record, c.first) + " " + field(record, c.last))
	}
	return name, domain.AddressComponents{
		Street1: field(record, c.street1),
		Street2: field(record, c.street2),
		City:    field(record, c.city),
		Region:  field(record, c.region),
		Postal:  domain.NormalizePostal(field(record, c.postal)),
		Country: field(record, c.country),
	}
}

func (c columns) describe() []string {
	var found []string
	for field, i := range map[string]int{
		"name": c.name, "first": c.first, "last": c.last,
		"street1": c.street1, "street2": c.street2, "city": c.city,
		"region": c.region, "postal": c.postal, "country": c.country,
	} {
		if i >= 0 {
			found = append(found, field)
		}
	}
	slices.Sort(found)
	return found
}

// field returns the trimmed value at i, treating pandas' "nan" as empty.
func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	v := strings.TrimSpace(record[i])
	if strings.EqualFold(v, "nan") {
		return ""
	}
	return v
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
