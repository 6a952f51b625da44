package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
)

// --- mocks ---

type recordingStore struct {
	persons []domain.PersonLocation
	err     error
}

func (s *recordingStore) UpsertPerson(_ context.Context, p domain.PersonLocation) error {
	if s.err != nil {
		return s.err
	}
	s.persons = append(s.persons, p)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// regionOnlyResolver resolves Japanese prefectures from the built-in table
// and everything else to the default coordinate.
func regionOnlyResolver() *domain.Resolver {
	return domain.NewResolver(domain.DefaultRegionTable(), nil, discardLogger())
}

const header = "Name,Address 1,Address 2,City,State,Postal,Country\n"

func TestImport_ResolvesAndStores(t *testing.T) {
	csvData := header +
		"Aiko Tanaka,1-1 Umeda,Apt 3,Kita-ku,Osaka,530.0,Japan\n" +
		"Ben Carter,12 Main St,,Springfield,IL,62701,USA\n" +
		",orphan row,,,,,\n" +
		",,,,,,\n"

	store := &recordingStore{}
	im := NewImporter(regionOnlyResolver(), store, observability.NewMetricsForTesting(), discardLogger())

	summary, err := im.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, Summary{Encoding: EncodingUTF8, Rows: 3, Imported: 2, Valid: 1, Fallback: 1, Skipped: 1}, summary)
	require.Len(t, store.persons, 2)

	aiko := store.persons[0]
	assert.Equal(t, "Aiko Tanaka", aiko.Name)
	assert.Equal(t, "1-1 Umeda, Apt 3, Kita-ku, Osaka, 530, Japan", aiko.Address)
	assert.True(t, aiko.IsValid)
	assert.Equal(t, 34.6937, aiko.Lat)

	ben := store.persons[1]
	assert.False(t, ben.IsValid)
	assert.Equal(t, domain.DefaultCoordinate.Lat, ben.Lat)
}

func TestImport_DryRunDoesNotStore(t *testing.T) {
	im := NewImporter(regionOnlyResolver(), nil, observability.NewMetricsForTesting(), discardLogger())

	summary, err := im.Import(context.Background(), strings.NewReader(header+"Aiko,,,,Tokyo,,Japan\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Valid)
}

func TestImport_FirstAndLastNameColumnsWithPreamble(t *testing.T) {
	csvData := "combo export,,,\n" +
		"original_First Name,original_Prim_Last,original_City,original_State,original_Country\n" +
		"Hana,Sato,Sapporo,Hokkaido,Japan\n"

	store := &recordingStore{}
	im := NewImporter(regionOnlyResolver(), store, observability.NewMetricsForTesting(), discardLogger())

	summary, err := im.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Valid)
	require.Len(t, store.persons, 1)
	assert.Equal(t, "Hana Sato", store.persons[0].Name)
	assert.Equal(t, "Sapporo, Hokkaido, Japan", store.persons[0].Address)
}

func TestImport_UTF8BOMAndCaseInsensitiveHeader(t *testing.T) {
	csvData := "\xEF\xBB\xBFNAME,city,COUNTRY\nYui,Kyoto,Japan\n"

	store := &recordingStore{}
	summary, err := NewImporter(regionOnlyResolver(), store, observability.NewMetricsForTesting(), discardLogger()).
		Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, EncodingUTF8, summary.Encoding)
	require.Len(t, store.persons, 1)
	assert.Equal(t, "Yui", store.persons[0].Name)
	assert.True(t, store.persons[0].IsValid)
}

func TestImport_ShiftJIS(t *testing.T) {
	encoded, err := japanese.ShiftJIS.NewEncoder().String(header + "山田 太郎,梅田1-1,,大阪市,大阪,530,日本\n")
	require.NoError(t, err)

	store := &recordingStore{}
	summary, err := NewImporter(regionOnlyResolver(), store, observability.NewMetricsForTesting(), discardLogger()).
		Import(context.Background(), strings.NewReader(encoded))
	require.NoError(t, err)

	assert.Equal(t, EncodingShiftJIS, summary.Encoding)
	require.Len(t, store.persons, 1)
	assert.Equal(t, "山田 太郎", store.persons[0].Name)
	assert.Contains(t, store.persons[0].Address, "大阪")
}

func TestImport_Windows1252Fallback(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String(header + "José,Rua Augusta,,Lisboa,,1100-053,Portugal\n")
	require.NoError(t, err)

	store := &recordingStore{}
	summary, err := NewImporter(regionOnlyResolver(), store, observability.NewMetricsForTesting(), discardLogger()).
		Import(context.Background(), strings.NewReader(encoded))
	require.NoError(t, err)

	assert.Equal(t, EncodingWindows1252, summary.Encoding)
	require.Len(t, store.persons, 1)
	assert.Equal(t, "José", store.persons[0].Name)
}

func TestImport_NoHeader(t *testing.T) {
	_, err := NewImporter(regionOnlyResolver(), nil, observability.NewMetricsForTesting(), discardLogger()).
		Import(context.Background(), strings.NewReader("a,b,c\n1,2,3\n"))
	require.ErrorIs(t, err, ErrNoHeader)
}

func TestImport_StoreError(t *testing.T) {
	store := &recordingStore{err: errors.New("db locked")}
	_, err := NewImporter(regionOnlyResolver(), store, observability.NewMetricsForTesting(), discardLogger()).
		Import(context.Background(), strings.NewReader(header+"Aiko,,,,Tokyo,,Japan\n"))
	require.Error(t, err)
}

func TestImport_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImporter(regionOnlyResolver(), nil, observability.NewMetricsForTesting(), discardLogger()).
		Import(ctx, strings.NewReader(header+"Aiko,,,,Tokyo,,Japan\n"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestField_TreatsNaNAsEmpty(t *testing.T) {
	assert.Empty(t, field([]string{"nan"}, 0))
	assert.Empty(t, field([]string{"x"}, 3))
	assert.Equal(t, "x", field([]string{" x "}, 0))
}
