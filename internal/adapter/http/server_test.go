package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/alumni-hazard-monitor/internal/domain"
	httpadapter "github.com/couchcryptid/alumni-hazard-monitor/internal/adapter/http"
	"github.com/couchcryptid/alumni-hazard-monitor/internal/monitor"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// --- mocks ---

type mockAlerts struct {
	readyErr  error
	snapshot  monitor.Snapshot
	hasSnap   bool
	evalErr   error
	evaluated []domain.ProximityAlert
	disasters []domain.DisasterEvent

	gotThreshold float64
	gotTypes     []string
}

func (m *mockAlerts) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockAlerts) Latest() (monitor.Snapshot, bool) { return m.snapshot, m.hasSnap }

func (m *mockAlerts) Evaluate(_ context.Context, thresholdKm float64, types []string) ([]domain.ProximityAlert, error) {
	m.gotThreshold, m.gotTypes = thresholdKm, types
	if err := domain.ValidateThreshold(thresholdKm); err != nil {
		return nil, err
	}
	if err := domain.DefaultCatalog().ValidateTypes(types); err != nil {
		return nil, err
	}
	return m.evaluated, m.evalErr
}

func (m *mockAlerts) Disasters(_ context.Context, types []string) ([]domain.DisasterEvent, error) {
	m.gotTypes = types
	if err := domain.DefaultCatalog().ValidateTypes(types); err != nil {
		return nil, err
	}
	return m.disasters, nil
}

func (m *mockAlerts) Types() []string { return domain.DefaultCatalog().Names() }

func (m *mockAlerts) Threshold() float64 { return 200 }

type mockPersons struct {
	persons []domain.PersonLocation
	err     error
}

func (m *mockPersons) ListPersons(_ context.Context) ([]domain.PersonLocation, error) {
	return m.persons, m.err
}

var (
	sampleAlert = domain.ProximityAlert{
		ID: "alert-0123456789abcdef", PersonName: "Aiko", PersonAddress: "Chiyoda, Tokyo, Japan",
		DisasterID: "EONET_1", CategoryLabel: "Wildfires", DisasterTitle: "Wildfire near Yokohama", DistanceKm: 25.8,
	}
	samplePersons = []domain.PersonLocation{
		{Name: "Aiko", Address: "Chiyoda, Tokyo, Japan", Lat: 35.6762, Lon: 139.6503, IsValid: true, Source: domain.SourceRegion},
		{Name: "Ken", Address: "unknown", Lat: 35.6762, Lon: 139.6503, IsValid: false, Source: domain.SourceDefault},
	}
	sampleDisasters = []domain.DisasterEvent{
		{ID: "EONET_1", Title: "Wildfire near Yokohama", CategoryID: "wildfires", CategoryLabel: "Wildfires", Lat: 35.4437, Lon: 139.6380},
	}
)

func newTestServer(alerts *mockAlerts, persons *mockPersons) *httpadapter.Server {
	return httpadapter.NewServer(":0", alerts, persons, 1000, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(t *testing.T, srv http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec, body := get(t, newTestServer(&mockAlerts{}, &mockPersons{}), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec, body := get(t, newTestServer(&mockAlerts{}, &mockPersons{}), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec, body := get(t, newTestServer(&mockAlerts{readyErr: fmt.Errorf("not ready yet")}, &mockPersons{}), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(&mockAlerts{}, &mockPersons{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- alerts ---

func TestAlerts_LatestSnapshot(t *testing.T) {
	generated := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	alerts := &mockAlerts{hasSnap: true, snapshot: monitor.Snapshot{
		RunID: "run-1", GeneratedAt: generated, ThresholdKm: 50,
		Types: []string{"Wildfires"}, Alerts: []domain.ProximityAlert{sampleAlert},
	}}
	rec, body := get(t, newTestServer(alerts, &mockPersons{}), "/api/v1/alerts")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, 50.0, body["threshold_km"])
	assert.Equal(t, 1.0, body["count"])
	assert.Nil(t, alerts.gotTypes, "snapshot path does not evaluate")
}

func TestAlerts_NoSnapshotYet(t *testing.T) {
	rec, body := get(t, newTestServer(&mockAlerts{}, &mockPersons{}), "/api/v1/alerts")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, body["error"], "no monitor cycle")
}

func TestAlerts_OnDemand(t *testing.T) {
	alerts := &mockAlerts{evaluated: []domain.ProximityAlert{sampleAlert}}
	rec, body := get(t, newTestServer(alerts, &mockPersons{}), "/api/v1/alerts?threshold_km=75.5&types=Wildfires,%20Volcanoes")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 75.5, alerts.gotThreshold)
	assert.Equal(t, []string{"Wildfires", "Volcanoes"}, alerts.gotTypes)
	assert.Equal(t, 1.0, body["count"])
}

func TestAlerts_TypesOnlyUsesDefaultThreshold(t *testing.T) {
	alerts := &mockAlerts{}
	rec, _ := get(t, newTestServer(alerts, &mockPersons{}), "/api/v1/alerts?types=Earthquakes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200.0, alerts.gotThreshold)
}

func TestAlerts_EmptyTypesIsEmptySelection(t *testing.T) {
	alerts := &mockAlerts{}
	rec, _ := get(t, newTestServer(alerts, &mockPersons{}), "/api/v1/alerts?types=")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, alerts.gotTypes)
	assert.Empty(t, alerts.gotTypes)
}

func TestAlerts_BadRequests(t *testing.T) {
	cases := map[string]string{
		"negative threshold": "/api/v1/alerts?threshold_km=-5",
		"zero threshold":     "/api/v1/alerts?threshold_km=0",
		"non-numeric":        "/api/v1/alerts?threshold_km=far",
		"infinite":           "/api/v1/alerts?threshold_km=Inf",
		"unknown type":       "/api/v1/alerts?types=Tsunami",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec, body := get(t, newTestServer(&mockAlerts{}, &mockPersons{}), target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestAlerts_InternalError(t *testing.T) {
	alerts := &mockAlerts{evalErr: errors.New("db gone")}
	rec, body := get(t, newTestServer(alerts, &mockPersons{}), "/api/v1/alerts?threshold_km=10")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", body["error"])
}

// --- persons, disasters, map ---

func TestPersons(t *testing.T) {
	rec, body := get(t, newTestServer(&mockAlerts{}, &mockPersons{persons: samplePersons}), "/api/v1/persons")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, body["count"])
	assert.Equal(t, 1.0, body["valid"])
	assert.Equal(t, 1.0, body["fallback"])
}

func TestPersons_StoreError(t *testing.T) {
	rec, _ := get(t, newTestServer(&mockAlerts{}, &mockPersons{err: errors.New("locked")}), "/api/v1/persons")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDisasters(t *testing.T) {
	alerts := &mockAlerts{disasters: sampleDisasters}
	rec, body := get(t, newTestServer(alerts, &mockPersons{}), "/api/v1/disasters?types=Wildfires")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, body["count"])
	assert.Equal(t, []string{"Wildfires"}, alerts.gotTypes)
}

func TestDisasters_NoTypesUsesConfigured(t *testing.T) {
	alerts := &mockAlerts{disasters: sampleDisasters}
	rec, _ := get(t, newTestServer(alerts, &mockPersons{}), "/api/v1/disasters")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, alerts.gotTypes)
}

func TestDisasters_UnknownType(t *testing.T) {
	rec, _ := get(t, newTestServer(&mockAlerts{}, &mockPersons{}), "/api/v1/disasters?types=Floods")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTypes(t *testing.T) {
	rec, body := get(t, newTestServer(&mockAlerts{}, &mockPersons{}), "/api/v1/types")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["types"], 4)
}

func TestMap_GeoJSON(t *testing.T) {
	srv := newTestServer(&mockAlerts{disasters: sampleDisasters}, &mockPersons{persons: samplePersons})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/map", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/geo+json")

	var fc httpadapter.FeatureCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, []float64{139.6503, 35.6762}, fc.Features[0].Geometry.Coordinates, "GeoJSON is lon,lat")
	assert.Equal(t, false, fc.Features[1].Properties["is_valid"])
	assert.Equal(t, "disaster", fc.Features[2].Properties["kind"])
}

// --- middleware ---

func TestRateLimit(t *testing.T) {
	srv := httpadapter.NewServer(":0", &mockAlerts{}, &mockPersons{}, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec, _ := get(t, srv, "/api/v1/types")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, body := get(t, srv, "/api/v1/types")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", body["error"])

	rec, _ = get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code, "health checks are not rate limited")
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(&mockAlerts{}, &mockPersons{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/types", nil)
	req.Header.Set("Origin", "https://dashboard.example.org")
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
