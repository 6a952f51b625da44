package domain

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokyoPerson = PersonLocation{Name: "Taro", Address: "Tokyo, Japan", Lat: 35.6762, Lon: 139.6503, IsValid: true}
	yokohamaFire = DisasterEvent{ID: "EONET_1", Title: "Yokohama fire", CategoryID: "wildfires", CategoryLabel: "Wildfires", Lat: 35.4437, Lon: 139.6380}
)

func TestFindNearby_ScenarioA_WithinThreshold(t *testing.T) {
	alerts, err := FindNearby([]PersonLocation{tokyoPerson}, []DisasterEvent{yokohamaFire}, 50)
	require.NoError(t, err)

	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, "Taro", a.PersonName)
	assert.Equal(t, "Tokyo, Japan", a.PersonAddress)
	assert.Equal(t, "Wildfires", a.CategoryLabel)
	assert.Equal(t, "Yokohama fire", a.DisasterTitle)
	assert.Equal(t, "EONET_1", a.DisasterID)
	assert.GreaterOrEqual(t, a.DistanceKm, 24.0)
	assert.LessOrEqual(t, a.DistanceKm, 26.0)
}

func TestFindNearby_ScenarioB_OutsideThreshold(t *testing.T) {
	alerts, err := FindNearby([]PersonLocation{tokyoPerson}, []DisasterEvent{yokohamaFire}, 10)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestFindNearby_ScenarioC_InvalidPersonNeverAlerts(t *testing.T) {
	fallback := NewPersonLocation("Unknown", "Somewhere", DefaultCoordinate)
	atDefault := DisasterEvent{ID: "x", Title: "On top", CategoryLabel: "Earthquakes", Lat: DefaultCoordinate.Lat, Lon: DefaultCoordinate.Lon}

	alerts, err := FindNearby([]PersonLocation{fallback}, []DisasterEvent{atDefault}, 1000)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestFindNearby_InvalidThreshold(t *testing.T) {
	for _, threshold := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := FindNearby([]PersonLocation{tokyoPerson}, []DisasterEvent{yokohamaFire}, threshold)
		require.Error(t, err, "threshold %v", threshold)
		assert.ErrorIs(t, err, ErrInvalidThreshold)

		var typed *InvalidThresholdError
		require.ErrorAs(t, err, &typed)
	}
}

func TestFindNearby_SortedAndComplete(t *testing.T) {
	persons := []PersonLocation{
		tokyoPerson,
		{Name: "Hanako", Address: "Osaka", Lat: 34.6937, Lon: 135.5023, IsValid: true},
		{Name: "Ken", Address: "Sapporo", Lat: 43.0642, Lon: 141.3469, IsValid: true},
		{Name: "Default", Address: "?", Lat: 35.6762, Lon: 139.6503, IsValid: false},
		{Name: "Broken", Address: "?", Lat: 123, Lon: 10, IsValid: true},
	}
	disasters := []DisasterEvent{
		yokohamaFire,
		{ID: "EONET_2", Title: "Kobe quake", CategoryLabel: "Earthquakes", Lat: 34.6913, Lon: 135.1830},
		{ID: "EONET_3", Title: "Sakurajima", CategoryLabel: "Volcanoes", Lat: 31.593, Lon: 130.657},
		{ID: "EONET_4", Title: "Bad coords", CategoryLabel: "Volcanoes", Lat: math.NaN(), Lon: 0},
	}
	threshold := 600.0

	alerts, err := FindNearby(persons, disasters, threshold)
	require.NoError(t, err)

	// Every alert is within threshold and sorted ascending.
	assert.True(t, sort.SliceIsSorted(alerts, func(i, j int) bool { return alerts[i].DistanceKm < alerts[j].DistanceKm }))
	for _, a := range alerts {
		assert.LessOrEqual(t, a.DistanceKm, threshold)
		assert.NotEqual(t, "Default", a.PersonName)
		assert.NotEqual(t, "Broken", a.PersonName)
	}

	// Every qualifying pair appears exactly once.
	want := 0
	for _, p := range persons {
		if !p.IsValid || !validLatLon(p.Lat, p.Lon) {
			continue
		}
		for _, d := range disasters {
			if validLatLon(d.Lat, d.Lon) && DistanceKm(p.Lat, p.Lon, d.Lat, d.Lon) <= threshold {
				want++
			}
		}
	}
	assert.Len(t, alerts, want)

	seen := map[string]bool{}
	for _, a := range alerts {
		assert.False(t, seen[a.ID], "duplicate alert %s", a.ID)
		seen[a.ID] = true
	}
}

func TestFindNearby_DuplicateInputYieldsOneAlert(t *testing.T) {
	alerts, err := FindNearby(
		[]PersonLocation{tokyoPerson, tokyoPerson},
		[]DisasterEvent{yokohamaFire, yokohamaFire},
		50,
	)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestFindNearby_StableForEqualDistances(t *testing.T) {
	persons := []PersonLocation{
		{Name: "A", Address: "a", Lat: 10, Lon: 10, IsValid: true},
		{Name: "B", Address: "b", Lat: 10, Lon: 10, IsValid: true},
		{Name: "C", Address: "c", Lat: 10, Lon: 10, IsValid: true},
	}
	d := []DisasterEvent{{ID: "d", Title: "same spot", Lat: 10, Lon: 10.1}}

	for range 5 {
		alerts, err := FindNearby(persons, d, 100)
		require.NoError(t, err)
		require.Len(t, alerts, 3)
		assert.Equal(t, []string{"A", "B", "C"}, []string{alerts[0].PersonName, alerts[1].PersonName, alerts[2].PersonName})
	}
}

func TestFindNearby_LatitudePrefilterMatchesBruteForce(t *testing.T) {
	// Points straddling the pre-filter boundary along a meridian at the equator.
	person := PersonLocation{Name: "Eq", Address: "equator", Lat: 0, Lon: 0, IsValid: true}
	var disasters []DisasterEvent
	for i := range 40 {
		lat := 0.85 + float64(i)*0.005
		disasters = append(disasters, DisasterEvent{ID: string(rune('a' + i)), Lat: lat, Lon: 0})
	}
	threshold := 100.0

	alerts, err := FindNearby([]PersonLocation{person}, disasters, threshold)
	require.NoError(t, err)

	want := 0
	for _, d := range disasters {
		if DistanceKm(0, 0, d.Lat, d.Lon) <= threshold {
			want++
		}
	}
	assert.Len(t, alerts, want)
	assert.Positive(t, want)
	assert.Less(t, want, len(disasters))
}

func TestFindNearby_RoundsToOneDecimalAndStamps(t *testing.T) {
	frozen := time.Date(2024, 8, 2, 9, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	t.Cleanup(func() { SetClock(nil) })

	alerts, err := FindNearby([]PersonLocation{tokyoPerson}, []DisasterEvent{yokohamaFire}, 50)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	d := alerts[0].DistanceKm
	assert.Equal(t, math.Round(d*10)/10, d)
	assert.Equal(t, frozen, alerts[0].GeneratedAt)
}

func TestFindNearby_EmptyInputs(t *testing.T) {
	alerts, err := FindNearby(nil, nil, 200)
	require.NoError(t, err)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestAlertID_Deterministic(t *testing.T) {
	a := alertID(tokyoPerson, yokohamaFire)
	b := alertID(tokyoPerson, yokohamaFire)
	c := alertID(tokyoPerson, DisasterEvent{ID: "EONET_2"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^alert-[0-9a-f]{16}$`, a)
}

func TestDistanceKm(t *testing.T) {
	// One degree of latitude at the equator on WGS-84.
	assert.InDelta(t, 110.574, DistanceKm(0, 0, 1, 0), 0.01)
	assert.Zero(t, DistanceKm(35.0, 139.0, 35.0, 139.0))
	assert.InDelta(t, DistanceKm(35.6762, 139.6503, 34.6937, 135.5023), DistanceKm(34.6937, 135.5023, 35.6762, 139.6503), 1e-9)
}

func TestParseThreshold(t *testing.T) {
	v, err := ParseThreshold(" 200 ")
	require.NoError(t, err)
	assert.Equal(t, 200.0, v)

	for _, raw := range []string{"abc", "-5", "0", "NaN", ""} {
		_, err := ParseThreshold(raw)
		require.ErrorIs(t, err, ErrInvalidThreshold, raw)
	}

	_, err = ParseThreshold("far")
	assert.Contains(t, err.Error(), `"far"`)
}

func TestDisasterEvent_Key(t *testing.T) {
	assert.Equal(t, "EONET_9", DisasterEvent{ID: "EONET_9", Title: "Fire"}.Key())
	assert.Equal(t, "Fire@35.4000,139.6000", DisasterEvent{Title: "Fire", Lat: 35.4, Lon: 139.6}.Key())
}
