package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/db"
	"github.com/banshee-data/trainlog/internal/sensor"
	"github.com/banshee-data/trainlog/internal/units"
)

// metersPerDegree is the length of one degree of latitude.
const metersPerDegree = 111_195.0

// NewTestDB opens a fresh database under t.TempDir and closes it on cleanup.
func NewTestDB(t testing.TB) *db.DB {
	t.Helper()
	d, err := db.NewDB(filepath.Join(t.TempDir(), "trainlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

// Track returns n location readings one second apart starting at startMS,
// heading due north at metersPerSecond.
func Track(startMS int64, n int, metersPerSecond float64) []sensor.Reading {
	out := make([]sensor.Reading, n)
	for i := range out {
		lat := 47.0 + float64(i)*metersPerSecond/metersPerDegree
		out[i] = sensor.NewLocation(startMS+int64(i)*1000, lat, 8.0, 400, 5, 5)
	}
	return out
}

// HeartRates returns n heart-rate readings one second apart at bpm.
func HeartRates(startMS int64, n int, bpm float64) []sensor.Reading {
	out := make([]sensor.Reading, n)
	for i := range out {
		out[i] = sensor.NewHeartRate(startMS+int64(i)*1000, bpm)
	}
	return out
}

// Run describes a stored, finished activity for fixtures.
type Run struct {
	Type       string
	Start      int64   // unix seconds
	Seconds    int64   // duration
	DistanceKm float64 // stored as the Distance summary when > 0
	Fastest5K  int64   // seconds, stored when > 0
	Readings   []sensor.Reading
}

// CreateRun stores r and returns its id.
func CreateRun(t testing.TB, d *db.DB, r Run) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	end := r.Start + r.Seconds
	require.NoError(t, d.CreateActivity(ctx, &db.Activity{ID: id, Type: r.Type, StartTime: r.Start, EndTime: &end}))
	if len(r.Readings) > 0 {
		require.NoError(t, d.InsertReadings(ctx, id, r.Readings))
	}
	summary := map[string]attr.Attribute{
		attr.ElapsedTime: attr.Time(r.Seconds, attr.MeasureTotal, units.Metric),
	}
	if r.DistanceKm > 0 {
		summary[attr.Distance] = attr.Double(r.DistanceKm, attr.MeasureTotal, units.Metric)
	}
	if r.Fastest5K > 0 {
		summary[attr.Fastest5K] = attr.Time(r.Fastest5K, attr.MeasureMin, units.Metric)
	}
	require.NoError(t, d.SaveSummary(ctx, id, summary))
	return id
}
