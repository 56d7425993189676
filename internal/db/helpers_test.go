package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/monitoring"
	"github.com/banshee-data/trainlog/internal/sensor"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestActivity inserts a finished activity with one reading of every
// sensor kind at each of the given times (unix ms).
func createTestActivity(t *testing.T, db *DB, id string, start int64, times ...int64) {
	t.Helper()
	ctx := context.Background()
	end := start + 3600
	require.NoError(t, db.CreateActivity(ctx, &Activity{ID: id, Type: "Running", StartTime: start, EndTime: &end}))
	for _, ts := range times {
		for _, r := range []sensor.Reading{
			sensor.NewLocation(ts, 47.0, 8.0, 400, 5, 5),
			sensor.NewAccelerometer(ts, 0.1, 0.2, 0.98),
			sensor.NewHeartRate(ts, 140),
			sensor.NewCadence(ts, 85),
			sensor.NewWheelSpeed(ts, float64(ts/1000)),
			sensor.NewPower(ts, 210),
			sensor.NewFootPod(ts, 1.1, float64(ts/1000)),
		} {
			require.NoError(t, db.InsertReading(ctx, id, r))
		}
	}
}

func readingTimes(t *testing.T, db *DB, id string, kind sensor.Kind) []int64 {
	t.Helper()
	var out []int64
	for r, err := range db.Readings(context.Background(), id, kind) {
		require.NoError(t, err)
		out = append(out, r.Time)
	}
	return out
}
