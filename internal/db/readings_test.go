package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/sensor"
)

func TestReadingsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "a", 1000)

	in := sensor.NewLocation(2000, 47.5, 8.5, 410, 4, 6)
	require.NoError(t, db.InsertReading(ctx, "a", in))
	require.NoError(t, db.InsertReading(ctx, "a", sensor.NewLocation(1000, 47.4, 8.4, 400, 4, 6)))

	var got []sensor.Reading
	for r, err := range db.Readings(ctx, "a", sensor.Location) {
		require.NoError(t, err)
		got = append(got, r)
	}
	require.Len(t, got, 2)
	assert.Equal(t, int64(1000), got[0].Time)
	assert.Equal(t, in, got[1])

	n, err := db.ReadingCount(ctx, "a", sensor.Location)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Error(t, db.InsertReading(ctx, "a", sensor.Reading{Kind: sensor.Kind(99)}))
}

func TestReadingsSequenceIsRestartableAndStoppable(t *testing.T) {
	db := newTestDB(t)
	createTestActivity(t, db, "a", 1000, 1000, 2000, 3000)

	seq := db.Readings(context.Background(), "a", sensor.HeartRate)
	for range 2 {
		count := 0
		for _, err := range seq {
			require.NoError(t, err)
			count++
		}
		assert.Equal(t, 3, count)
	}

	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestAllReadingsMergesKindsInTimeOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "a", 1000)
	require.NoError(t, db.InsertReadings(ctx, "a", []sensor.Reading{
		sensor.NewHeartRate(3000, 150),
		sensor.NewLocation(1000, 47, 8, 0, 0, 0),
		sensor.NewPower(2000, 250),
	}))

	var kinds []sensor.Kind
	for r, err := range db.AllReadings(ctx, "a") {
		require.NoError(t, err)
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []sensor.Kind{sensor.Location, sensor.Power, sensor.HeartRate}, kinds)
}

func TestInsertReadingsIsAtomic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "a", 1000)

	err := db.InsertReadings(ctx, "a", []sensor.Reading{
		sensor.NewHeartRate(1000, 150),
		{Kind: sensor.Kind(42), Time: 2000},
	})
	assert.ErrorIs(t, err, ErrTxAborted)
	assert.Empty(t, readingTimes(t, db, "a", sensor.HeartRate))
}

func TestCoordinatesAndLaps(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "a", 1000, 1000, 2000)
	require.NoError(t, db.CreateLap(ctx, "a", 1500))
	require.NoError(t, db.CreateLap(ctx, "a", 1200))

	var coords []Coordinate
	for c, err := range db.Coordinates(ctx, "a") {
		require.NoError(t, err)
		coords = append(coords, c)
	}
	require.Len(t, coords, 2)
	assert.Equal(t, 47.0, coords[0].Latitude)

	laps, err := db.Laps(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []int64{1200, 1500}, laps)
}

func TestTrimFromStart(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "a", 1, 1000, 2000, 3000, 4000)
	createTestActivity(t, db, "other", 1, 1000)

	require.NoError(t, db.Trim(ctx, "a", 2500, true))

	for _, k := range sensor.Kinds() {
		assert.Equal(t, []int64{3000, 4000}, readingTimes(t, db, "a", k), k.String())
	}
	assert.Equal(t, []int64{1000}, readingTimes(t, db, "other", sensor.Power))
	a, err := db.GetActivity(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.StartTime)
}

func TestTrimFromEnd(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "a", 1, 1000, 2000, 3000)

	require.NoError(t, db.Trim(ctx, "a", 2000, false))
	for _, k := range sensor.Kinds() {
		assert.Equal(t, []int64{1000, 2000}, readingTimes(t, db, "a", k), k.String())
	}
	a, err := db.GetActivity(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, int64(2), *a.EndTime)

	assert.ErrorIs(t, db.Trim(ctx, "missing", 1, true), ErrNotFound)
}

// Readings and laps stamped exactly at the cutoff survive either trim.
func TestTrimKeepsCutoff(t *testing.T) {
	tests := []struct {
		name      string
		fromStart bool
		want      []int64
		wantLaps  []int64
	}{
		{"from start", true, []int64{2000, 3000}, []int64{2000, 3000}},
		{"from end", false, []int64{1000, 2000}, []int64{1000, 2000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			ctx := context.Background()
			createTestActivity(t, db, "a", 1, 1000, 2000, 3000)
			for _, lap := range []int64{1000, 2000, 3000} {
				require.NoError(t, db.CreateLap(ctx, "a", lap))
			}

			require.NoError(t, db.Trim(ctx, "a", 2000, tt.fromStart))

			for _, k := range sensor.Kinds() {
				assert.Equal(t, tt.want, readingTimes(t, db, "a", k), k.String())
			}
			laps, err := db.Laps(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, tt.wantLaps, laps)
		})
	}
}

func TestMerge(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "a", 1000, 1_000_000, 1_001_000)
	createTestActivity(t, db, "b", 5000, 5_000_000)
	require.NoError(t, db.CreateLap(ctx, "a", 1_000_500))
	require.NoError(t, db.CreateLap(ctx, "b", 5_000_500))
	require.NoError(t, db.CreateTag(ctx, "a", "shared"))
	require.NoError(t, db.CreateTag(ctx, "b", "shared"))
	require.NoError(t, db.CreateTag(ctx, "b", "only-b"))
	require.NoError(t, db.CreateHash(ctx, "b", "hash-b"))
	require.NoError(t, db.SetActivityBike(ctx, "b", "bike-1"))
	require.NoError(t, db.SetSummaryAttribute(ctx, "b", "Distance", summaryDouble(5)))

	require.NoError(t, db.Merge(ctx, "a", "b"))

	for _, k := range sensor.Kinds() {
		assert.Equal(t, []int64{1_000_000, 1_001_000, 5_000_000}, readingTimes(t, db, "a", k), k.String())
		assert.Empty(t, readingTimes(t, db, "b", k))
	}
	laps, err := db.Laps(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []int64{1_000_500, 5_000_500}, laps)

	var tags []string
	for tag, err := range db.Tags(ctx, "a") {
		require.NoError(t, err)
		tags = append(tags, tag)
	}
	assert.Equal(t, []string{"only-b", "shared"}, tags)

	bike, err := db.ActivityBike(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "bike-1", bike)

	a, err := db.GetActivity(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), a.StartTime)
	assert.Equal(t, int64(5000+3600), *a.EndTime)

	_, err = db.GetActivity(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.ActivityIDByHash(ctx, "hash-b")
	assert.ErrorIs(t, err, ErrNotFound)
	n, err := db.SummaryAttributeCount(ctx, "b")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMergeMissingActivity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "a", 1000, 1_000_000)

	err := db.Merge(ctx, "a", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, readingTimes(t, db, "a", sensor.HeartRate), 1)

	assert.Error(t, db.Merge(ctx, "a", "a"))
}
