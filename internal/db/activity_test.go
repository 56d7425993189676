package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/sensor"
)

func TestActivityLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := &Activity{ID: "a1", UserID: "u1", Type: "Running", Name: "Morning", StartTime: 1000}
	require.NoError(t, db.CreateActivity(ctx, a))

	got, err := db.GetActivity(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, got.InProgress())
	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("activity mismatch (-want +got):\n%s", diff)
	}

	orphan, err := db.OrphanedActivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a1", orphan.ID)

	require.NoError(t, db.StopActivity(ctx, "a1", 4600))
	got, err = db.GetActivity(ctx, "a1")
	require.NoError(t, err)
	require.NotNil(t, got.EndTime)
	assert.Equal(t, int64(4600), *got.EndTime)

	_, err = db.OrphanedActivity(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SetActivityName(ctx, "a1", "Renamed"))
	got, _ = db.GetActivity(ctx, "a1")
	assert.Equal(t, "Renamed", got.Name)

	assert.ErrorIs(t, db.StopActivity(ctx, "missing", 1), ErrNotFound)
	_, err = db.GetActivity(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, db.CreateActivity(ctx, &Activity{Type: "Running"}))
}

func TestListActivities(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "b", 2000)
	createTestActivity(t, db, "a", 1000)
	createTestActivity(t, db, "c", 3000)

	list, err := db.ListActivities(ctx)
	require.NoError(t, err)
	var ids []string
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	between, err := db.ListActivitiesBetween(ctx, 1500, 3000)
	require.NoError(t, err)
	require.Len(t, between, 1)
	assert.Equal(t, "b", between[0].ID)

	n, err := db.ActivityCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestFixEndTime(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.CreateActivity(ctx, &Activity{ID: "a", Type: "Running", StartTime: 1000}))
	require.NoError(t, db.InsertReading(ctx, "a", sensor.NewHeartRate(1_500_000, 120)))
	require.NoError(t, db.InsertReading(ctx, "a", sensor.NewPower(1_900_000, 200)))

	end, err := db.FixEndTime(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1900), end)

	end, err = db.FixEndTime(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1900), end)
}

func TestDeleteActivityCascades(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "a", 1000, 1_000_000, 1_001_000)
	createTestActivity(t, db, "keep", 5000, 5_000_000)
	require.NoError(t, db.CreateLap(ctx, "a", 1_000_500))
	require.NoError(t, db.CreateTag(ctx, "a", "race"))
	require.NoError(t, db.CreateHash(ctx, "a", "h1"))
	require.NoError(t, db.SetActivityBike(ctx, "a", "bike"))

	require.NoError(t, db.DeleteActivity(ctx, "a"))

	for _, table := range perActivityTables {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE activity_id = ?", "a").Scan(&n))
		assert.Zero(t, n, table)
	}
	_, err := db.GetActivity(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, readingTimes(t, db, "keep", sensor.HeartRate), 1)

	err = db.DeleteActivity(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrTxAborted)
	var txErr *TxError
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, "lookup", txErr.Step)
}

func TestTxNotStartedOnClosedDB(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Close())

	err := db.DeleteActivity(context.Background(), "a")
	assert.ErrorIs(t, err, ErrTxNotStarted)
	assert.NotErrorIs(t, err, ErrTxAborted)
}

func TestReset(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestActivity(t, db, "a", 1000, 1_000_000)
	require.NoError(t, db.CreateWeight(ctx, WeightMeasurement{Time: 1, WeightKg: 70}))

	require.NoError(t, db.Reset(ctx))
	for _, table := range allTables {
		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}
