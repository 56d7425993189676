package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/sensor"
)

func TestTrackSpacing(t *testing.T) {
	track := Track(1000, 3, 3)
	require.Len(t, track, 3)
	assert.Equal(t, int64(3000), track[2].Time)
	assert.Equal(t, sensor.Location, track[0].Kind)
	assert.Greater(t, track[1].Values[sensor.ChanLatitude], track[0].Values[sensor.ChanLatitude])
}

func TestCreateRun(t *testing.T) {
	d := NewTestDB(t)
	ctx := context.Background()

	id := CreateRun(t, d, Run{
		Type:       "Running",
		Start:      1_700_000_000,
		Seconds:    600,
		DistanceKm: 2,
		Readings:   HeartRates(1_700_000_000_000, 10, 150),
	})

	a, err := d.GetActivity(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, int64(1_700_000_600), *a.EndTime)

	n, err := d.ReadingCount(ctx, id, sensor.HeartRate)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	dist, err := d.SummaryAttribute(ctx, id, attr.Distance)
	require.NoError(t, err)
	km, ok := dist.Double()
	require.True(t, ok)
	assert.InDelta(t, 2.0, km, 1e-9)

	best, err := d.SummaryAttribute(ctx, id, attr.Fastest5K)
	require.NoError(t, err)
	assert.False(t, best.IsSet())
}
