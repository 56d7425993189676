package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/activity"
	"github.com/banshee-data/trainlog/internal/plan"
	"github.com/banshee-data/trainlog/internal/testutil"
)

func TestPlanInputs(t *testing.T) {
	d := testutil.NewTestDB(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	daysAgo := func(n int64) int64 { return now.Unix() - n*day }

	for _, r := range []testutil.Run{
		{Type: activity.Running, Start: daysAgo(2), Seconds: 1800, DistanceKm: 6},
		{Type: activity.Running, Start: daysAgo(4), Seconds: 2400, DistanceKm: 8, Fastest5K: 1500},
		{Type: activity.Treadmill, Start: daysAgo(9), Seconds: 3600, DistanceKm: 10},
		{Type: activity.Running, Start: daysAgo(24), Seconds: 5400, DistanceKm: 16},
		// Outside the four-week window and not a run.
		{Type: activity.Running, Start: daysAgo(40), Seconds: 7200, DistanceKm: 30, Fastest5K: 1200},
		{Type: activity.Cycling, Start: daysAgo(1), Seconds: 3600, DistanceKm: 40},
	} {
		testutil.CreateRun(t, d, r)
	}

	in, err := PlanInputs(ctx, d, now, Goal{Distance: 21097.5, Type: plan.GoalSpeed, Experience: plan.Intermediate})
	require.NoError(t, err)

	assert.Equal(t, 21097.5, in.GoalDistance)
	assert.Equal(t, plan.GoalSpeed, in.GoalType)
	assert.Equal(t, plan.Intermediate, in.ExperienceLevel)

	assert.InDelta(t, 16000, in.LongestRunInFourWeeks, 1e-6)
	assert.InDelta(t, 8000, in.LongestRunWeek1, 1e-6)
	assert.InDelta(t, 10000, in.LongestRunWeek2, 1e-6)
	assert.Zero(t, in.LongestRunWeek3)
	assert.InDelta(t, 10000, in.AvgRunDistance, 1e-6)

	// The 40-day-old 5K is still the best on record: 5000 m in 20 minutes.
	assert.InDelta(t, 250, in.SpeedPace, 1e-9)
	assert.InDelta(t, 262.5, in.ShortIntervalPace, 1e-9)
	assert.InDelta(t, 232.5, in.ThresholdPace, 1e-9)
	assert.InDelta(t, 225, in.TempoPace, 1e-9)
	assert.InDelta(t, 187.5, in.LongPace, 1e-9)
	assert.InDelta(t, 175, in.EasyPace, 1e-9)
}

func TestPlanInputsWithoutHistory(t *testing.T) {
	d := testutil.NewTestDB(t)

	in, err := PlanInputs(context.Background(), d, time.Unix(1_700_000_000, 0), Goal{Distance: 5000, Experience: plan.Beginner})
	require.NoError(t, err)
	assert.Zero(t, in.LongestRunInFourWeeks)
	assert.Zero(t, in.AvgRunDistance)
	assert.Zero(t, in.EasyPace)

	// Too little history to plan: only the free-run placeholders come back.
	p := plan.NewGenerator(1).Generate(in)
	require.Len(t, p.Workouts, 2)
	for _, w := range p.Workouts {
		assert.Equal(t, plan.FreeRun, w.Type)
	}
}
