package db

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/plan"
)

func TestWorkoutRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	w := plan.NewWorkout(plan.SpeedRun, "")
	w.AddWarmup(600, 200)
	w.AddInterval(6, 400, 280, 800, 200)
	w.AddCooldown(600, 200)
	w.ScheduledTime = 1_700_000_000
	w.CalculateEstimatedTrainingStress(245)
	require.NoError(t, db.CreateWorkout(ctx, w))
	require.NotEmpty(t, w.ID)

	got, err := db.GetWorkout(ctx, w.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(w, got); diff != "" {
		t.Errorf("workout mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, db.DeleteWorkout(ctx, w.ID))
	_, err = db.GetWorkout(ctx, w.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteWorkout(ctx, w.ID), ErrNotFound)
}

func TestReplaceWorkouts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := plan.NewWorkout(plan.EasyRun, "")
	first.AddInterval(1, 5000, 200, 0, 0)
	require.NoError(t, db.CreateWorkout(ctx, first))

	gen := plan.NewGenerator(5)
	p := gen.Generate(plan.Inputs{
		GoalDistance: 10000, ShortIntervalPace: 280, ThresholdPace: 245, SpeedPace: 266,
		TempoPace: 240, LongPace: 192, EasyPace: 200,
		LongestRunInFourWeeks: 12000, AvgRunDistance: 6000, ExperienceLevel: plan.Intermediate,
	})
	require.NoError(t, db.ReplaceWorkouts(ctx, p.Workouts))

	stored, err := db.ListWorkouts(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, len(p.Workouts))
	for _, w := range stored {
		assert.NotEqual(t, first.ID, w.ID)
		assert.NotEmpty(t, w.Intervals)
	}
}
