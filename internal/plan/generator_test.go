package plan

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func TestNearestIntervalDistance(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 400},
		{100, 400},
		{400, 400},
		{407, 400},
		{600, 400},
		{601, 800},
		{900, 800},
		{1050, 1000},
		{1500, 1000},
		{1501, 2000},
		{11000, 10000},
		{13500, 12000},
		{21100, 21000},
		{23000, 21000},
		{23001, 25000},
		{99999, 25000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NearestIntervalDistance(tt.in), "input %v", tt.in)
	}
}

func TestNearestIntervalDistanceAlwaysMember(t *testing.T) {
	for d := 0.0; d < 30000; d += 37 {
		got := NearestIntervalDistance(d)
		require.True(t, slices.Contains(intervalDistances, got), "input %v gave %v", d, got)
	}
}

func TestRoundDistance(t *testing.T) {
	assert.Equal(t, 22100.0, RoundDistance(22001))
	assert.Equal(t, 22000.0, RoundDistance(22000))
	assert.Equal(t, 100.0, RoundDistance(0.5))
}

func paceInputs() Inputs {
	return Inputs{
		GoalDistance:          21097.5,
		GoalType:              GoalCompletion,
		ShortIntervalPace:     280,
		ThresholdPace:         245,
		SpeedPace:             266,
		TempoPace:             240,
		LongPace:              192,
		EasyPace:              200,
		LongestRunInFourWeeks: 20000,
		AvgRunDistance:        8000,
		ExperienceLevel:       Beginner,
	}
}

func TestGenerateFreeRunsWithoutHistory(t *testing.T) {
	in := paceInputs()
	in.LongestRunInFourWeeks = 50

	p := NewGenerator(1).Generate(in)
	require.Len(t, p.Workouts, 2)
	for _, w := range p.Workouts {
		assert.Equal(t, FreeRun, w.Type)
		require.Len(t, w.Intervals, 1)
		assert.Equal(t, 5000.0, w.Intervals[0].Distance)
		assert.Zero(t, w.Intervals[0].Pace)
	}
}

func TestGenerateEmptyWithoutPaces(t *testing.T) {
	in := paceInputs()
	in.TempoPace = 0
	assert.Empty(t, NewGenerator(1).Generate(in).Workouts)

	in = paceInputs()
	in.EasyPace = 0.05
	assert.Empty(t, NewGenerator(1).Generate(in).Workouts)
}

func TestGenerateBeginnerTerminates(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		p := NewGenerator(seed).Generate(paceInputs())
		require.NotEmpty(t, p.Workouts)
		assert.LessOrEqual(t, p.Iterations, MaxIterations)
		if p.Iterations < MaxIterations {
			assert.GreaterOrEqual(t, p.EasyFraction(), 0.90, "seed %d", seed)
		}
	}
}

func TestGenerateWeekShape(t *testing.T) {
	in := paceInputs()
	in.GoalType = GoalSpeed
	in.ExperienceLevel = Advanced

	p := NewGenerator(7).Generate(in)
	var types []WorkoutType
	for _, w := range p.Workouts {
		types = append(types, w.Type)
		assert.NotEmpty(t, w.ID)
		assert.Positive(t, w.EstimatedStress, w.Type.String())
	}
	assert.Equal(t, []WorkoutType{LongRun, EasyRun, TempoRun, SpeedRun, EasyRun}, types)

	maxLongRun := func(g float64) float64 { return (-0.002*g)*(-0.002*g) + 0.7*g + 4.4 }(in.GoalDistance)
	long := p.Workouts[0].Intervals[0].Distance
	assert.LessOrEqual(t, long, RoundDistance(maxLongRun))
	assert.Zero(t, int(long)%100)

	for _, w := range []*Workout{p.Workouts[1], p.Workouts[4]} {
		d := w.Intervals[0].Distance
		assert.GreaterOrEqual(t, d, 2000.0)
		assert.Zero(t, int(d)%10)
	}

	tempo := p.Workouts[2]
	require.Len(t, tempo.Intervals, 3)
	assert.Equal(t, 600.0, tempo.Intervals[0].Duration)
	assert.Equal(t, 600.0, tempo.Intervals[2].Duration)
	assert.GreaterOrEqual(t, tempo.Intervals[1].Distance, 1000.0)

	speed := p.Workouts[3].Intervals[1]
	assert.Equal(t, 2*speed.Distance, speed.RecoveryDistance)
	assert.GreaterOrEqual(t, float64(speed.Repeat)*speed.Distance, 1000.0)
	assert.Equal(t, in.EasyPace, speed.RecoveryPace)
}

func TestGenerateFatigueDiscount(t *testing.T) {
	in := paceInputs()
	in.ExperienceLevel = Intermediate
	in.GoalDistance = 42195
	in.LongestRunWeek1 = 20000
	in.LongestRunWeek2 = 18000
	in.LongestRunWeek3 = 16000

	p := NewGenerator(3).Generate(in)
	// 20000 * 0.75 * 1.1
	assert.Equal(t, 16500.0, p.Workouts[0].Intervals[0].Distance)

	in.LongestRunWeek3 = 19000
	p = NewGenerator(3).Generate(in)
	assert.Equal(t, 22000.0, p.Workouts[0].Intervals[0].Distance)
}

func TestGenerateReproducibleWithSeed(t *testing.T) {
	a := NewGenerator(42).Generate(paceInputs())
	b := NewGenerator(42).Generate(paceInputs())
	require.Len(t, b.Workouts, len(a.Workouts))
	for i := range a.Workouts {
		assert.Equal(t, a.Workouts[i].Intervals, b.Workouts[i].Intervals)
	}
}

func TestParseInputsMissingKeysAreZero(t *testing.T) {
	in := ParseInputs(map[string]float64{KeyEasyPace: 200, KeyExperienceLevel: 2})
	assert.Equal(t, 200.0, in.EasyPace)
	assert.Equal(t, Intermediate, in.ExperienceLevel)
	assert.Zero(t, in.TempoPace)
	assert.Equal(t, in, ParseInputs(in.Map()))
}

func TestTrainingStress(t *testing.T) {
	w := NewWorkout(TempoRun, "")
	// 30 minutes at threshold scores 50.
	w.AddInterval(1, 7350, 245, 0, 0)
	assert.InDelta(t, 50.0, w.CalculateEstimatedTrainingStress(245), 1e-9)

	w = NewWorkout(SpeedRun, "")
	w.AddInterval(3, 490, 490, 245, 245)
	// 3 efforts of 1 minute at intensity 2, 2 recoveries of 1 minute at 1.
	want := 3*(60.0/3600)*4*100 + 2*(60.0/3600)*1*100
	assert.InDelta(t, want, w.CalculateEstimatedTrainingStress(245), 1e-9)
	assert.InDelta(t, 300.0, w.Duration(), 1e-9)
	assert.InDelta(t, 3*490.0+2*245, w.Distance(), 1e-9)

	assert.Zero(t, w.CalculateEstimatedTrainingStress(0))
}

func TestSchedule(t *testing.T) {
	start := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	p := NewGenerator(1).Generate(paceInputs())
	Schedule(p.Workouts, start)

	seen := map[int64]bool{}
	for _, w := range p.Workouts {
		if w.Type == LongRun {
			assert.Equal(t, start.AddDate(0, 0, 6).Unix(), w.ScheduledTime)
		} else {
			assert.Less(t, w.ScheduledTime, start.AddDate(0, 0, 6).Unix())
		}
		assert.False(t, seen[w.ScheduledTime], "two workouts on one day")
		seen[w.ScheduledTime] = true
	}
}

func TestWorkoutTypeText(t *testing.T) {
	b, err := TempoRun.MarshalText()
	require.NoError(t, err)
	var got WorkoutType
	require.NoError(t, got.UnmarshalText(b))
	assert.Equal(t, TempoRun, got)
	assert.Error(t, got.UnmarshalText([]byte("Sprint")))
	assert.True(t, SpeedRun.IsHard())
	assert.False(t, LongRun.IsHard())
}
