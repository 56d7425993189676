package history

import (
	"context"
	"errors"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trainlog/internal/activity"
	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/db"
	"github.com/banshee-data/trainlog/internal/plan"
)

const week = 7 * 24 * time.Hour

// Pace factors relative to the best recorded 5K pace.
const (
	shortIntervalFactor = 1.05
	speedFactor         = 1.00
	thresholdFactor     = 0.93
	tempoFactor         = 0.90
	longFactor          = 0.75
	easyFactor          = 0.70
)

// Goal is what the athlete is training for.
type Goal struct {
	Distance   float64 // metres
	Type       plan.GoalType
	Experience plan.ExperienceLevel
}

// PlanInputs derives generator inputs from the four weeks of running before
// now. Runs without a stored distance are ignored. Paces are zero when no
// 5K effort has been recorded.
func PlanInputs(ctx context.Context, store Store, now time.Time, goal Goal) (plan.Inputs, error) {
	in := plan.Inputs{
		GoalDistance:    goal.Distance,
		GoalType:        goal.Type,
		ExperienceLevel: goal.Experience,
	}

	from := now.Add(-4 * week).Unix()
	activities, err := store.ListActivitiesBetween(ctx, from, now.Unix())
	if err != nil {
		return in, err
	}

	var all []float64
	weekly := make([][]float64, 3)
	for _, a := range activities {
		if !isRun(a.Type) {
			continue
		}
		meters, err := runDistance(ctx, store, a.ID)
		if err != nil {
			return in, err
		}
		if meters <= 0 {
			continue
		}
		all = append(all, meters)
		ago := now.Sub(time.Unix(a.StartTime, 0))
		if w := int(ago / week); w >= 0 && w < len(weekly) {
			weekly[w] = append(weekly[w], meters)
		}
	}

	if len(all) > 0 {
		in.LongestRunInFourWeeks = floats.Max(all)
		in.AvgRunDistance = stat.Mean(all, nil)
	}
	longest := []*float64{&in.LongestRunWeek1, &in.LongestRunWeek2, &in.LongestRunWeek3}
	for i, runs := range weekly {
		if len(runs) > 0 {
			*longest[i] = floats.Max(runs)
		}
	}

	pace, err := best5KPace(ctx, store)
	if err != nil {
		return in, err
	}
	if pace > 0 {
		in.ShortIntervalPace = pace * shortIntervalFactor
		in.SpeedPace = pace * speedFactor
		in.ThresholdPace = pace * thresholdFactor
		in.TempoPace = pace * tempoFactor
		in.LongPace = pace * longFactor
		in.EasyPace = pace * easyFactor
	}
	return in, nil
}

func isRun(t string) bool { return t == activity.Running || t == activity.Treadmill }

// runDistance reads the stored distance summary in metres.
func runDistance(ctx context.Context, store Store, id string) (float64, error) {
	a, err := store.SummaryAttribute(ctx, id, attr.Distance)
	if err != nil {
		return 0, err
	}
	km, ok := a.Float()
	if !ok {
		return 0, nil
	}
	return km * 1000, nil
}

// best5KPace is the fastest stored 5K across runs, in metres per minute.
func best5KPace(ctx context.Context, store Store) (float64, error) {
	var fastest float64
	for _, t := range []string{activity.Running, activity.Treadmill} {
		_, a, err := store.BestAttribute(ctx, t, attr.Fastest5K, true)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, err
		}
		secs, ok := a.Float()
		if !ok || secs <= 0 {
			continue
		}
		if pace := 5000 / (secs / 60); pace > fastest {
			fastest = pace
		}
	}
	return fastest, nil
}
