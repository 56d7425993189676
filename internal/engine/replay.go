package engine

import (
	"context"
	"errors"
	"iter"

	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/db"
	"github.com/banshee-data/trainlog/internal/sensor"
)

// replay applies readings in order to s, closing laps at their stored
// start times as the readings pass them. It returns the number of readings
// applied.
func replay(s *session, readings iter.Seq2[sensor.Reading, error], laps []int64) (int, error) {
	n := 0
	for r, err := range readings {
		if err != nil {
			return n, err
		}
		for len(laps) > 0 && laps[0] <= r.Time {
			s.newLap(laps[0])
			laps = laps[1:]
		}
		s.apply(r)
		n++
	}
	for _, t := range laps {
		s.newLap(t)
	}
	return n, nil
}

// Summarize derives the summary attributes of a recorded activity the same
// way a live recording would. Times are unix milliseconds; endMS <= 0 ends
// the activity at its last reading.
func Summarize(activityType string, profile Profile, wheelCircumferenceMM float64,
	startMS, endMS int64, readings iter.Seq2[sensor.Reading, error], laps []int64,
) (map[string]attr.Attribute, error) {
	s := newSession(activityType, Config{Profile: profile}.withDefaults().Profile)
	if wheelCircumferenceMM > 0 {
		s.setBike("", wheelCircumferenceMM)
	}
	s.begin("", startMS)
	if _, err := replay(s, readings, laps); err != nil {
		return nil, err
	}
	s.finish(max(endMS, s.lastMS))
	return s.attrs.Snapshot(), nil
}

// SummaryStore is what Resummarize reads and writes.
type SummaryStore interface {
	GetActivity(ctx context.Context, id string) (*db.Activity, error)
	ActivityBike(ctx context.Context, activityID string) (string, error)
	GetBike(ctx context.Context, id string) (*db.Bike, error)
	Laps(ctx context.Context, activityID string) ([]int64, error)
	AllReadings(ctx context.Context, activityID string) iter.Seq2[sensor.Reading, error]
	ReplaceSummary(ctx context.Context, activityID string, attrs map[string]attr.Attribute) error
}

var _ SummaryStore = (*db.DB)(nil)

// Resummarize rederives the stored summary of a finished activity from its
// readings and laps, replacing the old one. Used after edits such as trim
// and merge.
func Resummarize(ctx context.Context, store SummaryStore, id string, profile Profile) (map[string]attr.Attribute, error) {
	a, err := store.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	var wheelMM float64
	bikeID, err := store.ActivityBike(ctx, id)
	switch {
	case err == nil:
		bike, err := store.GetBike(ctx, bikeID)
		if err != nil {
			return nil, err
		}
		wheelMM = bike.WheelCircumferenceMM
	case !errors.Is(err, db.ErrNotFound):
		return nil, err
	}
	laps, err := store.Laps(ctx, id)
	if err != nil {
		return nil, err
	}
	var endMS int64
	if a.EndTime != nil {
		endMS = *a.EndTime * 1000
	}
	summary, err := Summarize(a.Type, profile, wheelMM, a.StartTime*1000, endMS, store.AllReadings(ctx, id), laps)
	if err != nil {
		return nil, err
	}
	if err := store.ReplaceSummary(ctx, id, summary); err != nil {
		return nil, err
	}
	logf("resummarized activity %s: %d attributes", id, len(summary))
	return summary, nil
}
