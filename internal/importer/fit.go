package importer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"time"

	"github.com/tormoder/fit"

	"github.com/banshee-data/trainlog/internal/activity"
	"github.com/banshee-data/trainlog/internal/sensor"
)

// decodeFIT reads a FIT activity file. Records become readings, laps after
// the first become lap start times.
func decodeFIT(r io.Reader) (*decoded, error) {
	file, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	af, err := file.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}

	records := slices.DeleteFunc(slices.Clone(af.Records), func(rec *fit.RecordMsg) bool {
		return rec == nil || validTimeOrZero(rec.Timestamp).IsZero()
	})
	slices.SortStableFunc(records, func(a, b *fit.RecordMsg) int { return a.Timestamp.Compare(b.Timestamp) })

	d := &decoded{}
	var start, end time.Time
	if len(af.Sessions) > 0 {
		s := af.Sessions[0]
		d.activityType = activityType(s.Sport, s.SubSport)
		start = validTimeOrZero(s.StartTime)
		end = validTimeOrZero(s.Timestamp)
	}
	if len(records) > 0 {
		if start.IsZero() {
			start = records[0].Timestamp
		}
		if last := records[len(records)-1].Timestamp; end.IsZero() || last.After(end) {
			end = last
		}
	}
	if start.IsZero() {
		return nil, errors.New("FIT file has neither a session nor timed records")
	}
	d.startMS, d.endMS = start.UnixMilli(), end.UnixMilli()

	footDistance := !hasPositions(records) && activity.IsFoot(d.activityType)
	for _, rec := range records {
		d.readings = append(d.readings, recordReadings(rec, footDistance)...)
	}

	for _, lap := range af.Laps {
		t := validTimeOrZero(lap.StartTime)
		if t.IsZero() || !t.After(start) {
			continue
		}
		d.laps = append(d.laps, t.UnixMilli())
	}
	slices.Sort(d.laps)
	d.laps = slices.Compact(d.laps)
	return d, nil
}

// activityType maps a FIT sport to an activity tag; unknown sports map to "".
func activityType(sport fit.Sport, sub fit.SubSport) string {
	switch sport {
	case fit.SportRunning:
		if sub == fit.SubSportTreadmill {
			return activity.Treadmill
		}
		return activity.Running
	case fit.SportCycling:
		switch sub {
		case fit.SubSportIndoorCycling:
			return activity.StationaryBike
		case fit.SubSportMountain:
			return activity.MountainBiking
		default:
			return activity.Cycling
		}
	case fit.SportWalking:
		return activity.Walking
	case fit.SportHiking:
		return activity.Hiking
	case fit.SportSwimming:
		if sub == fit.SubSportLapSwimming {
			return activity.PoolSwim
		}
		return activity.OpenWaterSwim
	default:
		return ""
	}
}

func hasPositions(records []*fit.RecordMsg) bool {
	return slices.ContainsFunc(records, func(rec *fit.RecordMsg) bool {
		return !rec.PositionLat.Invalid() && !rec.PositionLong.Invalid()
	})
}

// recordReadings splits one FIT record into per-sensor readings. Invalid
// fields are skipped.
func recordReadings(rec *fit.RecordMsg, footDistance bool) []sensor.Reading {
	t := rec.Timestamp.UnixMilli()
	var out []sensor.Reading

	if !rec.PositionLat.Invalid() && !rec.PositionLong.Invalid() {
		out = append(out, sensor.NewLocation(t, rec.PositionLat.Degrees(), rec.PositionLong.Degrees(), altitude(rec), 0, 0))
	}
	if rec.HeartRate != math.MaxUint8 && rec.HeartRate > 0 {
		out = append(out, sensor.NewHeartRate(t, float64(rec.HeartRate)))
	}
	if rec.Cadence != math.MaxUint8 {
		out = append(out, sensor.NewCadence(t, float64(rec.Cadence)))
	}
	if rec.Power != math.MaxUint16 {
		out = append(out, sensor.NewPower(t, float64(rec.Power)))
	}
	if footDistance {
		if dist := rec.GetDistanceScaled(); finite(dist) && dist >= 0 {
			out = append(out, sensor.NewFootPod(t, strideLength(rec), dist))
		}
	}
	return out
}

func altitude(rec *fit.RecordMsg) float64 {
	if alt := rec.GetEnhancedAltitudeScaled(); finite(alt) {
		return alt
	}
	if alt := rec.GetAltitudeScaled(); finite(alt) {
		return alt
	}
	return 0
}

// strideLength is metres per step from speed and per-foot cadence, or zero
// when either is missing.
func strideLength(rec *fit.RecordMsg) float64 {
	if rec.Cadence == math.MaxUint8 || rec.Cadence == 0 {
		return 0
	}
	speed := rec.GetEnhancedSpeedScaled()
	if !finite(speed) {
		speed = rec.GetSpeedScaled()
	}
	if !finite(speed) || speed <= 0 {
		return 0
	}
	return speed * 60 / (2 * float64(rec.Cadence))
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func validTimeOrZero(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}
