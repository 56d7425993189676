// Package plan generates a week of structured running workouts from an
// athlete's recent training and pace profile.
package plan

import (
	"fmt"
	"strings"

	"github.com/banshee-data/trainlog/internal/activity"
)

// WorkoutType classifies a generated workout.
type WorkoutType int

const (
	EasyRun WorkoutType = iota
	TempoRun
	SpeedRun
	LongRun
	FreeRun
)

func (t WorkoutType) String() string {
	switch t {
	case EasyRun:
		return "Easy Run"
	case TempoRun:
		return "Tempo Run"
	case SpeedRun:
		return "Speed Run"
	case LongRun:
		return "Long Run"
	case FreeRun:
		return "Free Run"
	default:
		return fmt.Sprintf("WorkoutType(%d)", int(t))
	}
}

// IsHard reports whether the workout's main set counts as hard distance.
func (t WorkoutType) IsHard() bool {
	switch t {
	case TempoRun, SpeedRun:
		return true
	case EasyRun, LongRun, FreeRun:
		return false
	default:
		return false
	}
}

// ParseWorkoutType accepts the String form.
func ParseWorkoutType(s string) (WorkoutType, error) {
	for _, t := range []WorkoutType{EasyRun, TempoRun, SpeedRun, LongRun, FreeRun} {
		if strings.EqualFold(t.String(), strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown workout type %q", s)
}

func (t WorkoutType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *WorkoutType) UnmarshalText(b []byte) error {
	parsed, err := ParseWorkoutType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Interval is one block of a workout. Distances are metres, paces metres per
// minute, Duration seconds. A block is either distance- or duration-based.
type Interval struct {
	Repeat           int     `json:"repeat"`
	Duration         float64 `json:"duration_s,omitempty"`
	PowerLow         float64 `json:"power_low,omitempty"`
	PowerHigh        float64 `json:"power_high,omitempty"`
	Distance         float64 `json:"distance_m,omitempty"`
	Pace             float64 `json:"pace_m_per_min,omitempty"`
	RecoveryDistance float64 `json:"recovery_distance_m,omitempty"`
	RecoveryPace     float64 `json:"recovery_pace_m_per_min,omitempty"`
}

// Workout is a generated plan entry.
type Workout struct {
	ID              string      `json:"id"`
	Type            WorkoutType `json:"type"`
	Sport           string      `json:"sport"`
	ScheduledTime   int64       `json:"scheduled_time,omitempty"`
	EstimatedStress float64     `json:"estimated_stress"`
	Intervals       []Interval  `json:"intervals"`
}

// NewWorkout creates an empty workout of the given type.
func NewWorkout(t WorkoutType, sport string) *Workout {
	if sport == "" {
		sport = activity.Running
	}
	return &Workout{Type: t, Sport: sport}
}

// AddWarmup appends a fixed-duration block run at pace.
func (w *Workout) AddWarmup(seconds, pace float64) { w.addTimed(seconds, pace) }

// AddCooldown appends a fixed-duration block run at pace.
func (w *Workout) AddCooldown(seconds, pace float64) { w.addTimed(seconds, pace) }

func (w *Workout) addTimed(seconds, pace float64) {
	w.Intervals = append(w.Intervals, Interval{Repeat: 1, Duration: seconds, Pace: pace})
}

// AddInterval appends repeat efforts of distance at pace, each but the last
// followed by a recovery of recoveryDistance at recoveryPace.
func (w *Workout) AddInterval(repeat int, distance, pace, recoveryDistance, recoveryPace float64) {
	w.Intervals = append(w.Intervals, Interval{
		Repeat:           repeat,
		Distance:         distance,
		Pace:             pace,
		RecoveryDistance: recoveryDistance,
		RecoveryPace:     recoveryPace,
	})
}

// blockSeconds is the time one repetition of a block takes.
func blockSeconds(duration, distance, pace float64) float64 {
	if duration > 0 {
		return duration
	}
	if pace <= 0 {
		return 0
	}
	return distance / pace * 60
}

// Duration is the expected total time in seconds. Blocks without a pace
// contribute nothing.
func (w *Workout) Duration() float64 {
	var total float64
	for _, iv := range w.Intervals {
		reps := float64(max(iv.Repeat, 1))
		total += reps * blockSeconds(iv.Duration, iv.Distance, iv.Pace)
		total += (reps - 1) * blockSeconds(0, iv.RecoveryDistance, iv.RecoveryPace)
	}
	return total
}

// Distance is the planned distance in metres including recoveries and
// duration-based blocks run at their pace.
func (w *Workout) Distance() float64 {
	var total float64
	for _, iv := range w.Intervals {
		reps := float64(max(iv.Repeat, 1))
		if iv.Duration > 0 {
			total += reps * iv.Duration / 60 * iv.Pace
		} else {
			total += reps * iv.Distance
		}
		total += (reps - 1) * iv.RecoveryDistance
	}
	return total
}

// CalculateEstimatedTrainingStress scores the workout against the athlete's
// functional threshold pace (metres per minute): for every effort and
// recovery segment, hours at intensity times intensity squared times 100,
// where intensity is pace over threshold pace.
func (w *Workout) CalculateEstimatedTrainingStress(thresholdPace float64) float64 {
	w.EstimatedStress = 0
	if thresholdPace <= 0 {
		return 0
	}
	segment := func(seconds, pace float64) float64 {
		if seconds <= 0 || pace <= 0 {
			return 0
		}
		intensity := pace / thresholdPace
		return seconds / 3600 * intensity * intensity * 100
	}
	for _, iv := range w.Intervals {
		reps := float64(max(iv.Repeat, 1))
		w.EstimatedStress += reps * segment(blockSeconds(iv.Duration, iv.Distance, iv.Pace), iv.Pace)
		w.EstimatedStress += (reps - 1) * segment(blockSeconds(0, iv.RecoveryDistance, iv.RecoveryPace), iv.RecoveryPace)
	}
	return w.EstimatedStress
}
