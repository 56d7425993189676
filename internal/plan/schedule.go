package plan

import "time"

// Schedule spreads workouts over the seven days starting at weekStart. Long
// runs go on the last day; the rest are spaced evenly over the first six.
func Schedule(workouts []*Workout, weekStart time.Time) {
	var others []*Workout
	for _, w := range workouts {
		if w.Type == LongRun {
			w.ScheduledTime = weekStart.AddDate(0, 0, 6).Unix()
			continue
		}
		others = append(others, w)
	}
	for i, w := range others {
		day := i * 6 / len(others)
		w.ScheduledTime = weekStart.AddDate(0, 0, day).Unix()
	}
}
