// Package activity holds activity-type tags and the helpers that classify
// them.
package activity

import "slices"

// Activity type tags, stored verbatim in the activity table.
const (
	Running        = "Running"
	Walking        = "Walking"
	Hiking         = "Hiking"
	Cycling        = "Cycling"
	MountainBiking = "Mountain Biking"
	StationaryBike = "Stationary Bike"
	Treadmill      = "Treadmill"
	OpenWaterSwim  = "Open Water Swimming"
	PoolSwim       = "Pool Swimming"
	Duathlon       = "Duathlon"
	Triathlon      = "Triathlon"
	Benchpress     = "Benchpress"
	ChinUp         = "Chin-Up"
	Squat          = "Squat"
	PullUp         = "Pull-Up"
	PushUp         = "Push-Up"
)

var (
	cycling = []string{Cycling, MountainBiking, StationaryBike}
	foot    = []string{Running, Walking, Hiking, Treadmill}
	lifting = []string{Benchpress, ChinUp, Squat, PullUp, PushUp}
)

// Types lists every known activity type.
func Types() []string {
	return []string{
		Running, Walking, Hiking, Cycling, MountainBiking, StationaryBike, Treadmill,
		OpenWaterSwim, PoolSwim, Duathlon, Triathlon,
		Benchpress, ChinUp, Squat, PullUp, PushUp,
	}
}

func IsKnown(t string) bool   { return slices.Contains(Types(), t) }
func IsCycling(t string) bool { return slices.Contains(cycling, t) }
func IsFoot(t string) bool    { return slices.Contains(foot, t) }
func IsLifting(t string) bool { return slices.Contains(lifting, t) }
func IsSwim(t string) bool    { return t == OpenWaterSwim || t == PoolSwim }

// IsMoving reports whether distance, pace and location attributes apply.
// Stationary and lifting types still accept location readings; they just
// derive nothing from them.
func IsMoving(t string) bool {
	if t == StationaryBike || t == Treadmill || t == PoolSwim {
		return false
	}
	return !IsLifting(t)
}
