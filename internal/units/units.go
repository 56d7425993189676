// Package units provides the unit systems shared by attribute conversion,
// configuration and reporting.
package units

import (
	"fmt"
	"strings"
)

// System identifies the unit system a value is expressed in.
type System int

const (
	NotSet System = iota
	Metric
	Customary
)

// Conversion factors. Everything is recorded internally in metric.
const (
	MetersPerKilometer = 1000.0
	MetersPerMile      = 1609.344
	KilometersPerMile  = 1.609344
	FeetPerMeter       = 3.280839895
	PoundsPerKilogram  = 2.20462262185
	MPSToKPH           = 3.6
	MPSToMPH           = 2.2369362920544
)

// ValidSystems contains all valid unit system names
var ValidSystems = []string{"metric", "customary"}

func (s System) String() string {
	switch s {
	case Metric:
		return "metric"
	case Customary:
		return "customary"
	default:
		return "not_set"
	}
}

// IsValid checks if the given name is a valid unit system
func IsValid(name string) bool {
	for _, valid := range ValidSystems {
		if name == valid {
			return true
		}
	}
	return false
}

// GetValidSystemsString returns a comma-separated string of valid systems for error messages
func GetValidSystemsString() string {
	return strings.Join(ValidSystems, ", ")
}

// Parse converts a unit system name into a System.
func Parse(name string) (System, error) {
	switch name {
	case "metric":
		return Metric, nil
	case "customary":
		return Customary, nil
	default:
		return NotSet, fmt.Errorf("invalid unit system %q, must be one of: %s", name, GetValidSystemsString())
	}
}

func KilometersToMiles(km float64) float64 { return km / KilometersPerMile }
func MilesToKilometers(mi float64) float64 { return mi * KilometersPerMile }
func MetersToFeet(m float64) float64       { return m * FeetPerMeter }
func FeetToMeters(ft float64) float64      { return ft / FeetPerMeter }
func KilogramsToPounds(kg float64) float64 { return kg * PoundsPerKilogram }
func PoundsToKilograms(lb float64) float64 { return lb / PoundsPerKilogram }

// ConvertSpeed converts a speed from meters per second to km/h (metric) or
// mph (customary). Unknown systems return the input unchanged.
func ConvertSpeed(speedMPS float64, target System) float64 {
	switch target {
	case Metric:
		return speedMPS * MPSToKPH
	case Customary:
		return speedMPS * MPSToMPH
	default:
		return speedMPS
	}
}

// PaceFromSpeed converts meters per second into minutes per km (metric) or
// minutes per mile (customary). A non-positive speed has no pace.
func PaceFromSpeed(speedMPS float64, target System) (float64, bool) {
	if speedMPS <= 0 {
		return 0, false
	}
	unit := MetersPerKilometer
	if target == Customary {
		unit = MetersPerMile
	}
	return unit / speedMPS / 60.0, true
}
