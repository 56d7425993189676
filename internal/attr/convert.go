package attr

import (
	"strings"

	"github.com/banshee-data/trainlog/internal/units"
)

// Quantity is the physical dimension of an attribute, used to pick a
// conversion factor.
type Quantity int

const (
	QuantityNone Quantity = iota
	QuantityDistance
	QuantitySpeed
	QuantityPace
	QuantityAltitude
	QuantityVerticalSpeed
	QuantityWeight
)

var quantities = map[string]Quantity{
	Distance:        QuantityDistance,
	MovingDistance:  QuantityDistance,
	RunDistance:     QuantityDistance,
	AvgSpeed:        QuantitySpeed,
	MovingSpeed:     QuantitySpeed,
	CurrentSpeed:    QuantitySpeed,
	FastestSpeed:    QuantitySpeed,
	WheelSpeed:      QuantitySpeed,
	AvgPace:         QuantityPace,
	MovingPace:      QuantityPace,
	CurrentPace:     QuantityPace,
	FastestPace:     QuantityPace,
	Altitude:        QuantityAltitude,
	MinAltitude:     QuantityAltitude,
	MaxAltitude:     QuantityAltitude,
	CurrentClimb:    QuantityAltitude,
	BiggestClimb:    QuantityAltitude,
	TotalAscent:     QuantityAltitude,
	RunStrideLength: QuantityAltitude,
	VerticalSpeed:   QuantityVerticalSpeed,
	"Weight":        QuantityWeight,
}

// QuantityOf reports the dimension of the named attribute.
func QuantityOf(name string) Quantity {
	if q, ok := quantities[name]; ok {
		return q
	}
	if strings.HasSuffix(name, " Weight") {
		return QuantityWeight
	}
	return QuantityNone
}

// Convert expresses a in the target unit system. Metric values are km, km/h,
// min/km, m, m/h and kg; customary values are mi, mph, min/mi, ft, ft/h and
// lb. Unset values, dimensionless attributes and values already in the target
// system are returned unchanged, so converting twice is a no-op. A value with
// no unit system is not scaled since its source system is unknown.
func Convert(name string, a Attribute, target units.System) Attribute {
	if !a.IsSet() || target == units.NotSet || a.Units == units.NotSet || a.Units == target {
		return a
	}
	q := QuantityOf(name)
	if q == QuantityNone {
		return a
	}
	v, ok := a.Double()
	if !ok {
		return a
	}

	toCustomary := target == units.Customary
	switch q {
	case QuantityDistance, QuantitySpeed:
		if toCustomary {
			v = units.KilometersToMiles(v)
		} else {
			v = units.MilesToKilometers(v)
		}
	case QuantityPace:
		if toCustomary {
			v *= units.KilometersPerMile
		} else {
			v /= units.KilometersPerMile
		}
	case QuantityAltitude, QuantityVerticalSpeed:
		if toCustomary {
			v = units.MetersToFeet(v)
		} else {
			v = units.FeetToMeters(v)
		}
	case QuantityWeight:
		if toCustomary {
			v = units.KilogramsToPounds(v)
		} else {
			v = units.PoundsToKilograms(v)
		}
	case QuantityNone:
		return a
	}

	out := Double(v, a.Measure, target)
	return out.WithWindow(a.StartTime, a.EndTime)
}

// ConvertAll converts every attribute in m.
func ConvertAll(m map[string]Attribute, target units.System) map[string]Attribute {
	out := make(map[string]Attribute, len(m))
	for name, a := range m {
		out[name] = Convert(name, a, target)
	}
	return out
}
