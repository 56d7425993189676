// Package attr holds the typed activity attribute value, the well-known
// attribute names, an in-memory attribute store and unit conversion.
package attr

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/banshee-data/trainlog/internal/units"
)

// ValueType is the payload variant carried by an Attribute.
type ValueType int

const (
	ValueNotSet ValueType = iota
	ValueDouble
	ValueInteger
	ValueTime
)

func (v ValueType) String() string {
	switch v {
	case ValueDouble:
		return "double"
	case ValueInteger:
		return "integer"
	case ValueTime:
		return "time"
	default:
		return "not_set"
	}
}

// MeasureType describes how a value was aggregated.
type MeasureType int

const (
	MeasureNotSet MeasureType = iota
	MeasureInstantaneous
	MeasureAverage
	MeasureTotal
	MeasureMin
	MeasureMax
)

func (m MeasureType) String() string {
	switch m {
	case MeasureInstantaneous:
		return "instantaneous"
	case MeasureAverage:
		return "average"
	case MeasureTotal:
		return "total"
	case MeasureMin:
		return "min"
	case MeasureMax:
		return "max"
	default:
		return "not_set"
	}
}

// Attribute is a named derived measurement. The payload fields are private so
// that exactly one variant, matching the value type, can ever be populated.
// The zero value is "not set".
type Attribute struct {
	valueType ValueType
	d         float64
	i         int64
	t         int64

	Measure MeasureType
	Units   units.System

	// StartTime and EndTime bound the window (unix ms) that produced the
	// value, e.g. for best-effort splits. Zero when not applicable.
	StartTime int64
	EndTime   int64
}

// NotSet returns an attribute carrying no value.
func NotSet() Attribute { return Attribute{} }

// Double builds a floating point attribute.
func Double(v float64, m MeasureType, u units.System) Attribute {
	return Attribute{valueType: ValueDouble, d: v, Measure: m, Units: u}
}

// Integer builds an integer attribute.
func Integer(v int64, m MeasureType, u units.System) Attribute {
	return Attribute{valueType: ValueInteger, i: v, Measure: m, Units: u}
}

// Time builds a time attribute. The value is in seconds: a unix time for
// timestamps, a span for durations.
func Time(seconds int64, m MeasureType, u units.System) Attribute {
	return Attribute{valueType: ValueTime, t: seconds, Measure: m, Units: u}
}

// FromStored rebuilds an attribute from its persisted numeric form.
func FromStored(vt ValueType, value float64, m MeasureType, u units.System) (Attribute, error) {
	switch vt {
	case ValueDouble:
		return Double(value, m, u), nil
	case ValueInteger:
		return Integer(int64(math.Round(value)), m, u), nil
	case ValueTime:
		return Time(int64(math.Round(value)), m, u), nil
	case ValueNotSet:
		return NotSet(), nil
	default:
		return NotSet(), fmt.Errorf("unknown attribute value type %d", vt)
	}
}

// WithWindow returns a copy of a bounded to [start, end] (unix ms).
func (a Attribute) WithWindow(start, end int64) Attribute {
	a.StartTime = start
	a.EndTime = end
	return a
}

func (a Attribute) Type() ValueType { return a.valueType }
func (a Attribute) IsSet() bool     { return a.valueType != ValueNotSet }

// Double returns the payload if the attribute is a double.
func (a Attribute) Double() (float64, bool) {
	if a.valueType != ValueDouble {
		return 0, false
	}
	return a.d, true
}

// Integer returns the payload if the attribute is an integer.
func (a Attribute) Integer() (int64, bool) {
	if a.valueType != ValueInteger {
		return 0, false
	}
	return a.i, true
}

// Time returns the payload in seconds if the attribute is a time.
func (a Attribute) Time() (int64, bool) {
	if a.valueType != ValueTime {
		return 0, false
	}
	return a.t, true
}

// Float returns any set payload widened to float64.
func (a Attribute) Float() (float64, bool) {
	switch a.valueType {
	case ValueDouble:
		return a.d, true
	case ValueInteger:
		return float64(a.i), true
	case ValueTime:
		return float64(a.t), true
	case ValueNotSet:
		return 0, false
	default:
		return 0, false
	}
}

func (a Attribute) String() string {
	switch a.valueType {
	case ValueDouble:
		return fmt.Sprintf("%g (%s, %s)", a.d, a.Measure, a.Units)
	case ValueInteger:
		return fmt.Sprintf("%d (%s, %s)", a.i, a.Measure, a.Units)
	case ValueTime:
		return fmt.Sprintf("%ds (%s, %s)", a.t, a.Measure, a.Units)
	default:
		return "not set"
	}
}

type attributeJSON struct {
	Type      string   `json:"type"`
	Value     *float64 `json:"value,omitempty"`
	Measure   string   `json:"measure,omitempty"`
	Units     string   `json:"units,omitempty"`
	StartTime int64    `json:"start_time_ms,omitempty"`
	EndTime   int64    `json:"end_time_ms,omitempty"`
}

// MarshalJSON encodes unset attributes as {"type":"not_set"} so that callers
// never read an absent value as zero.
func (a Attribute) MarshalJSON() ([]byte, error) {
	out := attributeJSON{Type: a.valueType.String()}
	if v, ok := a.Float(); ok {
		out.Value = &v
		out.Measure = a.Measure.String()
		out.Units = a.Units.String()
		out.StartTime = a.StartTime
		out.EndTime = a.EndTime
	}
	return json.Marshal(out)
}
