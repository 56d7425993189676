// Package sensor defines the closed set of sensor kinds and the reading
// shape delivered by acquisition collaborators.
package sensor

import (
	"fmt"
	"strings"
)

// Kind identifies the sensor that produced a reading.
type Kind int

const (
	Location Kind = iota
	Accelerometer
	HeartRate
	Cadence
	WheelSpeed
	Power
	FootPod
)

// Channel names. Each sensor table has one column per channel.
const (
	ChanLatitude           = "latitude"
	ChanLongitude          = "longitude"
	ChanAltitude           = "altitude"
	ChanHorizontalAccuracy = "horizontal_accuracy"
	ChanVerticalAccuracy   = "vertical_accuracy"
	ChanX                  = "x"
	ChanY                  = "y"
	ChanZ                  = "z"
	ChanBPM                = "bpm"
	ChanRPM                = "rpm"
	ChanRevolutions        = "revolutions"
	ChanWatts              = "watts"
	ChanStrideLength       = "stride_length"
	ChanRunDistance        = "run_distance"
)

// Kinds returns every sensor kind in declaration order.
func Kinds() []Kind {
	return []Kind{Location, Accelerometer, HeartRate, Cadence, WheelSpeed, Power, FootPod}
}

func (k Kind) String() string {
	switch k {
	case Location:
		return "location"
	case Accelerometer:
		return "accelerometer"
	case HeartRate:
		return "heart_rate"
	case Cadence:
		return "cadence"
	case WheelSpeed:
		return "wheel_speed"
	case Power:
		return "power"
	case FootPod:
		return "foot_pod"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Table is the name of the table holding readings of this kind.
func (k Kind) Table() string {
	switch k {
	case Location:
		return "gps"
	case Accelerometer:
		return "accelerometer"
	case HeartRate:
		return "hrm"
	case Cadence:
		return "cadence"
	case WheelSpeed:
		return "wheel_speed"
	case Power:
		return "power_meter"
	case FootPod:
		return "foot_pod"
	default:
		return ""
	}
}

// Channels lists the named values a reading of this kind carries.
func (k Kind) Channels() []string {
	switch k {
	case Location:
		return []string{ChanLatitude, ChanLongitude, ChanAltitude, ChanHorizontalAccuracy, ChanVerticalAccuracy}
	case Accelerometer:
		return []string{ChanX, ChanY, ChanZ}
	case HeartRate:
		return []string{ChanBPM}
	case Cadence:
		return []string{ChanRPM}
	case WheelSpeed:
		return []string{ChanRevolutions}
	case Power:
		return []string{ChanWatts}
	case FootPod:
		return []string{ChanStrideLength, ChanRunDistance}
	default:
		return nil
	}
}

func (k Kind) Valid() bool {
	return k >= Location && k <= FootPod
}

// ParseKind accepts the String form, case-insensitively.
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown sensor kind %q", s)
}

// Reading is a single timestamped sample. Time is unix milliseconds.
// Missing channels read as zero.
type Reading struct {
	Kind   Kind               `json:"kind"`
	Time   int64              `json:"time_ms"`
	Values map[string]float64 `json:"values"`
}

// Value returns the named channel and whether it was present.
func (r Reading) Value(channel string) (float64, bool) {
	v, ok := r.Values[channel]
	return v, ok
}

func NewLocation(timeMS int64, lat, lon, alt, hAcc, vAcc float64) Reading {
	return Reading{Kind: Location, Time: timeMS, Values: map[string]float64{
		ChanLatitude:           lat,
		ChanLongitude:          lon,
		ChanAltitude:           alt,
		ChanHorizontalAccuracy: hAcc,
		ChanVerticalAccuracy:   vAcc,
	}}
}

func NewAccelerometer(timeMS int64, x, y, z float64) Reading {
	return Reading{Kind: Accelerometer, Time: timeMS, Values: map[string]float64{ChanX: x, ChanY: y, ChanZ: z}}
}

func NewHeartRate(timeMS int64, bpm float64) Reading {
	return Reading{Kind: HeartRate, Time: timeMS, Values: map[string]float64{ChanBPM: bpm}}
}

func NewCadence(timeMS int64, rpm float64) Reading {
	return Reading{Kind: Cadence, Time: timeMS, Values: map[string]float64{ChanRPM: rpm}}
}

// NewWheelSpeed carries a cumulative wheel revolution count.
func NewWheelSpeed(timeMS int64, revolutions float64) Reading {
	return Reading{Kind: WheelSpeed, Time: timeMS, Values: map[string]float64{ChanRevolutions: revolutions}}
}

func NewPower(timeMS int64, watts float64) Reading {
	return Reading{Kind: Power, Time: timeMS, Values: map[string]float64{ChanWatts: watts}}
}

// NewFootPod carries stride length in metres and cumulative run distance in metres.
func NewFootPod(timeMS int64, strideLength, runDistance float64) Reading {
	return Reading{Kind: FootPod, Time: timeMS, Values: map[string]float64{
		ChanStrideLength: strideLength,
		ChanRunDistance:  runDistance,
	}}
}
