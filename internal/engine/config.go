package engine

import (
	"time"

	"github.com/banshee-data/trainlog/internal/timeutil"
	"github.com/banshee-data/trainlog/internal/units"
)

// Profile describes the athlete. Zero values disable the attributes that
// depend on them.
type Profile struct {
	WeightKg     float64 `json:"weight_kg"`
	AgeYears     float64 `json:"age_years"`
	Female       bool    `json:"female"`
	MaxHeartRate float64 `json:"max_heart_rate"`
	FTP          float64 `json:"ftp"`

	// Zone boundaries, ascending. Heart rate bounds are fractions of
	// MaxHeartRate, power bounds fractions of FTP, cadence bounds rpm.
	// A value below the first bound is zone 1.
	HeartRateZones []float64 `json:"heart_rate_zones,omitempty"`
	PowerZones     []float64 `json:"power_zones,omitempty"`
	CadenceZones   []float64 `json:"cadence_zones,omitempty"`
}

var (
	DefaultHeartRateZones = []float64{0.60, 0.70, 0.80, 0.90}
	DefaultPowerZones     = []float64{0.55, 0.75, 0.90, 1.05, 1.20}
	DefaultCadenceZones   = []float64{60, 75, 90, 105}
)

// Config configures an Engine.
type Config struct {
	Clock   timeutil.Clock
	Profile Profile
	UserID  string

	// Units is the system Snapshot reports in when none is requested.
	Units units.System

	// StorageTimeout bounds each store call.
	StorageTimeout time.Duration

	// SaveAttempts and RetryBackoff control summary persistence on Stop.
	SaveAttempts int
	RetryBackoff time.Duration
}

const (
	DefaultStorageTimeout = 5 * time.Second
	DefaultSaveAttempts   = 3
	DefaultRetryBackoff   = 500 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = timeutil.RealClock{}
	}
	if c.Units == units.NotSet {
		c.Units = units.Metric
	}
	if c.StorageTimeout <= 0 {
		c.StorageTimeout = DefaultStorageTimeout
	}
	if c.SaveAttempts <= 0 {
		c.SaveAttempts = DefaultSaveAttempts
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	} else if c.RetryBackoff == 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.Profile.HeartRateZones == nil {
		c.Profile.HeartRateZones = DefaultHeartRateZones
	}
	if c.Profile.PowerZones == nil {
		c.Profile.PowerZones = DefaultPowerZones
	}
	if c.Profile.CadenceZones == nil {
		c.Profile.CadenceZones = DefaultCadenceZones
	}
	return c
}

// zoneOf returns the 1-based zone of v given ascending bounds.
func zoneOf(v float64, bounds []float64) int64 {
	zone := int64(1)
	for _, b := range bounds {
		if v >= b {
			zone++
		}
	}
	return zone
}
