// Package config loads the JSON configuration file. Every field is
// optional; the Get* accessors supply defaults for anything left out.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/trainlog/internal/engine"
	"github.com/banshee-data/trainlog/internal/history"
	"github.com/banshee-data/trainlog/internal/plan"
	"github.com/banshee-data/trainlog/internal/units"
)

const (
	DefaultDatabasePath   = "trainlog.db"
	DefaultListenAddr     = ":8080"
	DefaultGoalDistance   = 21097.5
	defaultStorageTimeout = "5s"
	defaultRetryBackoff   = "500ms"
	maxFileSize           = 1 * 1024 * 1024
)

// Config is the root configuration.
type Config struct {
	DatabasePath *string `json:"database_path,omitempty"`
	ListenAddr   *string `json:"listen_addr,omitempty"`
	Units        *string `json:"units,omitempty"` // "metric" or "customary"
	UserID       *string `json:"user_id,omitempty"`

	// Engine persistence
	StorageTimeout *string `json:"storage_timeout,omitempty"` // duration string like "5s"
	SaveAttempts   *int    `json:"save_attempts,omitempty"`
	RetryBackoff   *string `json:"retry_backoff,omitempty"`

	Profile *ProfileConfig `json:"profile,omitempty"`

	// Plan generation
	GoalDistance *float64 `json:"goal_distance_m,omitempty"`
	GoalType     *string  `json:"goal_type,omitempty"`  // "completion" or "speed"
	Experience   *string  `json:"experience,omitempty"` // "beginner", "intermediate", "advanced"
	PlanSeed     *uint64  `json:"plan_seed,omitempty"`
}

// ProfileConfig is the athlete profile. Zone lists left out use the engine
// defaults.
type ProfileConfig struct {
	WeightKg       *float64  `json:"weight_kg,omitempty"`
	AgeYears       *float64  `json:"age_years,omitempty"`
	Female         *bool     `json:"female,omitempty"`
	MaxHeartRate   *float64  `json:"max_heart_rate,omitempty"`
	FTP            *float64  `json:"ftp,omitempty"`
	HeartRateZones []float64 `json:"heart_rate_zones,omitempty"`
	PowerZones     []float64 `json:"power_zones,omitempty"`
	CadenceZones   []float64 `json:"cadence_zones,omitempty"`
}

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be at most 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.Units != nil {
		if _, err := units.Parse(*c.Units); err != nil {
			return err
		}
	}
	for name, d := range map[string]*string{"storage_timeout": c.StorageTimeout, "retry_backoff": c.RetryBackoff} {
		if d == nil || *d == "" {
			continue
		}
		v, err := time.ParseDuration(*d)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *d, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, *d)
		}
	}
	if c.SaveAttempts != nil && *c.SaveAttempts < 1 {
		return fmt.Errorf("save_attempts must be at least 1, got %d", *c.SaveAttempts)
	}
	if c.GoalDistance != nil && *c.GoalDistance <= 0 {
		return fmt.Errorf("goal_distance_m must be positive, got %f", *c.GoalDistance)
	}
	if c.GoalType != nil {
		if _, err := plan.ParseGoalType(*c.GoalType); err != nil {
			return err
		}
	}
	if c.Experience != nil {
		if _, err := plan.ParseExperienceLevel(*c.Experience); err != nil {
			return err
		}
	}
	if c.Profile != nil {
		return c.Profile.validate()
	}
	return nil
}

func (p *ProfileConfig) validate() error {
	for name, v := range map[string]*float64{
		"weight_kg":      p.WeightKg,
		"age_years":      p.AgeYears,
		"max_heart_rate": p.MaxHeartRate,
		"ftp":            p.FTP,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("profile.%s must be non-negative, got %f", name, *v)
		}
	}
	for name, zones := range map[string][]float64{
		"heart_rate_zones": p.HeartRateZones,
		"power_zones":      p.PowerZones,
		"cadence_zones":    p.CadenceZones,
	} {
		for i := 1; i < len(zones); i++ {
			if zones[i] <= zones[i-1] {
				return fmt.Errorf("profile.%s must be strictly ascending", name)
			}
		}
	}
	return nil
}

// GetDatabasePath returns the database_path value or the default.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return DefaultDatabasePath
	}
	return *c.DatabasePath
}

// GetListenAddr returns the listen_addr value or the default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return DefaultListenAddr
	}
	return *c.ListenAddr
}

// GetUnits returns the configured unit system, metric by default.
func (c *Config) GetUnits() units.System {
	if c.Units == nil {
		return units.Metric
	}
	u, err := units.Parse(*c.Units)
	if err != nil {
		return units.Metric
	}
	return u
}

func (c *Config) GetUserID() string {
	if c.UserID == nil {
		return ""
	}
	return *c.UserID
}

// GetStorageTimeout parses and returns storage_timeout.
func (c *Config) GetStorageTimeout() time.Duration {
	return parseDuration(c.StorageTimeout, defaultStorageTimeout)
}

// GetRetryBackoff parses and returns retry_backoff.
func (c *Config) GetRetryBackoff() time.Duration {
	return parseDuration(c.RetryBackoff, defaultRetryBackoff)
}

func parseDuration(s *string, def string) time.Duration {
	fallback, _ := time.ParseDuration(def)
	if s == nil || *s == "" {
		return fallback
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fallback
	}
	return d
}

func (c *Config) GetSaveAttempts() int {
	if c.SaveAttempts == nil {
		return engine.DefaultSaveAttempts
	}
	return *c.SaveAttempts
}

// GetProfile converts the profile section into the engine's form.
func (c *Config) GetProfile() engine.Profile {
	p := c.Profile
	if p == nil {
		return engine.Profile{}
	}
	get := func(v *float64) float64 {
		if v == nil {
			return 0
		}
		return *v
	}
	return engine.Profile{
		WeightKg:       get(p.WeightKg),
		AgeYears:       get(p.AgeYears),
		Female:         p.Female != nil && *p.Female,
		MaxHeartRate:   get(p.MaxHeartRate),
		FTP:            get(p.FTP),
		HeartRateZones: p.HeartRateZones,
		PowerZones:     p.PowerZones,
		CadenceZones:   p.CadenceZones,
	}
}

// EngineConfig assembles the engine settings. The clock is left for the
// caller.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Profile:        c.GetProfile(),
		UserID:         c.GetUserID(),
		Units:          c.GetUnits(),
		StorageTimeout: c.GetStorageTimeout(),
		SaveAttempts:   c.GetSaveAttempts(),
		RetryBackoff:   c.GetRetryBackoff(),
	}
}

// GetGoal returns the planning goal, a half marathon at intermediate level
// for completion by default.
func (c *Config) GetGoal() history.Goal {
	g := history.Goal{Distance: DefaultGoalDistance, Type: plan.GoalCompletion, Experience: plan.Intermediate}
	if c.GoalDistance != nil {
		g.Distance = *c.GoalDistance
	}
	if c.GoalType != nil {
		if t, err := plan.ParseGoalType(*c.GoalType); err == nil {
			g.Type = t
		}
	}
	if c.Experience != nil {
		if e, err := plan.ParseExperienceLevel(*c.Experience); err == nil {
			g.Experience = e
		}
	}
	return g
}

// GetPlanSeed returns plan_seed, or the current time when unset.
func (c *Config) GetPlanSeed() uint64 {
	if c.PlanSeed == nil {
		return uint64(time.Now().UnixNano())
	}
	return *c.PlanSeed
}
