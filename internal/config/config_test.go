package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/engine"
	"github.com/banshee-data/trainlog/internal/plan"
	"github.com/banshee-data/trainlog/internal/units"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := Empty()

	assert.Equal(t, DefaultDatabasePath, cfg.GetDatabasePath())
	assert.Equal(t, DefaultListenAddr, cfg.GetListenAddr())
	assert.Equal(t, units.Metric, cfg.GetUnits())
	assert.Empty(t, cfg.GetUserID())
	assert.Equal(t, 5*time.Second, cfg.GetStorageTimeout())
	assert.Equal(t, 500*time.Millisecond, cfg.GetRetryBackoff())
	assert.Equal(t, engine.DefaultSaveAttempts, cfg.GetSaveAttempts())
	assert.Equal(t, engine.Profile{}, cfg.GetProfile())

	goal := cfg.GetGoal()
	assert.Equal(t, DefaultGoalDistance, goal.Distance)
	assert.Equal(t, plan.GoalCompletion, goal.Type)
	assert.Equal(t, plan.Intermediate, goal.Experience)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "trainlog.json", `{
  "database_path": "/var/lib/trainlog/log.db",
  "units": "customary",
  "user_id": "sam",
  "storage_timeout": "2s",
  "save_attempts": 5,
  "retry_backoff": "0s",
  "profile": {"weight_kg": 62.5, "age_years": 41, "female": true, "max_heart_rate": 181, "power_zones": [0.5, 0.8]},
  "goal_distance_m": 42195,
  "goal_type": "speed",
  "experience": "advanced",
  "plan_seed": 7
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/trainlog/log.db", cfg.GetDatabasePath())
	assert.Equal(t, units.Customary, cfg.GetUnits())
	assert.Equal(t, uint64(7), cfg.GetPlanSeed())

	ec := cfg.EngineConfig()
	assert.Equal(t, "sam", ec.UserID)
	assert.Equal(t, units.Customary, ec.Units)
	assert.Equal(t, 2*time.Second, ec.StorageTimeout)
	assert.Equal(t, 5, ec.SaveAttempts)
	assert.Zero(t, ec.RetryBackoff)
	assert.Equal(t, engine.Profile{
		WeightKg:     62.5,
		AgeYears:     41,
		Female:       true,
		MaxHeartRate: 181,
		PowerZones:   []float64{0.5, 0.8},
	}, ec.Profile)

	goal := cfg.GetGoal()
	assert.Equal(t, 42195.0, goal.Distance)
	assert.Equal(t, plan.GoalSpeed, goal.Type)
	assert.Equal(t, plan.Advanced, goal.Experience)
}

func TestLoadExampleFile(t *testing.T) {
	cfg, err := Load("../../config/trainlog.example.json")
	require.NoError(t, err)
	assert.Equal(t, 70.0, cfg.GetProfile().WeightKg)
	assert.Equal(t, ":8080", cfg.GetListenAddr())
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name, file, body, want string
	}{
		{"extension", "config.yaml", `{}`, ".json extension"},
		{"syntax", "bad.json", `{"units":`, "parse config JSON"},
		{"units", "units.json", `{"units": "imperial"}`, "invalid unit system"},
		{"duration", "timeout.json", `{"storage_timeout": "soon"}`, "storage_timeout"},
		{"negative duration", "backoff.json", `{"retry_backoff": "-1s"}`, "retry_backoff"},
		{"attempts", "attempts.json", `{"save_attempts": 0}`, "save_attempts"},
		{"goal distance", "goal.json", `{"goal_distance_m": -5}`, "goal_distance_m"},
		{"goal type", "type.json", `{"goal_type": "fun"}`, "goal type"},
		{"experience", "exp.json", `{"experience": "elite"}`, "experience level"},
		{"weight", "weight.json", `{"profile": {"weight_kg": -1}}`, "weight_kg"},
		{"zones", "zones.json", `{"profile": {"cadence_zones": [90, 80]}}`, "cadence_zones"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRejectsLargeFile(t *testing.T) {
	body := `{"user_id": "` + strings.Repeat("x", maxFileSize) + `"}`
	_, err := Load(writeConfig(t, "large.json", body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stat config file")
}

func TestPlanSeedDefaultsToClock(t *testing.T) {
	before := uint64(time.Now().UnixNano())
	assert.GreaterOrEqual(t, Empty().GetPlanSeed(), before)
}
