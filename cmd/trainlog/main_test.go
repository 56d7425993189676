package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trainlog/internal/config"
	"github.com/banshee-data/trainlog/internal/db"
)

func TestFlagDefaults(t *testing.T) {
	assert.Empty(t, *configPath)
	assert.Empty(t, *dbPath)
	assert.Empty(t, *listen)
	assert.False(t, *discard)
}

func TestDatabasePathPrecedence(t *testing.T) {
	cfg := config.Empty()
	t.Setenv("TRAINLOG_DB", "")
	assert.Equal(t, "trainlog.db", databasePath(cfg))

	t.Setenv("TRAINLOG_DB", "env.db")
	assert.Equal(t, "env.db", databasePath(cfg))

	old := *dbPath
	t.Cleanup(func() { *dbPath = old })
	*dbPath = "flag.db"
	assert.Equal(t, "flag.db", databasePath(cfg))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("TRAINLOG_CONFIG", "")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.GetListenAddr())

	t.Setenv("TRAINLOG_CONFIG", filepath.Join("..", "..", "config", "trainlog.example.json"))
	cfg, err = loadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestProfileUsesNewestWeight(t *testing.T) {
	d, err := db.NewDB(filepath.Join(t.TempDir(), "trainlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	ctx := context.Background()
	cfg := config.Empty()
	assert.Equal(t, cfg.GetProfile().WeightKg, profile(ctx, cfg, d).WeightKg)

	require.NoError(t, d.CreateWeight(ctx, db.WeightMeasurement{Time: 100, WeightKg: 70}))
	require.NoError(t, d.CreateWeight(ctx, db.WeightMeasurement{Time: 200, WeightKg: 68.5}))
	assert.Equal(t, 68.5, profile(ctx, cfg, d).WeightKg)
}
