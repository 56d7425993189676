package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaCreatesEveryTable(t *testing.T) {
	db := newTestDB(t)
	for _, table := range allTables {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
		_, ok := expectedColumns[table]
		assert.True(t, ok, "no expected columns for %s", table)
	}

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)
	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(path)
	require.NoError(t, err)
	createTestActivity(t, db, "a", 1000, 1000)
	require.NoError(t, db.Close())

	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.GetActivity(context.Background(), "a")
	assert.NoError(t, err)
}

func TestEnsureSchemaDropsObsoleteTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	legacy, err := OpenDB(path)
	require.NoError(t, err)
	// Shapes from an older release: segments without power, no workout_id.
	_, err = legacy.Exec(`
		CREATE TABLE interval_workout (id INTEGER PRIMARY KEY, name TEXT, sport TEXT);
		CREATE TABLE interval_workout_segment (id INTEGER PRIMARY KEY, workout_id TEXT, position INTEGER,
			sets INTEGER, reps INTEGER, duration DOUBLE, distance DOUBLE, pace DOUBLE, units INTEGER);
		INSERT INTO interval_workout (name, sport) VALUES ('old', 'Running');
		CREATE TABLE weight (id INTEGER PRIMARY KEY, time INTEGER, value DOUBLE);
		INSERT INTO weight (time, value) VALUES (1, 70);
	`)
	require.NoError(t, err)

	obsolete, err := legacy.ObsoleteTables(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"interval_workout", "interval_workout_segment"}, obsolete)
	require.NoError(t, legacy.Close())

	db, err := NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	obsolete, err = db.ObsoleteTables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, obsolete)

	templates, err := db.ListIntervalWorkouts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, templates)

	// Tables with a current shape keep their rows.
	w, err := db.NewestWeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 70.0, w.WeightKg)
}
