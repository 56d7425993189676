package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/banshee-data/trainlog/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// allTables lists every data table, children before parents.
var allTables = []string{
	"lap", "gps", "accelerometer", "hrm", "cadence", "wheel_speed", "power_meter", "foot_pod",
	"tag", "activity_summary", "activity_hash", "bike_activity", "activity",
	"bike", "shoe",
	"interval_workout_segment", "interval_workout",
	"workout_interval", "workout",
	"pace_plan", "weight",
}

// expectedColumns is the column set each table must carry. A table that
// exists without one of these is obsolete and gets dropped and recreated.
var expectedColumns = map[string][]string{
	"activity":                 {"activity_id", "user_id", "type", "name", "start_time", "end_time"},
	"lap":                      {"activity_id", "start_time"},
	"gps":                      {"activity_id", "time", "latitude", "longitude", "altitude", "horizontal_accuracy", "vertical_accuracy"},
	"accelerometer":            {"activity_id", "time", "x", "y", "z"},
	"hrm":                      {"activity_id", "time", "bpm"},
	"cadence":                  {"activity_id", "time", "rpm"},
	"wheel_speed":              {"activity_id", "time", "revolutions"},
	"power_meter":              {"activity_id", "time", "watts"},
	"foot_pod":                 {"activity_id", "time", "stride_length", "run_distance"},
	"tag":                      {"activity_id", "tag"},
	"activity_summary":         {"activity_id", "attribute", "value", "value_type", "measure_type", "units", "start_time", "end_time"},
	"activity_hash":            {"activity_id", "hash"},
	"bike":                     {"bike_id", "name", "weight_kg", "wheel_circumference_mm", "time_added", "time_retired"},
	"shoe":                     {"shoe_id", "name", "description", "time_added", "time_retired"},
	"bike_activity":            {"bike_id", "activity_id"},
	"interval_workout":         {"workout_id", "name", "sport"},
	"interval_workout_segment": {"workout_id", "position", "sets", "reps", "duration", "distance", "pace", "power", "units"},
	"workout":                  {"workout_id", "type", "sport", "estimated_stress", "scheduled_time"},
	"workout_interval":         {"workout_id", "position", "repeat", "duration", "power_low", "power_high", "distance", "pace", "recovery_distance", "recovery_pace"},
	"pace_plan":                {"plan_id", "name", "target_pace", "target_distance", "splits", "route", "units"},
	"weight":                   {"time", "value"},
}

// EnsureSchema drops obsolete tables and applies the embedded migrations.
// Dropping a table loses its rows; callers that care must export first.
func (db *DB) EnsureSchema(ctx context.Context) error {
	dropped, err := db.dropObsoleteTables(ctx)
	if err != nil {
		return err
	}

	m, err := db.newMigrate(migrationsFS)
	if err != nil {
		return err
	}
	if len(dropped) > 0 {
		monitoring.Logf("[db] dropped obsolete tables %v; recreating", dropped)
		// Every migration is idempotent, so replaying from scratch only
		// recreates what is missing.
		if err := m.Force(database.NilVersion); err != nil {
			return fmt.Errorf("failed to reset migration version: %w", err)
		}
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

func (db *DB) tableColumns(ctx context.Context, table string) ([]string, error) {
	// table_info cannot take a bound parameter; table comes from allTables.
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// ObsoleteTables lists existing tables missing an expected column.
func (db *DB) ObsoleteTables(ctx context.Context) ([]string, error) {
	var obsolete []string
	for _, table := range allTables {
		cols, err := db.tableColumns(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
		}
		if len(cols) == 0 {
			continue
		}
		for _, want := range expectedColumns[table] {
			if !slices.Contains(cols, want) {
				obsolete = append(obsolete, table)
				break
			}
		}
	}
	return obsolete, nil
}

func (db *DB) dropObsoleteTables(ctx context.Context) ([]string, error) {
	obsolete, err := db.ObsoleteTables(ctx)
	if err != nil || len(obsolete) == 0 {
		return nil, err
	}
	err = db.inTx(ctx, "drop obsolete tables", func(tx *sql.Tx) error {
		for _, table := range obsolete {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %q", table)); err != nil {
				return failed(table, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obsolete, nil
}

// MigrateVersion returns the applied schema version and dirty flag.
// A database with no migrations applied reports 0.
func (db *DB) MigrateVersion() (uint, bool, error) {
	m, err := db.newMigrate(migrationsFS)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// LatestMigrationVersion scans the embedded migrations.
func LatestMigrationVersion() (uint, error) {
	entries, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	if err != nil {
		return 0, fmt.Errorf("failed to read migrations: %w", err)
	}
	var latest uint
	for _, entry := range entries {
		var version uint
		// Migration files follow format: 000001_name.up.sql
		if _, err := fmt.Sscanf(entry, "migrations/%d_", &version); err == nil && version > latest {
			latest = version
		}
	}
	if latest == 0 {
		return 0, fmt.Errorf("no migration files found")
	}
	return latest, nil
}

// newMigrate builds a migrate instance over this connection. It is never
// closed because that would close the shared *sql.DB.
func (db *DB) newMigrate(fsys fs.FS) (*migrate.Migrate, error) {
	src, err := iofs.New(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

// migrateLogger implements migrate.Logger interface
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
