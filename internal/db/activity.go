package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/banshee-data/trainlog/internal/sensor"
)

// Activity is one recorded session. Times are unix seconds; EndTime is nil
// while the activity is in progress.
type Activity struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	StartTime int64  `json:"start_time"`
	EndTime   *int64 `json:"end_time,omitempty"`
}

// InProgress reports whether the activity has no end time.
func (a *Activity) InProgress() bool { return a.EndTime == nil }

// perActivityTables holds every table keyed by activity_id except activity.
var perActivityTables = func() []string {
	tables := []string{"lap"}
	for _, k := range sensor.Kinds() {
		tables = append(tables, k.Table())
	}
	return append(tables, "tag", "activity_summary", "activity_hash", "bike_activity")
}()

// CreateActivity inserts the start record of a new activity.
func (db *DB) CreateActivity(ctx context.Context, a *Activity) error {
	if a.ID == "" {
		return fmt.Errorf("failed to create activity: empty id")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO activity (activity_id, user_id, type, name, start_time, end_time) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Type, a.Name, a.StartTime, a.EndTime,
	)
	if err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// StopActivity records the end time.
func (db *DB) StopActivity(ctx context.Context, id string, endTime int64) error {
	return db.updateRow(ctx, "stop activity", `UPDATE activity SET end_time = ? WHERE activity_id = ?`, endTime, id)
}

func (db *DB) SetActivityName(ctx context.Context, id, name string) error {
	return db.updateRow(ctx, "set activity name", `UPDATE activity SET name = ? WHERE activity_id = ?`, name, id)
}

// FixEndTime sets a missing end time from the last reading of any kind.
// It returns the end time written, or the existing one if already set.
func (db *DB) FixEndTime(ctx context.Context, id string) (int64, error) {
	a, err := db.GetActivity(ctx, id)
	if err != nil {
		return 0, err
	}
	if a.EndTime != nil {
		return *a.EndTime, nil
	}
	last, ok, err := db.LastReadingTime(ctx, id)
	if err != nil {
		return 0, err
	}
	end := a.StartTime
	if ok {
		end = last / 1000
	}
	if err := db.StopActivity(ctx, id, end); err != nil {
		return 0, err
	}
	return end, nil
}

const activityColumns = `activity_id, user_id, type, name, start_time, end_time`

func scanActivity(row interface{ Scan(...any) error }) (*Activity, error) {
	var (
		a   Activity
		end sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.Name, &a.StartTime, &end); err != nil {
		return nil, err
	}
	if end.Valid {
		a.EndTime = &end.Int64
	}
	return &a, nil
}

// GetActivity retrieves an activity by id.
func (db *DB) GetActivity(ctx context.Context, id string) (*Activity, error) {
	row := db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activity WHERE activity_id = ?`, id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return a, nil
}

// ListActivities returns every activity ordered by start time, oldest first.
func (db *DB) ListActivities(ctx context.Context) ([]Activity, error) {
	return db.queryActivities(ctx, `SELECT `+activityColumns+` FROM activity ORDER BY start_time, activity_id`)
}

// ListActivitiesBetween returns activities starting in [from, to).
func (db *DB) ListActivitiesBetween(ctx context.Context, from, to int64) ([]Activity, error) {
	return db.queryActivities(ctx,
		`SELECT `+activityColumns+` FROM activity WHERE start_time >= ? AND start_time < ? ORDER BY start_time, activity_id`,
		from, to)
}

func (db *DB) queryActivities(ctx context.Context, query string, args ...any) ([]Activity, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var out []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// OrphanedActivity returns the most recent activity that has a start time
// but no end time, or ErrNotFound.
func (db *DB) OrphanedActivity(ctx context.Context) (*Activity, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+activityColumns+` FROM activity WHERE end_time IS NULL ORDER BY start_time DESC LIMIT 1`)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("orphaned activity: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find orphaned activity: %w", err)
	}
	return a, nil
}

func (db *DB) ActivityCount(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return n, nil
}

func activityExists(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM activity WHERE activity_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("activity %s: %w", id, ErrNotFound)
	}
	return err
}

// DeleteActivity removes an activity and every child row in one transaction.
func (db *DB) DeleteActivity(ctx context.Context, id string) error {
	return db.inTx(ctx, "delete activity", func(tx *sql.Tx) error {
		if err := activityExists(ctx, tx, id); err != nil {
			return failed("lookup", err)
		}
		for _, table := range perActivityTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE activity_id = ?", id); err != nil {
				return failed(table, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM activity WHERE activity_id = ?`, id); err != nil {
			return failed("activity", err)
		}
		return nil
	})
}
