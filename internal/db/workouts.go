package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/trainlog/internal/plan"
)

// CreateWorkout stores a generated workout and its intervals atomically,
// assigning an id if none is set.
func (db *DB) CreateWorkout(ctx context.Context, w *plan.Workout) error {
	return db.inTx(ctx, "create workout", func(tx *sql.Tx) error {
		return insertWorkout(ctx, tx, w)
	})
}

func insertWorkout(ctx context.Context, tx *sql.Tx, w *plan.Workout) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO workout (workout_id, type, sport, estimated_stress, scheduled_time) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Type.String(), w.Sport, w.EstimatedStress, w.ScheduledTime)
	if err != nil {
		return failed("workout "+w.ID, err)
	}
	for i, iv := range w.Intervals {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO workout_interval (workout_id, position, repeat, duration, power_low, power_high,
				distance, pace, recovery_distance, recovery_pace)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.ID, i, iv.Repeat, iv.Duration, iv.PowerLow, iv.PowerHigh,
			iv.Distance, iv.Pace, iv.RecoveryDistance, iv.RecoveryPace)
		if err != nil {
			return failed(fmt.Sprintf("workout %s interval %d", w.ID, i), err)
		}
	}
	return nil
}

func (db *DB) workoutIntervals(ctx context.Context, id string) ([]plan.Interval, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT repeat, duration, power_low, power_high, distance, pace, recovery_distance, recovery_pace
		FROM workout_interval WHERE workout_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list workout intervals: %w", err)
	}
	defer rows.Close()

	var out []plan.Interval
	for rows.Next() {
		var iv plan.Interval
		if err := rows.Scan(&iv.Repeat, &iv.Duration, &iv.PowerLow, &iv.PowerHigh,
			&iv.Distance, &iv.Pace, &iv.RecoveryDistance, &iv.RecoveryPace); err != nil {
			return nil, fmt.Errorf("failed to scan workout interval: %w", err)
		}
		out = append(out, iv)
	}
	return out, rows.Err()
}

func scanWorkout(row interface{ Scan(...any) error }) (*plan.Workout, error) {
	var (
		w        plan.Workout
		typeName string
	)
	if err := row.Scan(&w.ID, &typeName, &w.Sport, &w.EstimatedStress, &w.ScheduledTime); err != nil {
		return nil, err
	}
	t, err := plan.ParseWorkoutType(typeName)
	if err != nil {
		return nil, err
	}
	w.Type = t
	return &w, nil
}

// GetWorkout retrieves a workout with its intervals.
func (db *DB) GetWorkout(ctx context.Context, id string) (*plan.Workout, error) {
	row := db.QueryRowContext(ctx,
		`SELECT workout_id, type, sport, estimated_stress, scheduled_time FROM workout WHERE workout_id = ?`, id)
	w, err := scanWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("workout %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workout: %w", err)
	}
	if w.Intervals, err = db.workoutIntervals(ctx, id); err != nil {
		return nil, err
	}
	return w, nil
}

// ListWorkouts returns every stored workout ordered by scheduled time.
func (db *DB) ListWorkouts(ctx context.Context) ([]*plan.Workout, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT workout_id, type, sport, estimated_stress, scheduled_time FROM workout ORDER BY scheduled_time, workout_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}
	var workouts []*plan.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}
		workouts = append(workouts, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, w := range workouts {
		if w.Intervals, err = db.workoutIntervals(ctx, w.ID); err != nil {
			return nil, err
		}
	}
	return workouts, nil
}

// DeleteWorkout removes a workout and its intervals.
func (db *DB) DeleteWorkout(ctx context.Context, id string) error {
	return db.inTx(ctx, "delete workout", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM workout_interval WHERE workout_id = ?`, id); err != nil {
			return failed("workout_interval", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM workout WHERE workout_id = ?`, id)
		if err != nil {
			return failed("workout", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return failed("workout", fmt.Errorf("workout %s: %w", id, ErrNotFound))
		}
		return nil
	})
}

// ReplaceWorkouts swaps the stored plan for a new one in one transaction.
func (db *DB) ReplaceWorkouts(ctx context.Context, workouts []*plan.Workout) error {
	return db.inTx(ctx, "replace workouts", func(tx *sql.Tx) error {
		for _, table := range []string{"workout_interval", "workout"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return failed(table, err)
			}
		}
		for _, w := range workouts {
			if err := insertWorkout(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}
