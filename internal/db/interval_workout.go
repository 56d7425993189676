package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/trainlog/internal/units"
)

// IntervalWorkout is a named structured workout template.
type IntervalWorkout struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Sport    string            `json:"sport"`
	Segments []IntervalSegment `json:"segments"`
}

// IntervalSegment is one ordered block of a template. Duration is seconds,
// distance and pace are expressed in Units.
type IntervalSegment struct {
	ID       int64        `json:"id"`
	Sets     int          `json:"sets"`
	Reps     int          `json:"reps"`
	Duration float64      `json:"duration"`
	Distance float64      `json:"distance"`
	Pace     float64      `json:"pace"`
	Power    float64      `json:"power"`
	Units    units.System `json:"units"`
}

// CreateIntervalWorkout stores a template and its segments atomically.
func (db *DB) CreateIntervalWorkout(ctx context.Context, w *IntervalWorkout) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return db.inTx(ctx, "create interval workout", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO interval_workout (workout_id, name, sport) VALUES (?, ?, ?)`,
			w.ID, w.Name, w.Sport); err != nil {
			return failed("interval_workout", err)
		}
		for i := range w.Segments {
			id, err := insertSegment(ctx, tx, w.ID, i, w.Segments[i])
			if err != nil {
				return failed(fmt.Sprintf("segment %d", i), err)
			}
			w.Segments[i].ID = id
		}
		return nil
	})
}

func insertSegment(ctx context.Context, tx *sql.Tx, workoutID string, position int, s IntervalSegment) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO interval_workout_segment (workout_id, position, sets, reps, duration, distance, pace, power, units)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		workoutID, position, s.Sets, s.Reps, s.Duration, s.Distance, s.Pace, s.Power, int(s.Units))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AddIntervalSegment appends a segment to an existing template.
func (db *DB) AddIntervalSegment(ctx context.Context, workoutID string, s *IntervalSegment) error {
	return db.inTx(ctx, "add interval segment", func(tx *sql.Tx) error {
		var (
			exists int
			next   int
		)
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM interval_workout WHERE workout_id = ?`, workoutID).Scan(&exists)
		if err != nil {
			return failed("lookup", err)
		}
		if exists == 0 {
			return failed("lookup", fmt.Errorf("interval workout %s: %w", workoutID, ErrNotFound))
		}
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM interval_workout_segment WHERE workout_id = ?`, workoutID).Scan(&next)
		if err != nil {
			return failed("position", err)
		}
		id, err := insertSegment(ctx, tx, workoutID, next, *s)
		if err != nil {
			return failed("segment", err)
		}
		s.ID = id
		return nil
	})
}

func (db *DB) DeleteIntervalSegment(ctx context.Context, workoutID string, segmentID int64) error {
	return db.updateRow(ctx, "delete interval segment",
		`DELETE FROM interval_workout_segment WHERE workout_id = ? AND id = ?`, workoutID, segmentID)
}

// GetIntervalWorkout retrieves a template with its segments in order.
func (db *DB) GetIntervalWorkout(ctx context.Context, id string) (*IntervalWorkout, error) {
	var w IntervalWorkout
	err := db.QueryRowContext(ctx, `SELECT workout_id, name, sport FROM interval_workout WHERE workout_id = ?`, id).
		Scan(&w.ID, &w.Name, &w.Sport)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("interval workout %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interval workout: %w", err)
	}
	if w.Segments, err = db.intervalSegments(ctx, id); err != nil {
		return nil, err
	}
	return &w, nil
}

func (db *DB) intervalSegments(ctx context.Context, workoutID string) ([]IntervalSegment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, sets, reps, duration, distance, pace, power, units
		FROM interval_workout_segment WHERE workout_id = ? ORDER BY position`, workoutID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interval segments: %w", err)
	}
	defer rows.Close()

	var segs []IntervalSegment
	for rows.Next() {
		var (
			s  IntervalSegment
			us int
		)
		if err := rows.Scan(&s.ID, &s.Sets, &s.Reps, &s.Duration, &s.Distance, &s.Pace, &s.Power, &us); err != nil {
			return nil, fmt.Errorf("failed to scan interval segment: %w", err)
		}
		s.Units = units.System(us)
		segs = append(segs, s)
	}
	return segs, rows.Err()
}

// ListIntervalWorkouts returns every template with its segments.
func (db *DB) ListIntervalWorkouts(ctx context.Context) ([]IntervalWorkout, error) {
	rows, err := db.QueryContext(ctx, `SELECT workout_id, name, sport FROM interval_workout ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list interval workouts: %w", err)
	}
	var out []IntervalWorkout
	for rows.Next() {
		var w IntervalWorkout
		if err := rows.Scan(&w.ID, &w.Name, &w.Sport); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan interval workout: %w", err)
		}
		out = append(out, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Segments, err = db.intervalSegments(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DeleteIntervalWorkout removes a template and all its segments.
func (db *DB) DeleteIntervalWorkout(ctx context.Context, id string) error {
	return db.inTx(ctx, "delete interval workout", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM interval_workout_segment WHERE workout_id = ?`, id); err != nil {
			return failed("interval_workout_segment", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM interval_workout WHERE workout_id = ?`, id)
		if err != nil {
			return failed("interval_workout", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return failed("interval_workout", fmt.Errorf("interval workout %s: %w", id, ErrNotFound))
		}
		return nil
	})
}
