package db

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/banshee-data/trainlog/internal/sensor"
)

// Table and column names below come from the closed sensor.Kind set, never
// from callers; every value is a bound parameter.

func insertReadingSQL(k sensor.Kind) string {
	cols := k.Channels()
	return fmt.Sprintf("INSERT INTO %s (activity_id, time, %s) VALUES (?, ?%s)",
		k.Table(), strings.Join(cols, ", "), strings.Repeat(", ?", len(cols)))
}

func readingArgs(activityID string, r sensor.Reading) []any {
	args := []any{activityID, r.Time}
	for _, ch := range r.Kind.Channels() {
		args = append(args, r.Values[ch])
	}
	return args
}

// InsertReading appends one reading to the table for its kind.
func (db *DB) InsertReading(ctx context.Context, activityID string, r sensor.Reading) error {
	if !r.Kind.Valid() {
		return fmt.Errorf("failed to insert reading: invalid sensor kind %d", r.Kind)
	}
	if _, err := db.ExecContext(ctx, insertReadingSQL(r.Kind), readingArgs(activityID, r)...); err != nil {
		return fmt.Errorf("failed to insert %s reading: %w", r.Kind, err)
	}
	return nil
}

// InsertReadings appends a batch atomically.
func (db *DB) InsertReadings(ctx context.Context, activityID string, readings []sensor.Reading) error {
	return db.inTx(ctx, "insert readings", func(tx *sql.Tx) error {
		stmts := map[sensor.Kind]*sql.Stmt{}
		defer func() {
			for _, s := range stmts {
				s.Close()
			}
		}()
		for _, r := range readings {
			if !r.Kind.Valid() {
				return failed("validate", fmt.Errorf("invalid sensor kind %d", r.Kind))
			}
			stmt, ok := stmts[r.Kind]
			if !ok {
				var err error
				if stmt, err = tx.PrepareContext(ctx, insertReadingSQL(r.Kind)); err != nil {
					return failed(r.Kind.Table(), err)
				}
				stmts[r.Kind] = stmt
			}
			if _, err := stmt.ExecContext(ctx, readingArgs(activityID, r)...); err != nil {
				return failed(r.Kind.Table(), err)
			}
		}
		return nil
	})
}

// Readings lazily yields an activity's readings of one kind in time order.
// Each range over the sequence runs a fresh query.
func (db *DB) Readings(ctx context.Context, activityID string, kind sensor.Kind) iter.Seq2[sensor.Reading, error] {
	return func(yield func(sensor.Reading, error) bool) {
		if !kind.Valid() {
			yield(sensor.Reading{}, fmt.Errorf("invalid sensor kind %d", kind))
			return
		}
		cols := kind.Channels()
		query := fmt.Sprintf("SELECT time, %s FROM %s WHERE activity_id = ? ORDER BY time, id",
			strings.Join(cols, ", "), kind.Table())
		rows, err := db.QueryContext(ctx, query, activityID)
		if err != nil {
			yield(sensor.Reading{}, fmt.Errorf("failed to query %s readings: %w", kind, err))
			return
		}
		defer rows.Close()

		vals := make([]float64, len(cols))
		dest := make([]any, len(cols)+1)
		for i := range vals {
			dest[i+1] = &vals[i]
		}
		for rows.Next() {
			r := sensor.Reading{Kind: kind, Values: make(map[string]float64, len(cols))}
			dest[0] = &r.Time
			if err := rows.Scan(dest...); err != nil {
				yield(sensor.Reading{}, fmt.Errorf("failed to scan %s reading: %w", kind, err))
				return
			}
			for i, ch := range cols {
				r.Values[ch] = vals[i]
			}
			if !yield(r, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(sensor.Reading{}, err)
		}
	}
}

// AllReadings yields every reading of every kind merged in time order.
func (db *DB) AllReadings(ctx context.Context, activityID string) iter.Seq2[sensor.Reading, error] {
	return func(yield func(sensor.Reading, error) bool) {
		var all []sensor.Reading
		for _, k := range sensor.Kinds() {
			for r, err := range db.Readings(ctx, activityID, k) {
				if err != nil {
					yield(sensor.Reading{}, err)
					return
				}
				all = append(all, r)
			}
		}
		slices.SortStableFunc(all, func(a, b sensor.Reading) int { return cmp.Compare(a.Time, b.Time) })
		for _, r := range all {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Coordinate is a location point.
type Coordinate struct {
	Time      int64   `json:"time_ms"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
}

// Coordinates lazily yields the location track of an activity.
func (db *DB) Coordinates(ctx context.Context, activityID string) iter.Seq2[Coordinate, error] {
	return func(yield func(Coordinate, error) bool) {
		rows, err := db.QueryContext(ctx,
			`SELECT time, latitude, longitude, altitude FROM gps WHERE activity_id = ? ORDER BY time, id`, activityID)
		if err != nil {
			yield(Coordinate{}, fmt.Errorf("failed to query coordinates: %w", err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var c Coordinate
			if err := rows.Scan(&c.Time, &c.Latitude, &c.Longitude, &c.Altitude); err != nil {
				yield(Coordinate{}, fmt.Errorf("failed to scan coordinate: %w", err))
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Coordinate{}, err)
		}
	}
}

// ReadingCount counts an activity's readings of one kind.
func (db *DB) ReadingCount(ctx context.Context, activityID string, kind sensor.Kind) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("invalid sensor kind %d", kind)
	}
	var n int
	err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+kind.Table()+" WHERE activity_id = ?", activityID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s readings: %w", kind, err)
	}
	return n, nil
}

// LastReadingTime returns the newest reading time (ms) across all kinds.
func (db *DB) LastReadingTime(ctx context.Context, activityID string) (int64, bool, error) {
	var (
		last  int64
		found bool
	)
	for _, k := range sensor.Kinds() {
		var t sql.NullInt64
		err := db.QueryRowContext(ctx, "SELECT MAX(time) FROM "+k.Table()+" WHERE activity_id = ?", activityID).Scan(&t)
		if err != nil {
			return 0, false, fmt.Errorf("failed to query last %s reading: %w", k, err)
		}
		if t.Valid && (!found || t.Int64 > last) {
			last, found = t.Int64, true
		}
	}
	return last, found, nil
}

// Trim deletes every reading and lap of the activity before the cutoff
// (fromStart) or after it, across all sensor tables in one transaction, and
// moves the activity's start or end time to the cutoff. cutoff is unix ms.
func (db *DB) Trim(ctx context.Context, activityID string, cutoff int64, fromStart bool) error {
	op := "<"
	timeCol := "start_time"
	if !fromStart {
		op = ">"
		timeCol = "end_time"
	}
	return db.inTx(ctx, "trim", func(tx *sql.Tx) error {
		if err := activityExists(ctx, tx, activityID); err != nil {
			return failed("lookup", err)
		}
		for _, k := range sensor.Kinds() {
			q := fmt.Sprintf("DELETE FROM %s WHERE activity_id = ? AND time %s ?", k.Table(), op)
			if _, err := tx.ExecContext(ctx, q, activityID, cutoff); err != nil {
				return failed(k.Table(), err)
			}
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM lap WHERE activity_id = ? AND start_time "+op+" ?", activityID, cutoff); err != nil {
			return failed("lap", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE activity SET "+timeCol+" = ? WHERE activity_id = ?", cutoff/1000, activityID); err != nil {
			return failed("activity", err)
		}
		return nil
	})
}

// Merge folds activity b into a: readings, laps, tags and the bike
// association move to a, a's time span widens to cover b, then b's hash,
// summary and activity rows are deleted.
func (db *DB) Merge(ctx context.Context, a, b string) error {
	if a == b {
		return fmt.Errorf("merge: cannot merge activity %s into itself", a)
	}
	return db.inTx(ctx, "merge", func(tx *sql.Tx) error {
		if err := activityExists(ctx, tx, a); err != nil {
			return failed("lookup", err)
		}
		if err := activityExists(ctx, tx, b); err != nil {
			return failed("lookup", err)
		}

		reparent := []string{"lap"}
		for _, k := range sensor.Kinds() {
			reparent = append(reparent, k.Table())
		}
		for _, table := range reparent {
			if _, err := tx.ExecContext(ctx, "UPDATE "+table+" SET activity_id = ? WHERE activity_id = ?", a, b); err != nil {
				return failed(table, err)
			}
		}
		// Unique per activity: keep a's row where both have one.
		for _, table := range []string{"tag", "bike_activity"} {
			if _, err := tx.ExecContext(ctx, "UPDATE OR IGNORE "+table+" SET activity_id = ? WHERE activity_id = ?", a, b); err != nil {
				return failed(table, err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE activity SET
				start_time = MIN(start_time, (SELECT start_time FROM activity WHERE activity_id = ?)),
				end_time = CASE
					WHEN end_time IS NULL THEN NULL
					ELSE MAX(end_time, COALESCE((SELECT end_time FROM activity WHERE activity_id = ?), end_time))
				END
			WHERE activity_id = ?`, b, b, a)
		if err != nil {
			return failed("span", err)
		}

		for _, table := range []string{"tag", "bike_activity", "activity_hash", "activity_summary", "activity"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE activity_id = ?", b); err != nil {
				return failed(table, err)
			}
		}
		return nil
	})
}
