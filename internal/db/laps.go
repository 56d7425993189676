package db

import (
	"context"
	"fmt"
)

// CreateLap appends a lap boundary (unix ms).
func (db *DB) CreateLap(ctx context.Context, activityID string, startTime int64) error {
	if _, err := db.ExecContext(ctx, `INSERT INTO lap (activity_id, start_time) VALUES (?, ?)`, activityID, startTime); err != nil {
		return fmt.Errorf("failed to create lap: %w", err)
	}
	return nil
}

// Laps returns lap start times (unix ms) in order.
func (db *DB) Laps(ctx context.Context, activityID string) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT start_time FROM lap WHERE activity_id = ? ORDER BY start_time, id`, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list laps: %w", err)
	}
	defer rows.Close()

	var laps []int64
	for rows.Next() {
		var t int64
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan lap: %w", err)
		}
		laps = append(laps, t)
	}
	return laps, rows.Err()
}
