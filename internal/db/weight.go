package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// WeightMeasurement is a body weight in kilograms at a unix time (seconds).
type WeightMeasurement struct {
	Time     int64   `json:"time"`
	WeightKg float64 `json:"weight_kg"`
}

func (db *DB) CreateWeight(ctx context.Context, m WeightMeasurement) error {
	if _, err := db.ExecContext(ctx, `INSERT INTO weight (time, value) VALUES (?, ?)`, m.Time, m.WeightKg); err != nil {
		return fmt.Errorf("failed to record weight: %w", err)
	}
	return nil
}

// NewestWeight returns the latest measurement, or ErrNotFound.
func (db *DB) NewestWeight(ctx context.Context) (WeightMeasurement, error) {
	var m WeightMeasurement
	err := db.QueryRowContext(ctx, `SELECT time, value FROM weight ORDER BY time DESC LIMIT 1`).Scan(&m.Time, &m.WeightKg)
	if errors.Is(err, sql.ErrNoRows) {
		return m, fmt.Errorf("weight: %w", ErrNotFound)
	}
	if err != nil {
		return m, fmt.Errorf("failed to read weight: %w", err)
	}
	return m, nil
}

// NearestWeight estimates weight at t by interpolating between the closest
// measurements on either side. Outside the recorded range the nearest
// measurement is returned as is.
func (db *DB) NearestWeight(ctx context.Context, t int64) (WeightMeasurement, error) {
	before, errBefore := db.weightAt(ctx, `SELECT time, value FROM weight WHERE time <= ? ORDER BY time DESC LIMIT 1`, t)
	after, errAfter := db.weightAt(ctx, `SELECT time, value FROM weight WHERE time >= ? ORDER BY time ASC LIMIT 1`, t)
	for _, err := range []error{errBefore, errAfter} {
		if err != nil && !errors.Is(err, ErrNotFound) {
			return WeightMeasurement{}, err
		}
	}

	switch {
	case errBefore != nil && errAfter != nil:
		return WeightMeasurement{}, fmt.Errorf("weight: %w", ErrNotFound)
	case errBefore != nil:
		return after, nil
	case errAfter != nil:
		return before, nil
	case before.Time == after.Time:
		return before, nil
	}
	frac := float64(t-before.Time) / float64(after.Time-before.Time)
	return WeightMeasurement{Time: t, WeightKg: before.WeightKg + frac*(after.WeightKg-before.WeightKg)}, nil
}

func (db *DB) weightAt(ctx context.Context, query string, t int64) (WeightMeasurement, error) {
	var m WeightMeasurement
	err := db.QueryRowContext(ctx, query, t).Scan(&m.Time, &m.WeightKg)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	if err != nil {
		return m, fmt.Errorf("failed to read weight: %w", err)
	}
	return m, nil
}
