package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Bike is a cycling equipment profile. Times are unix seconds; a zero
// TimeRetired means still in use.
type Bike struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	WeightKg             float64 `json:"weight_kg"`
	WheelCircumferenceMM float64 `json:"wheel_circumference_mm"`
	TimeAdded            int64   `json:"time_added"`
	TimeRetired          int64   `json:"time_retired"`
}

// Shoe is a running shoe profile.
type Shoe struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	TimeAdded   int64  `json:"time_added"`
	TimeRetired int64  `json:"time_retired"`
}

// CreateBike inserts a bike, assigning an id if none is set.
func (db *DB) CreateBike(ctx context.Context, b *Bike) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO bike (bike_id, name, weight_kg, wheel_circumference_mm, time_added, time_retired) VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.WeightKg, b.WheelCircumferenceMM, b.TimeAdded, b.TimeRetired)
	if err != nil {
		return fmt.Errorf("failed to create bike: %w", err)
	}
	return nil
}

func (db *DB) UpdateBike(ctx context.Context, b *Bike) error {
	return db.updateRow(ctx, "update bike",
		`UPDATE bike SET name = ?, weight_kg = ?, wheel_circumference_mm = ?, time_added = ?, time_retired = ? WHERE bike_id = ?`,
		b.Name, b.WeightKg, b.WheelCircumferenceMM, b.TimeAdded, b.TimeRetired, b.ID)
}

func (db *DB) GetBike(ctx context.Context, id string) (*Bike, error) {
	var b Bike
	err := db.QueryRowContext(ctx,
		`SELECT bike_id, name, weight_kg, wheel_circumference_mm, time_added, time_retired FROM bike WHERE bike_id = ?`, id).
		Scan(&b.ID, &b.Name, &b.WeightKg, &b.WheelCircumferenceMM, &b.TimeAdded, &b.TimeRetired)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bike %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bike: %w", err)
	}
	return &b, nil
}

func (db *DB) ListBikes(ctx context.Context) ([]Bike, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT bike_id, name, weight_kg, wheel_circumference_mm, time_added, time_retired FROM bike ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list bikes: %w", err)
	}
	defer rows.Close()

	var bikes []Bike
	for rows.Next() {
		var b Bike
		if err := rows.Scan(&b.ID, &b.Name, &b.WeightKg, &b.WheelCircumferenceMM, &b.TimeAdded, &b.TimeRetired); err != nil {
			return nil, fmt.Errorf("failed to scan bike: %w", err)
		}
		bikes = append(bikes, b)
	}
	return bikes, rows.Err()
}

// DeleteBike removes a bike and its activity associations.
func (db *DB) DeleteBike(ctx context.Context, id string) error {
	return db.inTx(ctx, "delete bike", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bike_activity WHERE bike_id = ?`, id); err != nil {
			return failed("bike_activity", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM bike WHERE bike_id = ?`, id)
		if err != nil {
			return failed("bike", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return failed("bike", fmt.Errorf("bike %s: %w", id, ErrNotFound))
		}
		return nil
	})
}

// SetActivityBike associates a bike with an activity, replacing any
// previous association.
func (db *DB) SetActivityBike(ctx context.Context, activityID, bikeID string) error {
	_, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO bike_activity (bike_id, activity_id) VALUES (?, ?)`, bikeID, activityID)
	if err != nil {
		return fmt.Errorf("failed to set activity bike: %w", err)
	}
	return nil
}

// ActivityBike returns the bike used for an activity, or ErrNotFound.
func (db *DB) ActivityBike(ctx context.Context, activityID string) (string, error) {
	var id string
	err := db.QueryRowContext(ctx, `SELECT bike_id FROM bike_activity WHERE activity_id = ?`, activityID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("bike for activity %s: %w", activityID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get activity bike: %w", err)
	}
	return id, nil
}

func (db *DB) CreateShoe(ctx context.Context, s *Shoe) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO shoe (shoe_id, name, description, time_added, time_retired) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Description, s.TimeAdded, s.TimeRetired)
	if err != nil {
		return fmt.Errorf("failed to create shoe: %w", err)
	}
	return nil
}

func (db *DB) UpdateShoe(ctx context.Context, s *Shoe) error {
	return db.updateRow(ctx, "update shoe",
		`UPDATE shoe SET name = ?, description = ?, time_added = ?, time_retired = ? WHERE shoe_id = ?`,
		s.Name, s.Description, s.TimeAdded, s.TimeRetired, s.ID)
}

func (db *DB) ListShoes(ctx context.Context) ([]Shoe, error) {
	rows, err := db.QueryContext(ctx, `SELECT shoe_id, name, description, time_added, time_retired FROM shoe ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list shoes: %w", err)
	}
	defer rows.Close()

	var shoes []Shoe
	for rows.Next() {
		var s Shoe
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.TimeAdded, &s.TimeRetired); err != nil {
			return nil, fmt.Errorf("failed to scan shoe: %w", err)
		}
		shoes = append(shoes, s)
	}
	return shoes, rows.Err()
}

func (db *DB) DeleteShoe(ctx context.Context, id string) error {
	return db.updateRow(ctx, "delete shoe", `DELETE FROM shoe WHERE shoe_id = ?`, id)
}

// updateRow runs a single-row UPDATE or DELETE, mapping zero affected rows
// to ErrNotFound.
func (db *DB) updateRow(ctx context.Context, op, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to %s: %w", op, ErrNotFound)
	}
	return nil
}
