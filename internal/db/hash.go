package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateHash records the content hash of an activity's source. Both the id
// and the hash are unique.
func (db *DB) CreateHash(ctx context.Context, activityID, hash string) error {
	if _, err := db.ExecContext(ctx, `INSERT INTO activity_hash (activity_id, hash) VALUES (?, ?)`, activityID, hash); err != nil {
		return fmt.Errorf("failed to create activity hash: %w", err)
	}
	return nil
}

// UpdateHash replaces the hash of an activity that already has one.
func (db *DB) UpdateHash(ctx context.Context, activityID, hash string) error {
	res, err := db.ExecContext(ctx, `UPDATE activity_hash SET hash = ? WHERE activity_id = ?`, hash, activityID)
	if err != nil {
		return fmt.Errorf("failed to update activity hash: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("hash for activity %s: %w", activityID, ErrNotFound)
	}
	return nil
}

// ActivityIDByHash looks up the activity imported from the given content.
func (db *DB) ActivityIDByHash(ctx context.Context, hash string) (string, error) {
	return db.lookupString(ctx, `SELECT activity_id FROM activity_hash WHERE hash = ?`, hash)
}

// HashByActivityID returns the stored content hash of an activity.
func (db *DB) HashByActivityID(ctx context.Context, activityID string) (string, error) {
	return db.lookupString(ctx, `SELECT hash FROM activity_hash WHERE activity_id = ?`, activityID)
}

func (db *DB) lookupString(ctx context.Context, query string, arg any) (string, error) {
	var s string
	err := db.QueryRowContext(ctx, query, arg).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("activity hash: %w", ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query activity hash: %w", err)
	}
	return s, nil
}
