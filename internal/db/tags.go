package db

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

// CreateTag attaches a tag to an activity. Adding an existing tag is a no-op.
func (db *DB) CreateTag(ctx context.Context, activityID, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return fmt.Errorf("failed to create tag: empty tag")
	}
	if _, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO tag (activity_id, tag) VALUES (?, ?)`, activityID, tag); err != nil {
		return fmt.Errorf("failed to create tag: %w", err)
	}
	return nil
}

func (db *DB) DeleteTag(ctx context.Context, activityID, tag string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM tag WHERE activity_id = ? AND tag = ?`, activityID, tag)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("tag %q: %w", tag, ErrNotFound)
	}
	return nil
}

// Tags lazily yields an activity's tags in alphabetical order.
func (db *DB) Tags(ctx context.Context, activityID string) iter.Seq2[string, error] {
	return db.stringSeq(ctx, "tags", `SELECT tag FROM tag WHERE activity_id = ? ORDER BY tag`, activityID)
}

// SearchTags yields the ids of activities with a tag containing substr.
func (db *DB) SearchTags(ctx context.Context, substr string) iter.Seq2[string, error] {
	return db.stringSeq(ctx, "tag search",
		`SELECT DISTINCT t.activity_id FROM tag t JOIN activity a ON a.activity_id = t.activity_id
		WHERE instr(lower(t.tag), lower(?)) > 0 ORDER BY a.start_time`, substr)
}

func (db *DB) stringSeq(ctx context.Context, what, query string, args ...any) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			yield("", fmt.Errorf("failed to query %s: %w", what, err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				yield("", fmt.Errorf("failed to scan %s: %w", what, err))
				return
			}
			if !yield(s, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield("", err)
		}
	}
}
