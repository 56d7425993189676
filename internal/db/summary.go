package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/units"
)

const upsertSummarySQL = `
	INSERT INTO activity_summary (activity_id, attribute, value, value_type, measure_type, units, start_time, end_time)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func summaryArgs(activityID, name string, a attr.Attribute) []any {
	v, _ := a.Float()
	return []any{activityID, name, v, int(a.Type()), int(a.Measure), int(a.Units), a.StartTime, a.EndTime}
}

// SaveSummary writes every set attribute of a finished activity in one
// transaction. Existing values with the same name are replaced.
func (db *DB) SaveSummary(ctx context.Context, activityID string, attrs map[string]attr.Attribute) error {
	return db.inTx(ctx, "save summary", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertSummarySQL)
		if err != nil {
			return failed("prepare", err)
		}
		defer stmt.Close()
		for _, name := range slices.Sorted(maps.Keys(attrs)) {
			a := attrs[name]
			if !a.IsSet() {
				continue
			}
			if _, err := stmt.ExecContext(ctx, summaryArgs(activityID, name, a)...); err != nil {
				return failed(name, err)
			}
		}
		return nil
	})
}

// ReplaceSummary discards every stored attribute of the activity and
// writes attrs in their place, in one transaction.
func (db *DB) ReplaceSummary(ctx context.Context, activityID string, attrs map[string]attr.Attribute) error {
	return db.inTx(ctx, "replace summary", func(tx *sql.Tx) error {
		if err := activityExists(ctx, tx, activityID); err != nil {
			return failed("lookup", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM activity_summary WHERE activity_id = ?`, activityID); err != nil {
			return failed("delete", err)
		}
		stmt, err := tx.PrepareContext(ctx, upsertSummarySQL)
		if err != nil {
			return failed("prepare", err)
		}
		defer stmt.Close()
		for _, name := range slices.Sorted(maps.Keys(attrs)) {
			a := attrs[name]
			if !a.IsSet() {
				continue
			}
			if _, err := stmt.ExecContext(ctx, summaryArgs(activityID, name, a)...); err != nil {
				return failed(name, err)
			}
		}
		return nil
	})
}

// SetSummaryAttribute writes or replaces a single attribute. Writing an
// unset attribute deletes the stored one.
func (db *DB) SetSummaryAttribute(ctx context.Context, activityID, name string, a attr.Attribute) error {
	var err error
	if a.IsSet() {
		_, err = db.ExecContext(ctx, upsertSummarySQL, summaryArgs(activityID, name, a)...)
	} else {
		_, err = db.ExecContext(ctx, `DELETE FROM activity_summary WHERE activity_id = ? AND attribute = ?`, activityID, name)
	}
	if err != nil {
		return fmt.Errorf("failed to set summary attribute %q: %w", name, err)
	}
	return nil
}

func scanAttribute(row interface{ Scan(...any) error }, extra ...any) (attr.Attribute, error) {
	var (
		value                  float64
		valueType, measure, us int
		start, end             int64
	)
	dest := append(extra, &value, &valueType, &measure, &us, &start, &end)
	if err := row.Scan(dest...); err != nil {
		return attr.NotSet(), err
	}
	a, err := attr.FromStored(attr.ValueType(valueType), value, attr.MeasureType(measure), units.System(us))
	if err != nil {
		return attr.NotSet(), err
	}
	return a.WithWindow(start, end), nil
}

const summaryValueColumns = `value, value_type, measure_type, units, start_time, end_time`

// SummaryAttribute reads one stored attribute. A missing attribute is
// returned as attr.NotSet() with a nil error.
func (db *DB) SummaryAttribute(ctx context.Context, activityID, name string) (attr.Attribute, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+summaryValueColumns+` FROM activity_summary WHERE activity_id = ? AND attribute = ?`, activityID, name)
	a, err := scanAttribute(row)
	if errors.Is(err, sql.ErrNoRows) {
		return attr.NotSet(), nil
	}
	if err != nil {
		return attr.NotSet(), fmt.Errorf("failed to read summary attribute %q: %w", name, err)
	}
	return a, nil
}

// Summary returns every stored attribute of an activity.
func (db *DB) Summary(ctx context.Context, activityID string) (map[string]attr.Attribute, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT attribute, `+summaryValueColumns+` FROM activity_summary WHERE activity_id = ?`, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to read summary: %w", err)
	}
	defer rows.Close()

	out := make(map[string]attr.Attribute)
	for rows.Next() {
		var name string
		a, err := scanAttribute(rows, &name)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary attribute: %w", err)
		}
		out[name] = a
	}
	return out, rows.Err()
}

func (db *DB) SummaryAttributeCount(ctx context.Context, activityID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_summary WHERE activity_id = ?`, activityID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count summary attributes: %w", err)
	}
	return n, nil
}

// AttributeTotal sums an attribute across activities. An empty activityType
// sums across all types.
func (db *DB) AttributeTotal(ctx context.Context, name, activityType string) (float64, error) {
	var total sql.NullFloat64
	err := db.QueryRowContext(ctx, `
		SELECT SUM(s.value) FROM activity_summary s JOIN activity a ON a.activity_id = s.activity_id
		WHERE s.attribute = ? AND (? = '' OR a.type = ?)`, name, activityType, activityType).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to total %q: %w", name, err)
	}
	return total.Float64, nil
}

// BestAttribute finds the best stored value of an attribute among activities
// of one type, returning the owning activity id. smallestIsBest selects
// minimum (times, paces) rather than maximum.
func (db *DB) BestAttribute(ctx context.Context, activityType, name string, smallestIsBest bool) (string, attr.Attribute, error) {
	order := "DESC"
	if smallestIsBest {
		order = "ASC"
	}
	row := db.QueryRowContext(ctx, `
		SELECT s.activity_id, s.value, s.value_type, s.measure_type, s.units, s.start_time, s.end_time
		FROM activity_summary s JOIN activity a ON a.activity_id = s.activity_id
		WHERE s.attribute = ? AND a.type = ? AND s.value > 0
		ORDER BY s.value `+order+` LIMIT 1`, name, activityType)
	var id string
	a, err := scanAttribute(row, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", attr.NotSet(), fmt.Errorf("best %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return "", attr.NotSet(), fmt.Errorf("failed to find best %q: %w", name, err)
	}
	return id, a, nil
}
