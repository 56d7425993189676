// Package history is the read side of the activity log: positional and
// by-id access to stored activities, and the derivation of plan inputs
// from recent training.
package history

import (
	"context"
	"fmt"
	"iter"

	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/db"
	"github.com/banshee-data/trainlog/internal/sensor"
)

// Store is the subset of *db.DB that history reads.
type Store interface {
	ListActivities(ctx context.Context) ([]db.Activity, error)
	ListActivitiesBetween(ctx context.Context, from, to int64) ([]db.Activity, error)
	SummaryAttribute(ctx context.Context, activityID, name string) (attr.Attribute, error)
	Summary(ctx context.Context, activityID string) (map[string]attr.Attribute, error)
	SummaryAttributeCount(ctx context.Context, activityID string) (int, error)
	BestAttribute(ctx context.Context, activityType, name string, smallestIsBest bool) (string, attr.Attribute, error)
	Tags(ctx context.Context, activityID string) iter.Seq2[string, error]
	Laps(ctx context.Context, activityID string) ([]int64, error)
	Coordinates(ctx context.Context, activityID string) iter.Seq2[db.Coordinate, error]
	Readings(ctx context.Context, activityID string, kind sensor.Kind) iter.Seq2[sensor.Reading, error]
	ReadingCount(ctx context.Context, activityID string, kind sensor.Kind) (int, error)
}

var _ Store = (*db.DB)(nil)

// History is a snapshot of the activity list, oldest first. Indexes are
// stable until the next Reload.
type History struct {
	store      Store
	activities []db.Activity
	index      map[string]int
}

// Load lists every stored activity.
func Load(ctx context.Context, store Store) (*History, error) {
	h := &History{store: store}
	if err := h.Reload(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// Reload refreshes the activity list.
func (h *History) Reload(ctx context.Context) error {
	activities, err := h.store.ListActivities(ctx)
	if err != nil {
		return err
	}
	index := make(map[string]int, len(activities))
	for i, a := range activities {
		index[a.ID] = i
	}
	h.activities, h.index = activities, index
	return nil
}

func (h *History) Len() int { return len(h.activities) }

// CountByType counts activities of one type.
func (h *History) CountByType(activityType string) int {
	n := 0
	for _, a := range h.activities {
		if a.Type == activityType {
			n++
		}
	}
	return n
}

// IndexOf converts an activity id to its index.
func (h *History) IndexOf(id string) (int, bool) {
	i, ok := h.index[id]
	return i, ok
}

// ID converts an index to an activity id.
func (h *History) ID(i int) (string, bool) {
	if i < 0 || i >= len(h.activities) {
		return "", false
	}
	return h.activities[i].ID, true
}

// At returns the activity at index i.
func (h *History) At(i int) (db.Activity, error) {
	if i < 0 || i >= len(h.activities) {
		return db.Activity{}, fmt.Errorf("activity index %d: %w", i, db.ErrNotFound)
	}
	return h.activities[i], nil
}

// ByID returns the activity with the given id.
func (h *History) ByID(id string) (db.Activity, error) {
	i, ok := h.index[id]
	if !ok {
		return db.Activity{}, fmt.Errorf("activity %s: %w", id, db.ErrNotFound)
	}
	return h.activities[i], nil
}

// All yields every activity with its index.
func (h *History) All() iter.Seq2[int, db.Activity] {
	return func(yield func(int, db.Activity) bool) {
		for i, a := range h.activities {
			if !yield(i, a) {
				return
			}
		}
	}
}

// StartAndEnd returns the start and end time of activity i in unix
// seconds. The end is zero while the activity is in progress.
func (h *History) StartAndEnd(i int) (int64, int64, error) {
	a, err := h.At(i)
	if err != nil {
		return 0, 0, err
	}
	var end int64
	if a.EndTime != nil {
		end = *a.EndTime
	}
	return a.StartTime, end, nil
}

func (h *History) id(i int) (string, error) {
	a, err := h.At(i)
	return a.ID, err
}

// Attribute returns a summary attribute of activity i. Missing attributes
// are not set.
func (h *History) Attribute(ctx context.Context, i int, name string) (attr.Attribute, error) {
	id, err := h.id(i)
	if err != nil {
		return attr.NotSet(), err
	}
	return h.store.SummaryAttribute(ctx, id, name)
}

// AttributeByID is Attribute keyed by activity id.
func (h *History) AttributeByID(ctx context.Context, id, name string) (attr.Attribute, error) {
	if _, err := h.ByID(id); err != nil {
		return attr.NotSet(), err
	}
	return h.store.SummaryAttribute(ctx, id, name)
}

// Attributes returns the whole summary of activity i.
func (h *History) Attributes(ctx context.Context, i int) (map[string]attr.Attribute, error) {
	id, err := h.id(i)
	if err != nil {
		return nil, err
	}
	return h.store.Summary(ctx, id)
}

func (h *History) AttributeCount(ctx context.Context, i int) (int, error) {
	id, err := h.id(i)
	if err != nil {
		return 0, err
	}
	return h.store.SummaryAttributeCount(ctx, id)
}

func (h *History) Tags(ctx context.Context, i int) iter.Seq2[string, error] {
	id, err := h.id(i)
	if err != nil {
		return errSeq[string](err)
	}
	return h.store.Tags(ctx, id)
}

func (h *History) Laps(ctx context.Context, i int) ([]int64, error) {
	id, err := h.id(i)
	if err != nil {
		return nil, err
	}
	return h.store.Laps(ctx, id)
}

// Points yields the location track of activity i.
func (h *History) Points(ctx context.Context, i int) iter.Seq2[db.Coordinate, error] {
	id, err := h.id(i)
	if err != nil {
		return errSeq[db.Coordinate](err)
	}
	return h.store.Coordinates(ctx, id)
}

func (h *History) PointCount(ctx context.Context, i int) (int, error) {
	return h.ReadingCount(ctx, i, sensor.Location)
}

// Readings yields the readings of one sensor kind for activity i.
func (h *History) Readings(ctx context.Context, i int, kind sensor.Kind) iter.Seq2[sensor.Reading, error] {
	id, err := h.id(i)
	if err != nil {
		return errSeq[sensor.Reading](err)
	}
	return h.store.Readings(ctx, id, kind)
}

func (h *History) ReadingCount(ctx context.Context, i int, kind sensor.Kind) (int, error) {
	id, err := h.id(i)
	if err != nil {
		return 0, err
	}
	return h.store.ReadingCount(ctx, id, kind)
}

func errSeq[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}
