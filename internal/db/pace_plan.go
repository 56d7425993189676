package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/trainlog/internal/units"
)

// PacePlan is a target pace and split strategy for one race distance.
// Splits is the planned pace change (seconds per unit) from the first to
// the second half; negative means a negative split.
type PacePlan struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	TargetPace     float64      `json:"target_pace"`
	TargetDistance float64      `json:"target_distance"`
	Splits         float64      `json:"splits"`
	Route          string       `json:"route,omitempty"`
	Units          units.System `json:"units"`
}

func (db *DB) CreatePacePlan(ctx context.Context, p *PacePlan) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO pace_plan (plan_id, name, target_pace, target_distance, splits, route, units) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.TargetPace, p.TargetDistance, p.Splits, p.Route, int(p.Units))
	if err != nil {
		return fmt.Errorf("failed to create pace plan: %w", err)
	}
	return nil
}

func (db *DB) UpdatePacePlan(ctx context.Context, p *PacePlan) error {
	return db.updateRow(ctx, "update pace plan",
		`UPDATE pace_plan SET name = ?, target_pace = ?, target_distance = ?, splits = ?, route = ?, units = ? WHERE plan_id = ?`,
		p.Name, p.TargetPace, p.TargetDistance, p.Splits, p.Route, int(p.Units), p.ID)
}

func (db *DB) ListPacePlans(ctx context.Context) ([]PacePlan, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT plan_id, name, target_pace, target_distance, splits, route, units FROM pace_plan ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pace plans: %w", err)
	}
	defer rows.Close()

	var plans []PacePlan
	for rows.Next() {
		var (
			p  PacePlan
			us int
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.TargetPace, &p.TargetDistance, &p.Splits, &p.Route, &us); err != nil {
			return nil, fmt.Errorf("failed to scan pace plan: %w", err)
		}
		p.Units = units.System(us)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (db *DB) DeletePacePlan(ctx context.Context, id string) error {
	return db.updateRow(ctx, "delete pace plan", `DELETE FROM pace_plan WHERE plan_id = ?`, id)
}
