package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/engine"
	"github.com/banshee-data/trainlog/internal/history"
	"github.com/banshee-data/trainlog/internal/plan"
)

type liveResponse struct {
	State      engine.State              `json:"state"`
	ActivityID string                    `json:"activity_id,omitempty"`
	Type       string                    `json:"type,omitempty"`
	Attributes map[string]attr.Attribute `json:"attributes"`
}

// planRequest overrides the configured goal. Every field is optional.
type planRequest struct {
	GoalDistance *float64 `json:"goal_distance_m,omitempty"`
	GoalType     *string  `json:"goal_type,omitempty"`
	Experience   *string  `json:"experience,omitempty"`
}

type planResponse struct {
	Inputs plan.Inputs `json:"inputs"`
	plan.Plan
}

// showLive reports the engine state and the attributes of the current (or
// last stopped) activity.
func (s *Server) showLive(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no activity engine")
		return
	}
	target, err := s.requestUnits(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, liveResponse{
		State:      s.engine.State(),
		ActivityID: s.engine.CurrentActivityID(),
		Type:       s.engine.ActivityType(),
		Attributes: s.engine.Snapshot(target),
	})
}

func (req planRequest) goal(base history.Goal) (history.Goal, error) {
	g := base
	if req.GoalDistance != nil {
		if *req.GoalDistance <= 0 {
			return g, fmt.Errorf("goal_distance_m must be positive")
		}
		g.Distance = *req.GoalDistance
	}
	if req.GoalType != nil {
		t, err := plan.ParseGoalType(*req.GoalType)
		if err != nil {
			return g, err
		}
		g.Type = t
	}
	if req.Experience != nil {
		e, err := plan.ParseExperienceLevel(*req.Experience)
		if err != nil {
			return g, err
		}
		g.Experience = e
	}
	return g, nil
}

// generatePlan derives inputs from recent history, generates a week
// starting tomorrow and replaces the stored workouts with it.
func (s *Server) generatePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid plan request: %v", err))
		return
	}
	goal, err := req.goal(s.opts.Goal)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := s.opts.Clock.Now()
	in, err := history.PlanInputs(ctx, s.db, now, goal)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	p := s.opts.Generator.Generate(in)
	y, m, d := now.Date()
	plan.Schedule(p.Workouts, time.Date(y, m, d+1, 0, 0, 0, 0, now.Location()))
	if err := s.db.ReplaceWorkouts(ctx, p.Workouts); err != nil {
		s.writeStoreError(w, err)
		return
	}
	if p.Workouts == nil {
		p.Workouts = []*plan.Workout{}
	}
	s.writeJSON(w, http.StatusOK, planResponse{Inputs: in, Plan: p})
}

func (s *Server) listWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts, err := s.db.ListWorkouts(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if workouts == nil {
		workouts = []*plan.Workout{}
	}
	s.writeJSON(w, http.StatusOK, workouts)
}
