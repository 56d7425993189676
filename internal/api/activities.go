package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/db"
	"github.com/banshee-data/trainlog/internal/engine"
	"github.com/banshee-data/trainlog/internal/sensor"
)

type activityResponse struct {
	db.Activity
	Summary map[string]attr.Attribute `json:"summary"`
	Laps    []int64                   `json:"laps"`
	Tags    []string                  `json:"tags"`
}

type trimRequest struct {
	CutoffMS  int64 `json:"cutoff_ms"`
	FromStart bool  `json:"from_start"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type mergeRequest struct {
	Into string `json:"into"`
	From string `json:"from"`
}

// listActivities returns every activity, oldest first. The optional "type"
// parameter filters by activity type.
func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := s.db.ListActivities(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	if t := r.URL.Query().Get("type"); t != "" {
		filtered := activities[:0]
		for _, a := range activities {
			if a.Type == t {
				filtered = append(filtered, a)
			}
		}
		activities = filtered
	}
	if activities == nil {
		activities = []db.Activity{}
	}
	s.writeJSON(w, http.StatusOK, activities)
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	target, err := s.requestUnits(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.db.GetActivity(ctx, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	resp := activityResponse{Activity: *a, Tags: []string{}}

	summary, err := s.db.Summary(ctx, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	resp.Summary = attr.ConvertAll(summary, target)
	if resp.Laps, err = s.db.Laps(ctx, id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	if resp.Laps == nil {
		resp.Laps = []int64{}
	}
	for tag, err := range s.db.Tags(ctx, id) {
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		resp.Tags = append(resp.Tags, tag)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.isLive(id) {
		s.writeJSONError(w, http.StatusConflict, "activity is being recorded")
		return
	}
	if err := s.db.DeleteActivity(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) renameActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid rename request: %v", err))
		return
	}
	if err := s.db.SetActivityName(ctx, id, strings.TrimSpace(req.Name)); err != nil {
		s.writeStoreError(w, err)
		return
	}
	a, err := s.db.GetActivity(ctx, id)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, a)
}

// listReadings returns the readings of one activity in time order. The
// optional "kind" parameter restricts them to one sensor.
func (s *Server) listReadings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := s.db.GetActivity(ctx, id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	seq := s.db.AllReadings(ctx, id)
	if k := r.URL.Query().Get("kind"); k != "" {
		kind, err := sensor.ParseKind(k)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		seq = s.db.Readings(ctx, id, kind)
	}

	readings := []sensor.Reading{}
	for reading, err := range seq {
		if err != nil {
			s.writeStoreError(w, err)
			return
		}
		readings = append(readings, reading)
	}
	s.writeJSON(w, http.StatusOK, readings)
}

func (s *Server) trimActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	var req trimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid trim request: %v", err))
		return
	}
	if req.CutoffMS <= 0 {
		s.writeJSONError(w, http.StatusBadRequest, "cutoff_ms must be positive")
		return
	}
	if s.isLive(id) {
		s.writeJSONError(w, http.StatusConflict, "activity is being recorded")
		return
	}
	if err := s.db.Trim(ctx, id, req.CutoffMS, req.FromStart); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeSummary(w, r, id)
}

func (s *Server) mergeActivities(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid merge request: %v", err))
		return
	}
	if req.Into == "" || req.From == "" || req.Into == req.From {
		s.writeJSONError(w, http.StatusBadRequest, "into and from must name two different activities")
		return
	}
	if s.isLive(req.Into) || s.isLive(req.From) {
		s.writeJSONError(w, http.StatusConflict, "activity is being recorded")
		return
	}
	if err := s.db.Merge(r.Context(), req.Into, req.From); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeSummary(w, r, req.Into)
}

// writeSummary rederives the summary of an edited activity and returns it.
func (s *Server) writeSummary(w http.ResponseWriter, r *http.Request, id string) {
	summary, err := engine.Resummarize(r.Context(), s.db, id, s.opts.Profile)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"summary": attr.ConvertAll(summary, s.opts.Units),
	})
}
