package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/banshee-data/trainlog/internal/engine"
	"github.com/banshee-data/trainlog/internal/monitoring"
	"github.com/banshee-data/trainlog/internal/sensor"
)

type startRequest struct {
	Type   string `json:"type"`
	BikeID string `json:"bike_id,omitempty"`
}

type readingRequest struct {
	Kind   string             `json:"kind"`
	TimeMS int64              `json:"time_ms"`
	Values map[string]float64 `json:"values"`
}

// writeEngineError maps an engine failure to a status code.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidState):
		s.writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrStorage):
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
	}
}

// liveEngine writes 503 and returns false when the server has no engine.
func (s *Server) liveEngine(w http.ResponseWriter) bool {
	if s.engine == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "no activity engine")
		return false
	}
	return true
}

func (s *Server) startLive(w http.ResponseWriter, r *http.Request) {
	if !s.liveEngine(w) {
		return
	}
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid start request: %v", err))
		return
	}
	if err := s.engine.Create(req.Type); err != nil {
		s.writeEngineError(w, err)
		return
	}
	if req.BikeID != "" {
		if err := s.engine.SetBike(r.Context(), req.BikeID); err != nil {
			s.writeEngineError(w, err)
			return
		}
	}
	id, err := s.engine.Start(r.Context(), "", s.opts.Clock.Now())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"activity_id": id})
}

func (s *Server) pauseLive(w http.ResponseWriter, r *http.Request) {
	if s.liveEngine(w) {
		s.writeTransition(w, s.engine.Pause())
	}
}

func (s *Server) resumeLive(w http.ResponseWriter, r *http.Request) {
	if s.liveEngine(w) {
		s.writeTransition(w, s.engine.Resume())
	}
}

func (s *Server) lapLive(w http.ResponseWriter, r *http.Request) {
	if s.liveEngine(w) {
		s.writeTransition(w, s.engine.StartNewLap(r.Context()))
	}
}

func (s *Server) writeTransition(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"state": s.engine.State().String()})
}

// stopLive ends the current activity. A summary that could not be saved is
// still returned, with saved false.
func (s *Server) stopLive(w http.ResponseWriter, r *http.Request) {
	if !s.liveEngine(w) {
		return
	}
	sum, err := s.engine.Stop(r.Context())
	if sum == nil {
		s.writeEngineError(w, err)
		return
	}
	if err != nil {
		monitoring.Logf("[api] summary of %s not saved: %v", sum.ActivityID, err)
	}
	s.writeJSON(w, http.StatusOK, sum)
}

// postReadings feeds a batch of readings through the engine in order.
// Readings the engine rejects are logged and skipped.
func (s *Server) postReadings(w http.ResponseWriter, r *http.Request) {
	if !s.liveEngine(w) {
		return
	}
	var reqs []readingRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid readings: %v", err))
		return
	}
	ch := make(chan sensor.Reading, len(reqs))
	for _, req := range reqs {
		kind, err := sensor.ParseKind(req.Kind)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		ch <- sensor.Reading{Kind: kind, Time: req.TimeMS, Values: req.Values}
	}
	close(ch)

	if st := s.engine.State(); !st.Started() {
		s.writeJSONError(w, http.StatusConflict, fmt.Sprintf("activity is %s", st))
		return
	}
	if err := s.engine.Consume(r.Context(), ch); err != nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]int{"received": len(reqs)})
}
