// Package api serves the activity log, the live session and plan
// generation over HTTP as JSON.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/trainlog/internal/db"
	"github.com/banshee-data/trainlog/internal/engine"
	"github.com/banshee-data/trainlog/internal/history"
	"github.com/banshee-data/trainlog/internal/monitoring"
	"github.com/banshee-data/trainlog/internal/plan"
	"github.com/banshee-data/trainlog/internal/timeutil"
	"github.com/banshee-data/trainlog/internal/units"
	"github.com/banshee-data/trainlog/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// Options configures a Server. Zero values get defaults in NewServer.
type Options struct {
	Units     units.System
	Profile   engine.Profile
	Goal      history.Goal
	Generator *plan.Generator
	Clock     timeutil.Clock
}

type Server struct {
	db     *db.DB
	engine *engine.Engine
	opts   Options
}

// NewServer builds a server over database. eng may be nil, in which case
// the live endpoint reports 503.
func NewServer(database *db.DB, eng *engine.Engine, opts Options) *Server {
	if opts.Units == units.NotSet {
		opts.Units = units.Metric
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Generator == nil {
		opts.Generator = plan.NewGenerator(uint64(opts.Clock.Now().UnixNano()))
	}
	return &Server{db: database, engine: eng, opts: opts}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/activities", s.listActivities)
	mux.HandleFunc("GET /api/activities/{id}", s.getActivity)
	mux.HandleFunc("PATCH /api/activities/{id}", s.renameActivity)
	mux.HandleFunc("DELETE /api/activities/{id}", s.deleteActivity)
	mux.HandleFunc("GET /api/activities/{id}/readings", s.listReadings)
	mux.HandleFunc("POST /api/activities/{id}/trim", s.trimActivity)
	mux.HandleFunc("POST /api/activities/merge", s.mergeActivities)
	mux.HandleFunc("GET /api/live", s.showLive)
	mux.HandleFunc("POST /api/live/start", s.startLive)
	mux.HandleFunc("POST /api/live/pause", s.pauseLive)
	mux.HandleFunc("POST /api/live/resume", s.resumeLive)
	mux.HandleFunc("POST /api/live/lap", s.lapLive)
	mux.HandleFunc("POST /api/live/stop", s.stopLive)
	mux.HandleFunc("POST /api/live/readings", s.postReadings)
	mux.HandleFunc("POST /api/plan", s.generatePlan)
	mux.HandleFunc("GET /api/workouts", s.listWorkouts)
	mux.HandleFunc("GET /api/config", s.showConfig)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("[api] failed to write response: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps a store failure to a status code.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSONError(w, http.StatusInternalServerError, err.Error())
}

// requestUnits reads the optional "units" query parameter.
func (s *Server) requestUnits(r *http.Request) (units.System, error) {
	name := r.URL.Query().Get("units")
	if name == "" {
		return s.opts.Units, nil
	}
	return units.Parse(name)
}

// isLive reports whether id is the activity the engine is recording.
func (s *Server) isLive(id string) bool {
	return s.engine != nil && s.engine.State().Started() && s.engine.CurrentActivityID() == id
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"version": version.Version,
		"units":   s.opts.Units.String(),
		"goal": map[string]any{
			"distance_m": s.opts.Goal.Distance,
			"type":       s.opts.Goal.Type.String(),
			"experience": s.opts.Goal.Experience.String(),
		},
	})
}
