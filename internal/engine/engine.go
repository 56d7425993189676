// Package engine owns the activity being recorded. It applies sensor
// readings to derived attributes, persists raw readings as they arrive and
// writes the summary when the activity stops.
//
// All operations are serialized by one lock, so readings from concurrent
// sensors are applied one at a time in arrival order. A reading that loses
// the race with Stop is rejected with ErrInvalidState; nothing is applied
// after the summary is computed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/db"
	"github.com/banshee-data/trainlog/internal/monitoring"
	"github.com/banshee-data/trainlog/internal/observability"
	"github.com/banshee-data/trainlog/internal/sensor"
	"github.com/banshee-data/trainlog/internal/timeutil"
	"github.com/banshee-data/trainlog/internal/units"
)

var logf = monitoring.Component("engine")

// Store is the persistence the engine delegates to. *db.DB implements it.
type Store interface {
	CreateActivity(ctx context.Context, a *db.Activity) error
	StopActivity(ctx context.Context, id string, endTime int64) error
	FixEndTime(ctx context.Context, id string) (int64, error)
	OrphanedActivity(ctx context.Context) (*db.Activity, error)
	InsertReading(ctx context.Context, activityID string, r sensor.Reading) error
	AllReadings(ctx context.Context, activityID string) iter.Seq2[sensor.Reading, error]
	CreateLap(ctx context.Context, activityID string, startTime int64) error
	Laps(ctx context.Context, activityID string) ([]int64, error)
	SaveSummary(ctx context.Context, activityID string, attrs map[string]attr.Attribute) error
	GetBike(ctx context.Context, id string) (*db.Bike, error)
	SetActivityBike(ctx context.Context, activityID, bikeID string) error
	ActivityBike(ctx context.Context, activityID string) (string, error)
}

var _ Store = (*db.DB)(nil)

// Summary is the final state of a stopped activity. Times are unix seconds.
type Summary struct {
	ActivityID string                    `json:"activity_id"`
	Type       string                    `json:"type"`
	StartTime  int64                     `json:"start_time"`
	EndTime    int64                     `json:"end_time"`
	Attributes map[string]attr.Attribute `json:"attributes"`
	Saved      bool                      `json:"saved"`
}

// Engine is the explicit owner of the current activity. At most one
// activity is current at a time.
type Engine struct {
	store Store
	cfg   Config

	mu     sync.Mutex
	state  State
	cur    *session
	last   *Summary
	orphan *db.Activity
}

// New returns an engine in the Uninitialized state.
func New(store Store, cfg Config) *Engine {
	e := &Engine{store: store, cfg: cfg.withDefaults()}
	observability.RecordState(int(Uninitialized))
	return e
}

func (e *Engine) setState(s State) {
	e.state = s
	observability.RecordState(int(s))
}

func (e *Engine) nowMS() int64 { return timeutil.UnixMilli(e.cfg.Clock) }

func (e *Engine) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.cfg.StorageTimeout)
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentActivityID returns the id of the started activity, or "".
func (e *Engine) CurrentActivityID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return ""
	}
	return e.cur.id
}

// ActivityType returns the type of the current activity, or "".
func (e *Engine) ActivityType() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return ""
	}
	return e.cur.activityType
}

// SetProfile replaces the athlete profile. A current activity keeps the
// profile it was created with.
func (e *Engine) SetProfile(p Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := e.cfg
	cfg.Profile = p
	e.cfg = cfg.withDefaults()
}

// Create prepares a new activity of the given type.
func (e *Engine) Create(activityType string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case Uninitialized, Created, Stopped:
	default:
		return invalidState("create", e.state)
	}
	if activityType == "" {
		return fmt.Errorf("create: empty activity type")
	}
	e.cur = newSession(activityType, e.cfg.Profile)
	e.setState(Created)
	return nil
}

// Start begins recording the created activity. An empty id is replaced by a
// new UUID and a zero time by the clock's current time.
func (e *Engine) Start(ctx context.Context, id string, at time.Time) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Created {
		return "", invalidState("start", e.state)
	}
	if id == "" {
		id = uuid.NewString()
	}
	if at.IsZero() {
		at = e.cfg.Clock.Now()
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	err := e.store.CreateActivity(sctx, &db.Activity{
		ID:        id,
		UserID:    e.cfg.UserID,
		Type:      e.cur.activityType,
		StartTime: at.Unix(),
	})
	if err != nil {
		observability.RecordStorageError("start")
		return "", storageError("start", err)
	}

	e.cur.begin(id, at.UnixMilli())
	e.setState(InProgress)
	if e.cur.bikeID != "" {
		if err := e.store.SetActivityBike(sctx, id, e.cur.bikeID); err != nil {
			observability.RecordStorageError("set_bike")
			logf("failed to associate bike %s with %s: %v", e.cur.bikeID, id, err)
		}
	}
	logf("started %s activity %s", e.cur.activityType, id)
	return id, nil
}

// SetBike selects the bike for the current activity. Its wheel
// circumference drives wheel speed.
func (e *Engine) SetBike(ctx context.Context, bikeID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Created && !e.state.Started() {
		return invalidState("set bike", e.state)
	}
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	bike, err := e.store.GetBike(sctx, bikeID)
	if err != nil {
		return fmt.Errorf("set bike: %w", err)
	}
	e.cur.setBike(bike.ID, bike.WheelCircumferenceMM)
	if e.state.Started() {
		if err := e.store.SetActivityBike(sctx, e.cur.id, bike.ID); err != nil {
			observability.RecordStorageError("set_bike")
			return storageError("set bike", err)
		}
	}
	return nil
}

// Pause stops moving time from accruing. Readings are still accepted.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != InProgress {
		return invalidState("pause", e.state)
	}
	e.cur.pause(e.nowMS())
	e.setState(Paused)
	return nil
}

func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Paused {
		return invalidState("resume", e.state)
	}
	e.cur.resume(e.nowMS())
	e.setState(InProgress)
	return nil
}

// TogglePause switches between InProgress and Paused and returns the new
// state.
func (e *Engine) TogglePause() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case InProgress:
		e.cur.pause(e.nowMS())
		e.setState(Paused)
	case Paused:
		e.cur.resume(e.nowMS())
		e.setState(InProgress)
	default:
		return e.state, invalidState("toggle pause", e.state)
	}
	return e.state, nil
}

// StartNewLap closes the running lap. Cumulative attributes carry on.
func (e *Engine) StartNewLap(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Started() {
		return invalidState("start new lap", e.state)
	}
	now := e.nowMS()
	n := e.cur.newLap(now)

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	if err := e.store.CreateLap(sctx, e.cur.id, now); err != nil {
		observability.RecordStorageError("lap")
		return storageError(fmt.Sprintf("lap %d", n), err)
	}
	return nil
}

// ProcessReading applies r to the current activity and persists it. A zero
// timestamp is replaced by the clock's current time. Readings are accepted
// while paused. On a storage failure the attributes are still updated and
// the returned error wraps ErrStorage.
func (e *Engine) ProcessReading(ctx context.Context, r sensor.Reading) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Started() {
		observability.RecordRejected("state")
		return invalidState("process "+r.Kind.String()+" reading", e.state)
	}
	if !r.Kind.Valid() {
		observability.RecordRejected("kind")
		return fmt.Errorf("process reading: invalid sensor kind %d", int(r.Kind))
	}
	if r.Time == 0 {
		r.Time = e.nowMS()
	}

	if e.cur.apply(r) {
		observability.RecordReading(r.Kind.String())
	} else {
		observability.RecordRejected("noise")
	}

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	if err := e.store.InsertReading(sctx, e.cur.id, r); err != nil {
		observability.RecordStorageError("insert_reading")
		logf("failed to persist %s reading for %s: %v", r.Kind, e.cur.id, err)
		return storageError("process reading", err)
	}
	return nil
}

func (e *Engine) ProcessLocation(ctx context.Context, timeMS int64, lat, lon, alt, hAcc, vAcc float64) error {
	return e.ProcessReading(ctx, sensor.NewLocation(timeMS, lat, lon, alt, hAcc, vAcc))
}

func (e *Engine) ProcessAccelerometer(ctx context.Context, timeMS int64, x, y, z float64) error {
	return e.ProcessReading(ctx, sensor.NewAccelerometer(timeMS, x, y, z))
}

func (e *Engine) ProcessHeartRate(ctx context.Context, timeMS int64, bpm float64) error {
	return e.ProcessReading(ctx, sensor.NewHeartRate(timeMS, bpm))
}

func (e *Engine) ProcessCadence(ctx context.Context, timeMS int64, rpm float64) error {
	return e.ProcessReading(ctx, sensor.NewCadence(timeMS, rpm))
}

func (e *Engine) ProcessWheelSpeed(ctx context.Context, timeMS int64, revolutions float64) error {
	return e.ProcessReading(ctx, sensor.NewWheelSpeed(timeMS, revolutions))
}

func (e *Engine) ProcessPower(ctx context.Context, timeMS int64, watts float64) error {
	return e.ProcessReading(ctx, sensor.NewPower(timeMS, watts))
}

func (e *Engine) ProcessFootPod(ctx context.Context, timeMS int64, strideLength, runDistance float64) error {
	return e.ProcessReading(ctx, sensor.NewFootPod(timeMS, strideLength, runDistance))
}

// Stop finalizes the current activity and persists its end time and
// summary. The activity is stopped even if persistence fails; SaveSummary
// retries a failed save.
func (e *Engine) Stop(ctx context.Context) (*Summary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.Started() {
		return nil, invalidState("stop", e.state)
	}
	end := max(e.nowMS(), e.cur.lastMS)
	e.cur.finish(end)

	sum := &Summary{
		ActivityID: e.cur.id,
		Type:       e.cur.activityType,
		StartTime:  e.cur.startMS / 1000,
		EndTime:    end / 1000,
		Attributes: e.cur.attrs.Snapshot(),
	}
	e.last = sum
	e.cur = nil
	e.setState(Stopped)
	observability.RecordActivityStopped(time.UnixMilli(end))
	logf("stopped activity %s", sum.ActivityID)

	return sum, e.persistSummary(ctx, sum)
}

// SaveSummary persists the last stopped activity's summary if an earlier
// attempt failed.
func (e *Engine) SaveSummary(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return invalidState("save summary", e.state)
	}
	return e.persistSummary(ctx, e.last)
}

func (e *Engine) persistSummary(ctx context.Context, sum *Summary) error {
	if sum.Saved {
		return nil
	}
	var err error
	for attempt := 1; attempt <= e.cfg.SaveAttempts; attempt++ {
		if err = e.saveOnce(ctx, sum); err == nil {
			sum.Saved = true
			return nil
		}
		observability.RecordStorageError("save_summary")
		logf("summary save attempt %d/%d for %s failed: %v", attempt, e.cfg.SaveAttempts, sum.ActivityID, err)
		if ctx.Err() != nil || errors.Is(err, db.ErrNotFound) {
			break
		}
		if attempt < e.cfg.SaveAttempts {
			e.cfg.Clock.Sleep(e.cfg.RetryBackoff * time.Duration(attempt))
		}
	}
	return storageError("save summary", err)
}

func (e *Engine) saveOnce(ctx context.Context, sum *Summary) error {
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	if err := e.store.StopActivity(sctx, sum.ActivityID, sum.EndTime); err != nil {
		return err
	}
	return e.store.SaveSummary(sctx, sum.ActivityID, sum.Attributes)
}

// LastSummary returns the summary of the most recently stopped activity.
func (e *Engine) LastSummary() (*Summary, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.last != nil
}

// Attribute returns the named attribute of the current activity, or of the
// last stopped one when none is current. Missing attributes are not set.
func (e *Engine) Attribute(name string) attr.Attribute {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.cur != nil && e.state.Started():
		return e.cur.attrs.Get(name)
	case e.last != nil:
		return e.last.Attributes[name]
	default:
		return attr.NotSet()
	}
}

// Snapshot returns every attribute converted to the target unit system.
// units.NotSet selects the configured system.
func (e *Engine) Snapshot(target units.System) map[string]attr.Attribute {
	e.mu.Lock()
	defer e.mu.Unlock()
	if target == units.NotSet {
		target = e.cfg.Units
	}
	var m map[string]attr.Attribute
	switch {
	case e.cur != nil && e.state.Started():
		m = e.cur.attrs.Snapshot()
	case e.last != nil:
		m = e.last.Attributes
	}
	return attr.ConvertAll(m, target)
}

// AttributeNames lists the attributes Snapshot would return, sorted.
func (e *Engine) AttributeNames() []string {
	snap := e.Snapshot(units.NotSet)
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
