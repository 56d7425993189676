package engine

import (
	"context"
	"errors"

	"github.com/banshee-data/trainlog/internal/db"
)

// DetectOrphan looks for a stored activity that was started but never
// stopped. If one exists the engine moves to Orphaned and its id is
// returned; otherwise the id is empty.
func (e *Engine) DetectOrphan(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Uninitialized && e.state != Stopped {
		return "", invalidState("detect orphan", e.state)
	}
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	a, err := e.store.OrphanedActivity(sctx)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storageError("detect orphan", err)
	}
	e.orphan = a
	e.setState(Orphaned)
	logf("found orphaned %s activity %s", a.Type, a.ID)
	return a.ID, nil
}

// RecoverOrphan rebuilds the orphaned activity from its stored readings and
// laps and resumes it as InProgress. Replayed readings are not stored again.
func (e *Engine) RecoverOrphan(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Orphaned {
		return invalidState("recover orphan", e.state)
	}
	a := e.orphan
	s := newSession(a.Type, e.cfg.Profile)

	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	if bikeID, err := e.store.ActivityBike(sctx, a.ID); err == nil {
		if bike, err := e.store.GetBike(sctx, bikeID); err == nil {
			s.setBike(bike.ID, bike.WheelCircumferenceMM)
		}
	}
	laps, err := e.store.Laps(sctx, a.ID)
	if err != nil {
		return storageError("recover orphan", err)
	}

	s.begin(a.ID, a.StartTime*1000)
	replayed, err := replay(s, e.store.AllReadings(sctx, a.ID), laps)
	if err != nil {
		return storageError("recover orphan", err)
	}

	e.cur = s
	e.orphan = nil
	e.setState(InProgress)
	logf("recovered activity %s from %d readings", a.ID, replayed)
	return nil
}

// DiscardOrphan closes the orphaned activity at its last reading and
// returns the engine to Uninitialized.
func (e *Engine) DiscardOrphan(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Orphaned {
		return invalidState("discard orphan", e.state)
	}
	sctx, cancel := e.storageCtx(ctx)
	defer cancel()
	end, err := e.store.FixEndTime(sctx, e.orphan.ID)
	if err != nil {
		return storageError("discard orphan", err)
	}
	logf("closed orphaned activity %s at %d", e.orphan.ID, end)
	e.orphan = nil
	e.setState(Uninitialized)
	return nil
}

// OrphanID returns the id of the detected orphan, or "".
func (e *Engine) OrphanID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.orphan == nil {
		return ""
	}
	return e.orphan.ID
}

