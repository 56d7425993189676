// Package exporter writes stored activities out as files.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"

	"github.com/banshee-data/trainlog/internal/archive"
	"github.com/banshee-data/trainlog/internal/db"
	"github.com/banshee-data/trainlog/internal/monitoring"
	"github.com/banshee-data/trainlog/internal/security"
	"github.com/banshee-data/trainlog/internal/sensor"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

const FormatParquet = "parquet"

var logf = monitoring.Component("export")

// Store is the subset of *db.DB the exporter reads.
type Store interface {
	GetActivity(ctx context.Context, id string) (*db.Activity, error)
	AllReadings(ctx context.Context, activityID string) iter.Seq2[sensor.Reading, error]
	LastReadingTime(ctx context.Context, activityID string) (int64, bool, error)
	Laps(ctx context.Context, activityID string) ([]int64, error)
}

var _ Store = (*db.DB)(nil)

type Exporter struct {
	store Store
}

func New(store Store) *Exporter { return &Exporter{store: store} }

// Export writes an activity with its laps and every reading, in time
// order, to a file in dir and returns its path. The file can be imported
// again.
func (e *Exporter) Export(ctx context.Context, id, format, dir string) (string, error) {
	format = strings.ToLower(format)
	if format != FormatParquet {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	a, err := e.store.GetActivity(ctx, id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, security.SafeFilename(id)+"."+FormatParquet)
	if err := security.WithinDir(path, dir); err != nil {
		return "", err
	}
	n, err := e.writeParquet(ctx, a, path)
	if err != nil {
		os.Remove(path)
		return "", err
	}
	logf("exported %d readings of %s to %s", n, id, path)
	return path, nil
}

func (e *Exporter) writeParquet(ctx context.Context, a *db.Activity, path string) (int, error) {
	laps, err := e.store.Laps(ctx, a.ID)
	if err != nil {
		return 0, err
	}
	h := archive.Header{Type: a.Type, StartMS: a.StartTime * 1000, Laps: laps}
	if a.EndTime != nil {
		h.EndMS = *a.EndTime * 1000
	} else {
		// Still recording: end at the last reading.
		last, ok, err := e.store.LastReadingTime(ctx, a.ID)
		if err != nil {
			return 0, err
		}
		h.EndMS = h.StartMS
		if ok {
			h.EndMS = max(last, h.StartMS)
		}
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer fw.Close()
	return archive.Write(fw, h, e.store.AllReadings(ctx, a.ID))
}
