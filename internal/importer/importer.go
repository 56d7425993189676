// Package importer loads recorded activity files into the database. Each
// source file is imported once: its content hash is kept in the hash index
// and a second import of the same bytes is refused.
package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/trainlog/internal/archive"
	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/db"
	"github.com/banshee-data/trainlog/internal/engine"
	"github.com/banshee-data/trainlog/internal/monitoring"
	"github.com/banshee-data/trainlog/internal/observability"
	"github.com/banshee-data/trainlog/internal/sensor"
)

var (
	ErrDuplicate         = errors.New("activity already imported")
	ErrUnsupportedFormat = errors.New("unsupported import format")
)

const (
	FormatFIT     = "fit"
	FormatParquet = "parquet"
)

var logf = monitoring.Component("import")

// Store is the subset of *db.DB the importer writes through.
type Store interface {
	ActivityIDByHash(ctx context.Context, hash string) (string, error)
	CreateActivity(ctx context.Context, a *db.Activity) error
	InsertReadings(ctx context.Context, activityID string, readings []sensor.Reading) error
	CreateLap(ctx context.Context, activityID string, startTime int64) error
	CreateHash(ctx context.Context, activityID, hash string) error
	SaveSummary(ctx context.Context, activityID string, attrs map[string]attr.Attribute) error
	DeleteActivity(ctx context.Context, id string) error
}

var _ Store = (*db.DB)(nil)

// Importer turns activity files into stored activities with derived
// summaries.
type Importer struct {
	store   Store
	profile engine.Profile
	userID  string
}

func New(store Store, profile engine.Profile, userID string) *Importer {
	return &Importer{store: store, profile: profile, userID: userID}
}

// decoded is a parsed source file. Times are unix milliseconds.
type decoded struct {
	activityType string
	startMS      int64
	endMS        int64
	readings     []sensor.Reading
	laps         []int64
}

// Import reads the file at path and stores it as a new activity, returning
// its id. An empty format is taken from the file extension; an empty
// activityType is taken from the file when it names a sport.
func (im *Importer) Import(ctx context.Context, path, format, activityType string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	format = strings.ToLower(format)
	if format != FormatFIT && format != FormatParquet {
		observability.RecordImport("unsupported")
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		observability.RecordImport("error")
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	id, err := im.importBytes(ctx, data, format, name, activityType)
	switch {
	case errors.Is(err, ErrDuplicate):
		observability.RecordImport("duplicate")
	case err != nil:
		observability.RecordImport("error")
	default:
		observability.RecordImport("ok")
	}
	return id, err
}

func (im *Importer) importBytes(ctx context.Context, data []byte, format, name, activityType string) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	existing, err := im.store.ActivityIDByHash(ctx, hash)
	if err == nil {
		return existing, fmt.Errorf("%w as %s", ErrDuplicate, existing)
	}
	if !errors.Is(err, db.ErrNotFound) {
		return "", err
	}

	var d *decoded
	switch format {
	case FormatParquet:
		d, err = decodeParquet(data)
	default:
		d, err = decodeFIT(bytes.NewReader(data))
	}
	if err != nil {
		return "", err
	}
	if activityType != "" {
		d.activityType = activityType
	}
	if d.activityType == "" {
		return "", errors.New("activity type unknown: the file names no supported sport")
	}

	id := uuid.NewString()
	end := d.endMS / 1000
	a := &db.Activity{
		ID:        id,
		UserID:    im.userID,
		Type:      d.activityType,
		Name:      name,
		StartTime: d.startMS / 1000,
		EndTime:   &end,
	}
	if err := im.store.CreateActivity(ctx, a); err != nil {
		return "", err
	}
	if err := im.persist(ctx, id, hash, d); err != nil {
		if derr := im.store.DeleteActivity(ctx, id); derr != nil {
			logf("failed to remove partial import %s: %v", id, derr)
		}
		return "", err
	}
	logf("imported %s as %s activity %s: %d readings, %d laps", name, d.activityType, id, len(d.readings), len(d.laps))
	return id, nil
}

func (im *Importer) persist(ctx context.Context, id, hash string, d *decoded) error {
	if len(d.readings) > 0 {
		if err := im.store.InsertReadings(ctx, id, d.readings); err != nil {
			return err
		}
	}
	for _, lap := range d.laps {
		if err := im.store.CreateLap(ctx, id, lap); err != nil {
			return err
		}
	}
	summary, err := engine.Summarize(d.activityType, im.profile, 0, d.startMS, d.endMS, values(d.readings), d.laps)
	if err != nil {
		return err
	}
	if err := im.store.SaveSummary(ctx, id, summary); err != nil {
		return err
	}
	return im.store.CreateHash(ctx, id, hash)
}

// decodeParquet reads a file written by the exporter.
func decodeParquet(data []byte) (*decoded, error) {
	h, readings, err := archive.Decode(data)
	if err != nil {
		return nil, err
	}
	return &decoded{
		activityType: h.Type,
		startMS:      h.StartMS,
		endMS:        h.EndMS,
		readings:     readings,
		laps:         h.Laps,
	}, nil
}

func values(readings []sensor.Reading) iter.Seq2[sensor.Reading, error] {
	return func(yield func(sensor.Reading, error) bool) {
		for _, r := range readings {
			if !yield(r, nil) {
				return
			}
		}
	}
}
