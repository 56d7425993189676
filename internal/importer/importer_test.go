package importer

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	"github.com/banshee-data/trainlog/internal/activity"
	"github.com/banshee-data/trainlog/internal/attr"
	"github.com/banshee-data/trainlog/internal/engine"
	"github.com/banshee-data/trainlog/internal/monitoring"
	"github.com/banshee-data/trainlog/internal/sensor"
	"github.com/banshee-data/trainlog/internal/testutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

var t0 = time.Unix(1_700_000_000, 0).UTC()

const metersPerDegree = 111_195.0

// buildTestFIT encodes a run of n one-second records heading north at
// 3 m/s with a constant heart rate and a lap change half way.
func buildTestFIT(t *testing.T, sport fit.Sport, n int, withPositions bool) []byte {
	t.Helper()

	file, err := fit.NewFile(fit.FileTypeActivity, fit.NewHeader(fit.V20, true))
	require.NoError(t, err)
	af, err := file.Activity()
	require.NoError(t, err)

	session := fit.NewSessionMsg()
	session.Sport = sport
	session.StartTime = t0
	session.Timestamp = t0.Add(time.Duration(n) * time.Second)
	af.Sessions = append(af.Sessions, session)

	for _, at := range []time.Duration{0, time.Duration(n/2) * time.Second} {
		lap := fit.NewLapMsg()
		lap.StartTime = t0.Add(at)
		lap.Timestamp = t0.Add(at)
		af.Laps = append(af.Laps, lap)
	}

	for i := range n {
		rec := fit.NewRecordMsg()
		rec.Timestamp = t0.Add(time.Duration(i) * time.Second)
		if withPositions {
			rec.PositionLat = fit.NewLatitudeDegrees(47.0 + float64(i)*3/metersPerDegree)
			rec.PositionLong = fit.NewLongitudeDegrees(8.0)
		}
		rec.HeartRate = 150
		af.Records = append(af.Records, rec)
	}

	var buf bytes.Buffer
	require.NoError(t, fit.Encode(&buf, file, binary.LittleEndian))
	return buf.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestImportFIT(t *testing.T) {
	d := testutil.NewTestDB(t)
	ctx := context.Background()
	im := New(d, engine.Profile{WeightKg: 70, AgeYears: 35, MaxHeartRate: 190}, "athlete")

	path := writeFile(t, "morning.fit", buildTestFIT(t, fit.SportRunning, 61, true))
	id, err := im.Import(ctx, path, "", "")
	require.NoError(t, err)

	a, err := d.GetActivity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, activity.Running, a.Type)
	assert.Equal(t, "morning", a.Name)
	assert.Equal(t, "athlete", a.UserID)
	assert.Equal(t, t0.Unix(), a.StartTime)
	require.NotNil(t, a.EndTime)
	assert.Equal(t, t0.Unix()+61, *a.EndTime)

	n, err := d.ReadingCount(ctx, id, sensor.Location)
	require.NoError(t, err)
	assert.Equal(t, 61, n)
	n, err = d.ReadingCount(ctx, id, sensor.HeartRate)
	require.NoError(t, err)
	assert.Equal(t, 61, n)

	laps, err := d.Laps(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []int64{t0.UnixMilli() + 30_000}, laps)

	dist, err := d.SummaryAttribute(ctx, id, attr.Distance)
	require.NoError(t, err)
	km, ok := dist.Double()
	require.True(t, ok)
	assert.InDelta(t, 0.180, km, 0.002)

	hr, err := d.SummaryAttribute(ctx, id, attr.AvgHeartRate)
	require.NoError(t, err)
	bpm, ok := hr.Float()
	require.True(t, ok)
	assert.InDelta(t, 150, bpm, 1e-9)

	hash, err := d.HashByActivityID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, hash, 64)
}

func TestImportRejectsDuplicates(t *testing.T) {
	d := testutil.NewTestDB(t)
	ctx := context.Background()
	im := New(d, engine.Profile{}, "")

	data := buildTestFIT(t, fit.SportCycling, 10, true)
	first, err := im.Import(ctx, writeFile(t, "a.fit", data), "", "")
	require.NoError(t, err)

	again, err := im.Import(ctx, writeFile(t, "b.FIT", data), "", "")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, first, again)

	count, err := d.ActivityCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestImportActivityTypeOverride(t *testing.T) {
	d := testutil.NewTestDB(t)
	ctx := context.Background()
	im := New(d, engine.Profile{}, "")

	id, err := im.Import(ctx, writeFile(t, "ride.fit", buildTestFIT(t, fit.SportCycling, 10, true)), FormatFIT, activity.MountainBiking)
	require.NoError(t, err)
	a, err := d.GetActivity(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, activity.MountainBiking, a.Type)
}

func TestImportUnsupportedFormat(t *testing.T) {
	d := testutil.NewTestDB(t)
	im := New(d, engine.Profile{}, "")

	_, err := im.Import(context.Background(), writeFile(t, "route.gpx", []byte("<gpx/>")), "", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImportCorruptFileLeavesNothingBehind(t *testing.T) {
	d := testutil.NewTestDB(t)
	ctx := context.Background()
	im := New(d, engine.Profile{}, "")

	_, err := im.Import(ctx, writeFile(t, "broken.fit", []byte("not a fit file")), "", "")
	require.Error(t, err)

	count, err := d.ActivityCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestActivityTypeMapping(t *testing.T) {
	tests := []struct {
		sport fit.Sport
		sub   fit.SubSport
		want  string
	}{
		{fit.SportRunning, fit.SubSportGeneric, activity.Running},
		{fit.SportRunning, fit.SubSportTreadmill, activity.Treadmill},
		{fit.SportCycling, fit.SubSportIndoorCycling, activity.StationaryBike},
		{fit.SportCycling, fit.SubSportMountain, activity.MountainBiking},
		{fit.SportCycling, fit.SubSportRoad, activity.Cycling},
		{fit.SportWalking, fit.SubSportGeneric, activity.Walking},
		{fit.SportHiking, fit.SubSportGeneric, activity.Hiking},
		{fit.SportSwimming, fit.SubSportLapSwimming, activity.PoolSwim},
		{fit.SportSwimming, fit.SubSportOpenWater, activity.OpenWaterSwim},
		{fit.SportTennis, fit.SubSportGeneric, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, activityType(tt.sport, tt.sub), "%v/%v", tt.sport, tt.sub)
	}
}
