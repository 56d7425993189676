package archive

import (
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/buffer"

	"github.com/banshee-data/trainlog/internal/sensor"
)

const t0 = int64(1_700_000_000_000)

func seq(rs ...sensor.Reading) iter.Seq2[sensor.Reading, error] {
	return func(yield func(sensor.Reading, error) bool) {
		for _, r := range rs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func TestWriteThenDecode(t *testing.T) {
	readings := []sensor.Reading{
		sensor.NewLocation(t0, 47.1, 8.2, 410, 4, 6),
		sensor.NewAccelerometer(t0, 0.1, 0.2, 0.98),
		sensor.NewHeartRate(t0+500, 141),
		sensor.NewCadence(t0+700, 86),
		sensor.NewWheelSpeed(t0+900, 12),
		sensor.NewPower(t0+1000, 215),
		sensor.NewFootPod(t0+1200, 1.05, 3.4),
	}
	h := Header{Type: "Running", StartMS: t0, EndMS: t0 + 5000, Laps: []int64{t0 + 3000, t0}}

	bf := buffer.NewBufferFile()
	n, err := Write(bf, h, seq(readings...))
	require.NoError(t, err)
	assert.Equal(t, len(readings), n)

	gotHeader, got, err := Decode(bf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, Header{Type: "Running", StartMS: t0, EndMS: t0 + 5000, Laps: []int64{t0, t0 + 3000}}, gotHeader)
	if diff := cmp.Diff(readings, got); diff != "" {
		t.Errorf("readings mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSortsReadings(t *testing.T) {
	bf := buffer.NewBufferFile()
	_, err := Write(bf, Header{Type: "Cycling", StartMS: t0, EndMS: t0 + 2000},
		seq(sensor.NewPower(t0+2000, 200), sensor.NewPower(t0, 180), sensor.NewPower(t0+1000, 190)))
	require.NoError(t, err)

	_, got, err := Decode(bf.Bytes())
	require.NoError(t, err)
	times := make([]int64, 0, len(got))
	for _, r := range got {
		times = append(times, r.Time)
	}
	assert.True(t, slices.IsSorted(times), "%v", times)
}

func TestRowKeepsOnlyKindChannels(t *testing.T) {
	row := NewRow(sensor.NewHeartRate(t0, 150))
	assert.Equal(t, sensor.HeartRate.String(), row.Kind)
	require.NotNil(t, row.BPM)
	assert.Equal(t, 150.0, *row.BPM)
	assert.Nil(t, row.Latitude)
	assert.Nil(t, row.Watts)
	assert.Nil(t, row.ActivityType)

	r, err := row.Reading()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{sensor.ChanBPM: 150}, r.Values)

	_, err = Row{Kind: "barometer"}.Reading()
	assert.Error(t, err)
}

func TestWriteStopsOnReadError(t *testing.T) {
	boom := errors.New("read failed")
	readings := func(yield func(sensor.Reading, error) bool) {
		if !yield(sensor.NewHeartRate(t0, 120), nil) {
			return
		}
		yield(sensor.Reading{}, boom)
	}
	n, err := Write(buffer.NewBufferFile(), Header{Type: "Running", StartMS: t0, EndMS: t0}, readings)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}

func TestDecodeRejectsFilesWithoutMarkers(t *testing.T) {
	_, _, err := Decode([]byte("not parquet"))
	assert.Error(t, err)
}
