// Package archive defines the Parquet layout of an exported activity.
//
// A file holds one activity as a flat table: a start row carrying the
// activity type, one row per sensor reading, one row per lap and an end
// row. Channels a row's kind does not carry are null.
package archive

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/banshee-data/trainlog/internal/sensor"
)

// Row kinds that are not sensor kinds.
const (
	KindStart = "start"
	KindEnd   = "end"
	KindLap   = "lap"
)

// Header is the activity-level part of a file. Times are unix ms.
type Header struct {
	Type    string
	StartMS int64
	EndMS   int64
	Laps    []int64
}

// Row is one line of the table.
type Row struct {
	TimeMS             int64    `parquet:"name=time_ms, type=INT64"`
	Kind               string   `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ActivityType       *string  `parquet:"name=activity_type, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Latitude           *float64 `parquet:"name=latitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Longitude          *float64 `parquet:"name=longitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Altitude           *float64 `parquet:"name=altitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	HorizontalAccuracy *float64 `parquet:"name=horizontal_accuracy, type=DOUBLE, repetitiontype=OPTIONAL"`
	VerticalAccuracy   *float64 `parquet:"name=vertical_accuracy, type=DOUBLE, repetitiontype=OPTIONAL"`
	X                  *float64 `parquet:"name=x, type=DOUBLE, repetitiontype=OPTIONAL"`
	Y                  *float64 `parquet:"name=y, type=DOUBLE, repetitiontype=OPTIONAL"`
	Z                  *float64 `parquet:"name=z, type=DOUBLE, repetitiontype=OPTIONAL"`
	BPM                *float64 `parquet:"name=bpm, type=DOUBLE, repetitiontype=OPTIONAL"`
	RPM                *float64 `parquet:"name=rpm, type=DOUBLE, repetitiontype=OPTIONAL"`
	Revolutions        *float64 `parquet:"name=revolutions, type=DOUBLE, repetitiontype=OPTIONAL"`
	Watts              *float64 `parquet:"name=watts, type=DOUBLE, repetitiontype=OPTIONAL"`
	StrideLength       *float64 `parquet:"name=stride_length, type=DOUBLE, repetitiontype=OPTIONAL"`
	RunDistance        *float64 `parquet:"name=run_distance, type=DOUBLE, repetitiontype=OPTIONAL"`
}

func (row *Row) channels() map[string]**float64 {
	return map[string]**float64{
		sensor.ChanLatitude:           &row.Latitude,
		sensor.ChanLongitude:          &row.Longitude,
		sensor.ChanAltitude:           &row.Altitude,
		sensor.ChanHorizontalAccuracy: &row.HorizontalAccuracy,
		sensor.ChanVerticalAccuracy:   &row.VerticalAccuracy,
		sensor.ChanX:                  &row.X,
		sensor.ChanY:                  &row.Y,
		sensor.ChanZ:                  &row.Z,
		sensor.ChanBPM:                &row.BPM,
		sensor.ChanRPM:                &row.RPM,
		sensor.ChanRevolutions:        &row.Revolutions,
		sensor.ChanWatts:              &row.Watts,
		sensor.ChanStrideLength:       &row.StrideLength,
		sensor.ChanRunDistance:        &row.RunDistance,
	}
}

// NewRow converts a reading.
func NewRow(r sensor.Reading) Row {
	row := Row{TimeMS: r.Time, Kind: r.Kind.String()}
	fields := row.channels()
	for _, ch := range r.Kind.Channels() {
		v := r.Values[ch]
		*fields[ch] = &v
	}
	return row
}

// Reading converts a sensor row back. Null channels are left out.
func (row Row) Reading() (sensor.Reading, error) {
	kind, err := sensor.ParseKind(row.Kind)
	if err != nil {
		return sensor.Reading{}, err
	}
	r := sensor.Reading{Kind: kind, Time: row.TimeMS, Values: make(map[string]float64)}
	fields := row.channels()
	for _, ch := range kind.Channels() {
		if p := *fields[ch]; p != nil {
			r.Values[ch] = *p
		}
	}
	return r, nil
}

// Write stores h and readings in pf, returning the number of readings
// written. pf is not closed.
func Write(pf source.ParquetFile, h Header, readings iter.Seq2[sensor.Reading, error]) (int, error) {
	pw, err := writer.NewParquetWriter(pf, new(Row), 4)
	if err != nil {
		return 0, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	write := func(row Row) error {
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("write parquet row: %w", err)
		}
		return nil
	}
	fail := func(err error) error {
		_ = pw.WriteStop()
		return err
	}

	activityType := h.Type
	if err := write(Row{TimeMS: h.StartMS, Kind: KindStart, ActivityType: &activityType}); err != nil {
		return 0, fail(err)
	}
	n := 0
	for r, err := range readings {
		if err != nil {
			return n, fail(err)
		}
		if err := write(NewRow(r)); err != nil {
			return n, fail(err)
		}
		n++
	}
	for _, lap := range h.Laps {
		if err := write(Row{TimeMS: lap, Kind: KindLap}); err != nil {
			return n, fail(err)
		}
	}
	if err := write(Row{TimeMS: h.EndMS, Kind: KindEnd}); err != nil {
		return n, fail(err)
	}
	if err := pw.WriteStop(); err != nil {
		return n, fmt.Errorf("finish parquet file: %w", err)
	}
	return n, nil
}

// Decode parses a whole file held in memory.
func Decode(data []byte) (Header, []sensor.Reading, error) {
	return Read(buffer.NewBufferFileFromBytes(data))
}

// Read parses the rows of pf. Readings are returned in time order.
func Read(pf source.ParquetFile) (Header, []sensor.Reading, error) {
	var h Header
	pr, err := reader.NewParquetReader(pf, new(Row), 1)
	if err != nil {
		return h, nil, fmt.Errorf("open parquet file: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]Row, pr.GetNumRows())
	if err := pr.Read(&rows); err != nil {
		return h, nil, fmt.Errorf("read parquet rows: %w", err)
	}

	var readings []sensor.Reading
	var started, ended bool
	for _, row := range rows {
		switch row.Kind {
		case KindStart:
			started = true
			h.StartMS = row.TimeMS
			if row.ActivityType != nil {
				h.Type = *row.ActivityType
			}
		case KindEnd:
			ended = true
			h.EndMS = row.TimeMS
		case KindLap:
			h.Laps = append(h.Laps, row.TimeMS)
		default:
			r, err := row.Reading()
			if err != nil {
				return h, nil, err
			}
			readings = append(readings, r)
		}
	}
	if !started || !ended {
		return h, nil, errors.New("parquet file has no start or end row")
	}
	slices.SortStableFunc(readings, func(a, b sensor.Reading) int { return cmp.Compare(a.Time, b.Time) })
	slices.Sort(h.Laps)
	return h, readings, nil
}
