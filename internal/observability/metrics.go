// Package observability exposes Prometheus metrics for the activity engine,
// the importer and the plan generator.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	readingsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainlog",
		Subsystem: "engine",
		Name:      "readings_processed_total",
		Help:      "Sensor readings applied to the current activity, labeled by sensor kind.",
	}, []string{"kind"})

	rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainlog",
		Subsystem: "engine",
		Name:      "readings_rejected_total",
		Help:      "Sensor readings not applied, labeled by reason.",
	}, []string{"reason"})

	storageErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainlog",
		Subsystem: "engine",
		Name:      "storage_errors_total",
		Help:      "Persistence failures reported by the engine, labeled by operation.",
	}, []string{"op"})

	activityStateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainlog",
		Subsystem: "engine",
		Name:      "state",
		Help:      "Numeric state of the current activity (0 uninitialized .. 5 orphaned).",
	})

	activitiesStopped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trainlog",
		Subsystem: "engine",
		Name:      "activities_stopped_total",
		Help:      "Activities stopped and summarised.",
	})

	lastStoppedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trainlog",
		Subsystem: "engine",
		Name:      "last_activity_stopped_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity stop.",
	})

	importCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trainlog",
		Subsystem: "importer",
		Name:      "files_total",
		Help:      "Imported files, labeled by result (imported, duplicate, failed).",
	}, []string{"result"})

	planDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trainlog",
		Subsystem: "plan",
		Name:      "generate_duration_seconds",
		Help:      "Time spent generating a training week.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	planIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trainlog",
		Subsystem: "plan",
		Name:      "iterations",
		Help:      "Iterations used to balance a generated week.",
		Buckets:   prometheus.LinearBuckets(1, 1, 6),
	})
)

func init() {
	prometheus.MustRegister(readingsCounter, rejectedCounter, storageErrorCounter, activityStateGauge,
		activitiesStopped, lastStoppedGauge, importCounter, planDuration, planIterations)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func RecordReading(kind string) { readingsCounter.WithLabelValues(kind).Inc() }
func RecordRejected(reason string) { rejectedCounter.WithLabelValues(reason).Inc() }
func RecordStorageError(op string) { storageErrorCounter.WithLabelValues(op).Inc() }
func RecordState(state int) { activityStateGauge.Set(float64(state)) }
func RecordImport(result string) { importCounter.WithLabelValues(result).Inc() }
func RecordPlanIterations(n int) { planIterations.Observe(float64(n)) }
func RecordPlanDuration(d time.Duration) { planDuration.Observe(d.Seconds()) }

// RecordActivityStopped bumps the stop counter and watermark.
func RecordActivityStopped(ts time.Time) {
	activitiesStopped.Inc()
	if ts.IsZero() {
		return
	}
	lastStoppedGauge.Set(float64(ts.Unix()))
}
