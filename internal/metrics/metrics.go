// Package metrics holds the Prometheus collectors shared by the transform
// pipeline and the web surface.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RowsExtracted counts rows produced by the extractor, by resource.
	RowsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubestats_rows_extracted_total",
			Help: "Rows extracted from raw snapshots, by resource.",
		},
		[]string{"resource"},
	)

	// RecoveredRecords counts per-record substitutions, by kind of defect.
	RecoveredRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubestats_recovered_records_total",
			Help: "Records whose malformed fields were substituted instead of failing the run.",
		},
		[]string{"kind"},
	)

	// TransformDuration observes wall time of complete transform runs.
	TransformDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tubestats_transform_duration_seconds",
			Help:    "Duration of transform runs.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// TransformRuns counts transform runs by outcome (succeeded, failed).
	TransformRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubestats_transform_runs_total",
			Help: "Transform runs, by outcome.",
		},
		[]string{"outcome"},
	)

	// RequestDuration observes HTTP handler latency.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubestats_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by route, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)

// Register adds every collector to reg. Collectors already present are left
// alone, so the same registry can be passed more than once.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{RowsExtracted, RecoveredRecords, TransformDuration, TransformRuns, RequestDuration} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
