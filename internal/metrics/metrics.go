// Package metrics exposes Prometheus instruments for the ingestion pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rowsProcessed tracks successfully normalized rows per partner and type.
	rowsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_rows_processed_total",
		Help: "Total number of successfully normalized rows by partner and record type",
	}, []string{"partner", "type"})

	// rowsSkipped tracks historical rows dropped by the date-bucket policy.
	rowsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_rows_skipped_total",
		Help: "Total number of historical rows skipped by partner and record type",
	}, []string{"partner", "type"})

	// rowErrors tracks per-row normalization and persistence failures.
	rowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_row_errors_total",
		Help: "Total number of row-level errors by partner and record type",
	}, []string{"partner", "type"})

	// dimensionsCreated tracks lazily created dimensions by kind.
	dimensionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_dimensions_created_total",
		Help: "Total number of dimensions created on first sighting, by kind",
	}, []string{"kind"})

	// batchDuration tracks end-to-end batch processing time.
	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_batch_duration_seconds",
		Help:    "Time taken to process one ingestion batch by record type",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"type"})

	// batchSize tracks the distribution of batch sizes.
	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_batch_rows_count",
		Help:    "Number of raw rows per ingestion batch",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
	})
)

// RowProcessed records one successfully normalized row
func RowProcessed(partnerID int64, recordType string) {
	rowsProcessed.WithLabelValues(partnerLabel(partnerID), recordType).Inc()
}

// RowSkipped records one historical row skipped
func RowSkipped(partnerID int64, recordType string) {
	rowsSkipped.WithLabelValues(partnerLabel(partnerID), recordType).Inc()
}

// RowError records one row-level failure
func RowError(partnerID int64, recordType string) {
	rowErrors.WithLabelValues(partnerLabel(partnerID), recordType).Inc()
}

// DimensionCreated records a dimension created on first sighting
func DimensionCreated(kind string) {
	dimensionsCreated.WithLabelValues(kind).Inc()
}

// ObserveBatch records the size and duration of one batch
func ObserveBatch(recordType string, rows int, elapsed time.Duration) {
	batchSize.Observe(float64(rows))
	batchDuration.WithLabelValues(recordType).Observe(elapsed.Seconds())
}

func partnerLabel(partnerID int64) string {
	return strconv.FormatInt(partnerID, 10)
}
