package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RowsImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bulk_import_rows_imported_total",
		Help: "Rows validated and durably written.",
	})

	RowsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bulk_import_rows_skipped_total",
		Help: "Rows rejected by validation or lost to a chunk write failure.",
	})

	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bulk_import_jobs_completed_total",
		Help: "Import jobs that reached the completed state.",
	})

	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bulk_import_jobs_failed_total",
		Help: "Import jobs that reached the failed state.",
	})

	ChunkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bulk_import_chunk_duration_seconds",
		Help:    "Wall-clock time to validate and write one chunk.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)
