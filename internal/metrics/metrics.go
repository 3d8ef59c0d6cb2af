package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_db_queries_total",
			Help: "Total number of catalog queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallswitch_db_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallswitch_db_transaction_duration_seconds",
			Help:    "Catalog transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"outcome"},
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallswitch_db_rows_affected",
			Help:    "Rows affected by catalog write operations",
			Buckets: []float64{1, 10, 100, 500, 1000, 5000, 10000, 50000},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallswitch_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Scanner worker metrics
var (
	ScanRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_scan_runs_total",
			Help: "Total number of directory scans by outcome",
		},
		[]string{"status"}, // "success", "fail", "rejected", "worker_exited"
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wallswitch_scan_duration_seconds",
			Help:    "Directory scan duration in seconds, walk plus metric probing",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	ScanFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_scan_files_total",
			Help: "Files seen by the scanner by classification",
		},
		[]string{"kind"}, // "new", "modified", "unchanged", "missing"
	)

	ScanInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallswitch_scan_inserted_total",
			Help: "Resources inserted into the catalog by directory scans",
		},
	)

	ScanRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallswitch_scan_running",
			Help: "Whether a directory scan is in flight (1 = running, 0 = idle)",
		},
	)

	WorkerRestartsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallswitch_worker_restarts_total",
			Help: "Number of times the scanner worker exited and was restarted",
		},
	)

	MetricProbeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_metric_probe_total",
			Help: "Image metric probes by decoder and status",
		},
		[]string{"decoder", "status"},
	)
)

// Quality backfill metrics
var (
	QualityBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_quality_batches_total",
			Help: "Quality backfill sub-batches by outcome",
		},
		[]string{"status"},
	)

	QualityUpdatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallswitch_quality_updated_total",
			Help: "Resources whose image metrics were filled by the backfill",
		},
	)

	QualityPage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallswitch_quality_page",
			Help: "Current page of the quality backfill cycle",
		},
	)
)

// Selection metrics
var (
	SelectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_selections_total",
			Help: "Wallpaper selections by mode and outcome",
		},
		[]string{"mode", "status"}, // mode: random|sequential|previous|download
	)

	SelectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallswitch_selection_duration_seconds",
			Help:    "Time spent choosing and applying a wallpaper",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"mode"},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_downloads_total",
			Help: "Remote item downloads by source and status",
		},
		[]string{"source", "status"}, // status: created|reused|error
	)
)

// Coordinator metrics
var (
	TaskRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_task_runs_total",
			Help: "Scheduled task ticks by task key and outcome",
		},
		[]string{"task", "status"}, // status: ok|error|skipped
	)

	LockRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_lock_rejections_total",
			Help: "Lock acquisitions rejected because the lock was already held",
		},
		[]string{"lock"},
	)
)

// Filesystem metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_filesystem_retry_attempts_total",
			Help: "Filesystem operation retries",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation"},
	)
)

// Catalog gauges
var (
	CatalogResourcesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wallswitch_catalog_resources_total",
			Help: "Catalogued resources by file type",
		},
		[]string{"type"},
	)

	CatalogFavoritesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallswitch_catalog_favorites_total",
			Help: "Number of favorite resources",
		},
	)

	CatalogPrivacyTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallswitch_catalog_privacy_total",
			Help: "Number of privacy-excluded resources",
		},
	)

	CatalogUnscoredTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallswitch_catalog_unscored_total",
			Help: "Image resources still waiting for metric computation",
		},
	)

	CatalogHistoryTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallswitch_catalog_history_total",
			Help: "Rows in the wallpaper history log",
		},
	)
)

// Ops HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallswitch_http_requests_total",
			Help: "Requests served by the ops server",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallswitch_http_request_duration_seconds",
			Help:    "Ops server request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wallswitch_http_requests_in_flight",
			Help: "Ops server requests currently being served",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wallswitch_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
