package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "fail", "rejected", "worker_exited"} {
		ScanRunsTotal.WithLabelValues(status)
	}

	for _, kind := range []string{"new", "modified", "unchanged", "missing"} {
		ScanFilesTotal.WithLabelValues(kind)
	}

	for _, decoder := range []string{"config", "imaging", "vips"} {
		MetricProbeTotal.WithLabelValues(decoder, "success")
		MetricProbeTotal.WithLabelValues(decoder, "error")
	}

	for _, status := range []string{"success", "fail"} {
		QualityBatchesTotal.WithLabelValues(status)
	}

	for _, mode := range []string{"random", "sequential", "previous", "download"} {
		SelectionsTotal.WithLabelValues(mode, "success")
		SelectionsTotal.WithLabelValues(mode, "no_candidate")
		SelectionsTotal.WithLabelValues(mode, "error")
		SelectionDuration.WithLabelValues(mode)
	}

	for _, task := range []string{"autoSwitch", "autoRefreshDirectory", "handleQuality", "autoDownload", "autoCleanup"} {
		TaskRunsTotal.WithLabelValues(task, "ok")
		TaskRunsTotal.WithLabelValues(task, "error")
		TaskRunsTotal.WithLabelValues(task, "skipped")
	}

	for _, lock := range []string{"refreshDirectory", "handleQuality", "autoDownload", "autoCleanup"} {
		LockRejectionsTotal.WithLabelValues(lock)
	}

	for _, op := range []string{"stat", "remove"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}

	for _, op := range []string{"insert_resources", "insert_resource", "get_resource", "known_files",
		"count_resources", "list_unscored", "update_metrics", "delete_resource", "list_expired",
		"add_favorite", "remove_favorite", "toggle_favorite", "is_favorite", "favorite_count",
		"add_privacy", "remove_privacy", "toggle_privacy", "is_private",
		"append_history", "recent_history", "last_history", "count_history", "history_at", "list_history",
		"search", "count_candidates", "random_candidate", "sort_key", "next_in_order", "first_in_order",
		"calculate_stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}
}
