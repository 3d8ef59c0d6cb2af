// Package metrics provides Prometheus instrumentation for wallswitch.
//
// All metrics are prefixed with "wallswitch_" and registered through promauto
// at package init. Categories:
//
//   - Database: query totals and durations, transaction durations, rows affected
//   - Scanner: scan runs by outcome, scan duration, files by classification,
//     worker restarts, metric probes by decoder
//   - Quality backfill: sub-batch outcomes, updated rows, current page
//   - Selection: selections by mode and outcome, downloads by source
//   - Coordinator: scheduled task ticks, lock rejections
//   - Catalog gauges: refreshed by Collector from database statistics
//   - Ops HTTP: request totals, latency and in-flight requests
//
// InitializeMetrics pre-creates label combinations so dashboards see every
// series from the first scrape.
package metrics
