// Package handlers serves the daemon's operational HTTP endpoints: health,
// liveness and readiness probes, build information, a status summary and
// Prometheus metrics. Wallpaper operations are driven by the scheduler and
// the wallctl CLI, not over HTTP.
package handlers
