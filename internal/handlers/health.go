package handlers

import (
	"net/http"
	"runtime"
	"time"

	"wallswitch/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	Ready       bool   `json:"ready"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	Refreshing  bool   `json:"refreshing"`
	LastRefresh string `json:"lastRefresh,omitempty"`
	LastError   string `json:"lastError,omitempty"`

	Worker         string `json:"worker"`
	WorkerRestarts int    `json:"workerRestarts"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the daemon. The daemon is ready
// once a directory refresh has completed, even if it failed; a failed last
// refresh reports degraded.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	st := h.refresh.Status()
	ready := !st.LastRefresh.IsZero()

	response := HealthResponse{
		Ready:          ready,
		Version:        startup.Version,
		Uptime:         time.Since(h.started).Round(time.Second).String(),
		Refreshing:     st.Refreshing,
		LastError:      st.LastError,
		Worker:         h.worker.State().String(),
		WorkerRestarts: h.worker.Restarts(),
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}

	switch {
	case !ready:
		response.Status = statusStarting
	case st.LastError != "":
		response.Status = statusDegraded
	default:
		response.Status = statusHealthy
	}

	if ready {
		response.LastRefresh = st.LastRefresh.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 once the first directory refresh has finished
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !h.refresh.Status().LastRefresh.IsZero() {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
		})
	}
}
