package handlers

import (
	"net/http"

	"wallswitch/internal/database"
	"wallswitch/internal/indexer"
)

// StatusResponse summarizes the catalog and the background machinery.
type StatusResponse struct {
	Catalog database.Stats `json:"catalog"`
	Refresh indexer.Status `json:"refresh"`
	Tasks   []string       `json:"tasks"`
	Locks   []string       `json:"locks"`
}

// GetStatus returns catalog statistics, refresh status, scheduled tasks
// and held locks.
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		writeJSONError(w, "failed to compute stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, StatusResponse{
		Catalog: stats,
		Refresh: h.refresh.Status(),
		Tasks:   nonNil(h.tasks.Keys()),
		Locks:   nonNil(h.locks.Snapshot()),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
