package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wallswitch/internal/database"
	"wallswitch/internal/indexer"
	"wallswitch/internal/scanner"
)

type fakeRefresh struct{ st indexer.Status }

func (f fakeRefresh) Status() indexer.Status { return f.st }

type fakeWorker struct{}

func (fakeWorker) State() scanner.State { return scanner.StateIdle }
func (fakeWorker) Restarts() int        { return 2 }

type fakeStats struct {
	stats database.Stats
	err   error
}

func (f fakeStats) Stats(context.Context) (database.Stats, error) { return f.stats, f.err }

type fakeKeys []string

func (f fakeKeys) Keys() []string     { return f }
func (f fakeKeys) Snapshot() []string { return f }

func newTestHandlers(st indexer.Status, stats fakeStats) *Handlers {
	return New(Deps{
		Refresh: fakeRefresh{st},
		Worker:  fakeWorker{},
		Stats:   stats,
		Tasks:   fakeKeys{"autoSwitch"},
		Locks:   fakeKeys(nil),
	})
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		status     indexer.Status
		wantCode   int
		wantStatus string
	}{
		{"starting", indexer.Status{}, http.StatusServiceUnavailable, statusStarting},
		{"healthy", indexer.Status{LastRefresh: time.Now()}, http.StatusOK, statusHealthy},
		{"degraded", indexer.Status{LastRefresh: time.Now(), LastError: "boom"}, http.StatusOK, statusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(tt.status, fakeStats{})
			rec := httptest.NewRecorder()
			h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if resp.Worker != "idle" || resp.WorkerRestarts != 2 {
				t.Errorf("worker = %q/%d", resp.Worker, resp.WorkerRestarts)
			}
		})
	}
}

func TestLivenessCheckHead(t *testing.T) {
	h := newTestHandlers(indexer.Status{}, fakeStats{})
	rec := httptest.NewRecorder()
	h.LivenessCheck(rec, httptest.NewRequest(http.MethodHead, "/livez", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("code = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD body = %q, want empty", rec.Body.String())
	}
}

func TestReadinessCheck(t *testing.T) {
	h := newTestHandlers(indexer.Status{}, fakeStats{})
	rec := httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code before refresh = %d, want 503", rec.Code)
	}

	h = newTestHandlers(indexer.Status{LastRefresh: time.Now()}, fakeStats{})
	rec = httptest.NewRecorder()
	h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("code after refresh = %d, want 200", rec.Code)
	}
}

func TestGetStatus(t *testing.T) {
	h := newTestHandlers(indexer.Status{LastInserted: 4}, fakeStats{stats: database.Stats{TotalImages: 9}})
	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Catalog.TotalImages != 9 || resp.Refresh.LastInserted != 4 {
		t.Errorf("resp = %+v", resp)
	}
	if len(resp.Tasks) != 1 || resp.Locks == nil {
		t.Errorf("tasks = %v, locks = %v", resp.Tasks, resp.Locks)
	}
}

func TestGetStatusError(t *testing.T) {
	h := newTestHandlers(indexer.Status{}, fakeStats{err: errors.New("db closed")})
	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "failed to compute stats") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestGetVersion(t *testing.T) {
	h := newTestHandlers(indexer.Status{}, fakeStats{})
	rec := httptest.NewRecorder()
	h.GetVersion(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q", got)
	}
	if !strings.Contains(rec.Body.String(), `"goVersion"`) {
		t.Errorf("body = %q", rec.Body.String())
	}
}
