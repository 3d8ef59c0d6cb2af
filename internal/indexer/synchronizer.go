package indexer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wallswitch/internal/coordinator"
	"wallswitch/internal/database"
	"wallswitch/internal/logging"
	"wallswitch/internal/scanner"
	"wallswitch/internal/settings"
)

var log = logging.Component("indexer")

const (
	// Delay between quality sub-batches so the worker is not saturated
	defaultStagger = 500 * time.Millisecond

	// Quality page size when settings leave it unset
	defaultQualityPageSize = 100
)

var (
	// ErrNoFolders means no configured resource folder exists on disk.
	ErrNoFolders = errors.New("no local resource folder exists")
	// ErrNoExtensions means the extension allow-list is empty.
	ErrNoExtensions = errors.New("no allowed file extensions configured")

	// ErrBusy rejects a refresh while another is in flight.
	ErrBusy = fmt.Errorf("directory refresh already running: %w", coordinator.ErrLocked)
	// ErrQualityBusy rejects a backfill pass while another is in flight.
	ErrQualityBusy = fmt.Errorf("quality backfill already running: %w", coordinator.ErrLocked)
)

// ConfigError reports settings that make a refresh impossible.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "invalid refresh configuration: " + e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// Scanner is the worker side of a refresh or backfill.
type Scanner interface {
	Scan(ctx context.Context, req scanner.ScanRequest) (scanner.Response, error)
	ComputeQuality(ctx context.Context, items []database.UnscoredItem) ([]database.MetricsUpdate, error)
}

// SettingsSource supplies the current settings snapshot.
type SettingsSource interface {
	Get() settings.Settings
}

// Synchronizer merges scanner results into the catalog.
type Synchronizer struct {
	db       *database.Database
	scanner  Scanner
	settings SettingsSource
	locks    *coordinator.Locks

	// OnChange is called after a manual refresh that inserted or updated rows.
	OnChange func(RefreshResult)

	// Stagger is the pause between quality sub-batches.
	Stagger time.Duration

	// qualityPage is only touched while the handleQuality lock is held.
	qualityPage int

	statusMu sync.RWMutex
	status   Status
}

// Status describes the last refresh for health reporting.
type Status struct {
	Refreshing   bool          `json:"refreshing"`
	LastRefresh  time.Time     `json:"lastRefresh,omitempty"`
	LastInserted int           `json:"lastInserted"`
	LastUpdated  int           `json:"lastUpdated"`
	LastTotal    int           `json:"lastTotal"`
	LastDuration time.Duration `json:"lastDuration"`
	LastError    string        `json:"lastError,omitempty"`
}

// New creates a Synchronizer.
func New(db *database.Database, sc Scanner, st SettingsSource, locks *coordinator.Locks) *Synchronizer {
	return &Synchronizer{
		db:          db,
		scanner:     sc,
		settings:    st,
		locks:       locks,
		Stagger:     defaultStagger,
		qualityPage: 1,
	}
}

// Status returns the last refresh outcome.
func (s *Synchronizer) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// HasRefreshed reports whether a refresh has completed successfully.
func (s *Synchronizer) HasRefreshed() bool {
	st := s.Status()
	return !st.LastRefresh.IsZero() && st.LastError == ""
}

func (s *Synchronizer) setRefreshing(v bool) {
	s.statusMu.Lock()
	s.status.Refreshing = v
	s.statusMu.Unlock()
}

func (s *Synchronizer) recordRefresh(res RefreshResult, err error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status.LastRefresh = time.Now()
	s.status.LastDuration = res.Duration
	if err != nil {
		s.status.LastError = err.Error()
		return
	}
	s.status.LastError = ""
	s.status.LastInserted = res.Inserted
	s.status.LastUpdated = res.Updated
	s.status.LastTotal = res.Total
}
