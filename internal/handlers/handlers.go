package handlers

import (
	"context"
	"time"

	"wallswitch/internal/database"
	"wallswitch/internal/indexer"
	"wallswitch/internal/scanner"
)

// RefreshStatus reports the synchronizer's last refresh.
type RefreshStatus interface {
	Status() indexer.Status
}

// WorkerStatus reports the scanner worker state.
type WorkerStatus interface {
	State() scanner.State
	Restarts() int
}

// StatsSource returns catalog statistics.
type StatsSource interface {
	Stats(ctx context.Context) (database.Stats, error)
}

// TaskLister lists scheduled task keys.
type TaskLister interface {
	Keys() []string
}

// LockLister lists held coordinator locks.
type LockLister interface {
	Snapshot() []string
}

// Handlers serves the operational endpoints of the daemon.
type Handlers struct {
	refresh RefreshStatus
	worker  WorkerStatus
	stats   StatsSource
	tasks   TaskLister
	locks   LockLister
	started time.Time
}

// Deps groups the components Handlers reports on.
type Deps struct {
	Refresh RefreshStatus
	Worker  WorkerStatus
	Stats   StatsSource
	Tasks   TaskLister
	Locks   LockLister
}

func New(d Deps) *Handlers {
	return &Handlers{
		refresh: d.Refresh,
		worker:  d.Worker,
		stats:   d.Stats,
		tasks:   d.Tasks,
		locks:   d.Locks,
		started: time.Now(),
	}
}
