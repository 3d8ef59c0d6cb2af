package coordinator

import (
	"errors"
	"sort"
	"sync"

	"wallswitch/internal/metrics"
)

// ErrLocked is returned when a lock is already held.
var ErrLocked = errors.New("lock already held")

// Lock names shared by the synchronizer, scheduler and catalog jobs.
const (
	LockRefreshDirectory = "refreshDirectory"
	LockHandleQuality    = "handleQuality"
	LockAutoDownload     = "autoDownload"
	LockAutoCleanup      = "autoCleanup"
)

// Locks is a registry of named non-blocking locks. Acquiring a held lock
// fails immediately instead of waiting.
type Locks struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocks creates an empty lock registry.
func NewLocks() *Locks {
	return &Locks{held: make(map[string]struct{})}
}

// TryAcquire takes the lock and reports whether it was free.
func (l *Locks) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		metrics.LockRejectionsTotal.WithLabelValues(key).Inc()
		return false
	}
	l.held[key] = struct{}{}
	return true
}

// Release frees the lock. Releasing a free lock is a no-op.
func (l *Locks) Release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

// Held reports whether the lock is taken.
func (l *Locks) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

// Snapshot returns the names of held locks in sorted order.
func (l *Locks) Snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, 0, len(l.held))
	for k := range l.held {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Guard runs fn while holding key and always releases it, even if fn
// panics. It returns ErrLocked without running fn when key is held.
func (l *Locks) Guard(key string, fn func() error) error {
	if !l.TryAcquire(key) {
		return ErrLocked
	}
	defer l.Release(key)
	return fn()
}
