package selection

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"wallswitch/internal/database"
	"wallswitch/internal/filesystem"
	"wallswitch/internal/logging"
	"wallswitch/internal/metrics"
	"wallswitch/internal/remote"
	"wallswitch/internal/settings"
)

var log = logging.Component("selection")

// recentWindow is how many of the latest history entries random and
// sequential picks try to avoid.
const recentWindow = 10

var (
	// ErrNoCandidate means the scope and filters match nothing.
	ErrNoCandidate = errors.New("no matching wallpaper")
	// ErrSameAsPrevious means the only pick was the current wallpaper.
	ErrSameAsPrevious = errors.New("no wallpaper other than the current one")
	// ErrFileMissing means the chosen resource's file is gone.
	ErrFileMissing = errors.New("wallpaper file missing")
	// ErrNoDownloader means download-and-select is not configured.
	ErrNoDownloader = errors.New("no downloader configured")
)

// Setter applies a wallpaper to the desktop.
type Setter interface {
	SetWallpaper(ctx context.Context, r database.Resource) error
}

// SettingsSource supplies the current settings snapshot.
type SettingsSource interface {
	Get() settings.Settings
}

// Downloader persists a remote item as a resource.
type Downloader interface {
	Download(ctx context.Context, source string, it remote.Item) (database.Resource, bool, error)
}

// Result is the outcome of a selection. Err is set whenever Success is
// false.
type Result struct {
	Success  bool               `json:"success"`
	Resource *database.Resource `json:"resource,omitempty"`
	Reason   string             `json:"reason,omitempty"`
	Err      error              `json:"-"`
}

func succeeded(r database.Resource) Result {
	return Result{Success: true, Resource: &r}
}

func failed(err error) Result {
	return Result{Reason: err.Error(), Err: err}
}

// NoCandidate reports whether the failure only means there was nothing
// to pick.
func (r Result) NoCandidate() bool {
	return errors.Is(r.Err, ErrNoCandidate) || errors.Is(r.Err, ErrSameAsPrevious)
}

// Options tune a forward selection.
type Options struct {
	// DryRun picks a wallpaper without applying it or recording history.
	DryRun bool
}

// Engine picks wallpapers. Next and Prev are serialized.
type Engine struct {
	db         *database.Database
	settings   SettingsSource
	setter     Setter
	downloader Downloader

	// Intn returns a uniform int in [0, n).
	Intn func(n int) int

	mu     sync.Mutex
	cursor int
}

// New creates an Engine.
func New(db *database.Database, st SettingsSource, setter Setter) *Engine {
	return &Engine{db: db, settings: st, setter: setter, Intn: rand.IntN}
}

// SetDownloader enables DownloadAndSelect.
func (e *Engine) SetDownloader(d Downloader) {
	e.downloader = d
}

// Cursor returns the current "previous" position; 0 is the latest entry.
func (e *Engine) Cursor() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cursor
}

// Next picks the next wallpaper under the configured mode, applies it,
// records it in history and resets the previous cursor.
func (e *Engine) Next(ctx context.Context, opts Options) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg := e.settings.Get()
	mode := "random"
	if cfg.Sequential() {
		mode = "sequential"
	}

	start := time.Now()
	res := e.next(ctx, cfg, opts)
	observe(mode, start, res)
	return res
}

func (e *Engine) next(ctx context.Context, cfg settings.Settings, opts Options) Result {
	scope, f := cfg.Scope(), cfg.Filters()

	var (
		r   database.Resource
		err error
	)
	if cfg.Sequential() {
		r, err = e.pickSequential(ctx, scope, f, cfg.Order())
	} else {
		r, err = e.pickRandom(ctx, scope, f)
	}
	if err != nil {
		return failed(err)
	}
	if opts.DryRun {
		return succeeded(r)
	}
	return e.apply(ctx, r, true)
}

func (e *Engine) pickRandom(ctx context.Context, scope database.Scope, f database.Filters) (database.Resource, error) {
	recent, err := e.db.RecentHistoryIDs(ctx, recentWindow)
	if err != nil {
		return database.Resource{}, fmt.Errorf("recent history: %w", err)
	}

	exclude := recent
	n, err := e.db.CountCandidates(ctx, scope, f, exclude)
	if err != nil {
		return database.Resource{}, fmt.Errorf("count candidates: %w", err)
	}
	if n == 0 && len(exclude) > 0 {
		exclude = nil
		if n, err = e.db.CountCandidates(ctx, scope, f, nil); err != nil {
			return database.Resource{}, fmt.Errorf("count candidates: %w", err)
		}
	}
	if n == 0 {
		return database.Resource{}, ErrNoCandidate
	}

	r, err := e.db.RandomCandidate(ctx, scope, f, exclude, e.Intn(n))
	if errors.Is(err, database.ErrNotFound) {
		return database.Resource{}, ErrNoCandidate
	}
	if err != nil {
		return database.Resource{}, fmt.Errorf("random candidate: %w", err)
	}
	if len(recent) > 0 && r.ID == recent[0] {
		return database.Resource{}, ErrSameAsPrevious
	}
	return r, nil
}

func (e *Engine) pickSequential(ctx context.Context, scope database.Scope, f database.Filters, o database.Order) (database.Resource, error) {
	recent, err := e.db.RecentHistoryIDs(ctx, recentWindow)
	if err != nil {
		return database.Resource{}, fmt.Errorf("recent history: %w", err)
	}

	if len(recent) > 0 {
		prev := recent[0]
		key, found, err := e.db.SortKeyOf(ctx, scope, o, prev)
		if err != nil {
			return database.Resource{}, fmt.Errorf("sort key of %d: %w", prev, err)
		}
		if found {
			for _, exclude := range [][]int64{recent, nil} {
				r, err := e.db.NextInOrder(ctx, scope, f, exclude, o, key, prev)
				if err == nil {
					return r, nil
				}
				if !errors.Is(err, database.ErrNotFound) {
					return database.Resource{}, fmt.Errorf("next in order: %w", err)
				}
			}
		}
	}

	// Wrap to the first row, still preferring rows not shown recently.
	for _, exclude := range [][]int64{recent, nil} {
		r, err := e.db.FirstInOrder(ctx, scope, f, exclude, o)
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return database.Resource{}, fmt.Errorf("first in order: %w", err)
		}
		if len(exclude) == 0 {
			break
		}
	}
	return database.Resource{}, ErrNoCandidate
}

// Prev re-applies the next older history entry without recording history.
// The cursor wraps to the newest entry after the oldest one.
func (e *Engine) Prev(ctx context.Context) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	res := e.prev(ctx)
	observe("previous", start, res)
	return res
}

func (e *Engine) prev(ctx context.Context) Result {
	count, err := e.db.CountHistory(ctx)
	if err != nil {
		return failed(fmt.Errorf("count history: %w", err))
	}
	if count == 0 {
		return failed(ErrNoCandidate)
	}

	index := e.cursor + 1
	if index >= count {
		index = 0
	}
	// The cursor moves even when applying fails so a broken entry is skipped
	// on the next call.
	e.cursor = index

	r, err := e.db.HistoryAt(ctx, index)
	if errors.Is(err, database.ErrNotFound) {
		return failed(ErrNoCandidate)
	}
	if err != nil {
		return failed(fmt.Errorf("history at %d: %w", index, err))
	}
	return e.apply(ctx, r, false)
}

// Apply sets r as the wallpaper. With recordHistory it is appended to the
// history and the previous cursor is reset.
func (e *Engine) Apply(ctx context.Context, r database.Resource, recordHistory bool) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.apply(ctx, r, recordHistory)
}

func (e *Engine) apply(ctx context.Context, r database.Resource, recordHistory bool) Result {
	if _, err := filesystem.StatWithRetry(r.FilePath, filesystem.DefaultRetryConfig()); err != nil {
		return failed(fmt.Errorf("%w: %s", ErrFileMissing, r.FilePath))
	}
	if err := e.setter.SetWallpaper(ctx, r); err != nil {
		return failed(fmt.Errorf("set wallpaper: %w", err))
	}
	if recordHistory {
		if err := e.db.AppendHistory(ctx, r.ID); err != nil {
			return failed(fmt.Errorf("record history: %w", err))
		}
		e.cursor = 0
	}
	log.Info("Wallpaper set to %s (id %d)", r.FilePath, r.ID)
	return succeeded(r)
}

// DownloadAndSelect saves a remote item, reusing the catalogued row when
// the file is already known, then applies it with history.
func (e *Engine) DownloadAndSelect(ctx context.Context, source string, it remote.Item) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	res := e.downloadAndSelect(ctx, source, it)
	observe("download", start, res)
	return res
}

func (e *Engine) downloadAndSelect(ctx context.Context, source string, it remote.Item) Result {
	if e.downloader == nil {
		return failed(ErrNoDownloader)
	}
	r, _, err := e.downloader.Download(ctx, source, it)
	if err != nil {
		return failed(fmt.Errorf("download: %w", err))
	}
	return e.apply(ctx, r, true)
}

func observe(mode string, start time.Time, res Result) {
	status := "success"
	switch {
	case res.Success:
	case res.NoCandidate():
		status = "no_candidate"
	default:
		status = "error"
	}
	metrics.SelectionsTotal.WithLabelValues(mode, status).Inc()
	metrics.SelectionDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if !res.Success {
		if status == "error" {
			log.Warn("%s selection failed: %v", mode, res.Err)
		} else {
			log.Debug("%s selection found nothing: %v", mode, res.Err)
		}
	}
}
