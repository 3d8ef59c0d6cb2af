package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallswitch/internal/coordinator"
	"wallswitch/internal/database"
	"wallswitch/internal/settings"
)

// ErrDownloadBusy rejects an auto-download tick while one is running.
var ErrDownloadBusy = fmt.Errorf("auto download already running: %w", coordinator.ErrLocked)

// ErrCleanupBusy rejects a cleanup tick while one is running.
var ErrCleanupBusy = fmt.Errorf("auto cleanup already running: %w", coordinator.ErrLocked)

// SettingsSource supplies the current settings snapshot.
type SettingsSource interface {
	Get() settings.Settings
}

// AutoDownloader fetches one page from the configured source per run.
type AutoDownloader struct {
	registry   *Registry
	downloader *Downloader
	settings   SettingsSource
	locks      *coordinator.Locks

	// page is only touched while the autoDownload lock is held.
	page int
}

// NewAutoDownloader creates an AutoDownloader starting at page 1.
func NewAutoDownloader(reg *Registry, dl *Downloader, st SettingsSource, locks *coordinator.Locks) *AutoDownloader {
	return &AutoDownloader{registry: reg, downloader: dl, settings: st, locks: locks, page: 1}
}

// Run downloads the next page of results and returns how many new
// resources were catalogued. A page shorter than the page size wraps the
// next run back to page 1. No configured source makes Run a no-op.
func (a *AutoDownloader) Run(ctx context.Context) (int, error) {
	if !a.locks.TryAcquire(coordinator.LockAutoDownload) {
		return 0, ErrDownloadBusy
	}
	defer a.locks.Release(coordinator.LockAutoDownload)

	cfg := a.settings.Get()
	if cfg.DownloadSource == "" {
		return 0, nil
	}
	src, err := a.registry.Get(cfg.DownloadSource)
	if err != nil {
		return 0, err
	}

	pageSize := cfg.DownloadPageSize
	if pageSize <= 0 {
		pageSize = settings.Default().DownloadPageSize
	}

	page := a.page
	res, err := src.Search(ctx, Query{
		Keywords:    cfg.RemoteKeywords,
		Orientation: cfg.OrientationFilter(),
		StartPage:   page,
		PageSize:    pageSize,
		SecretKey:   cfg.RemoteSecretKeys[src.Name()],
	})
	if err != nil {
		return 0, fmt.Errorf("search %s page %d: %w", src.Name(), page, err)
	}
	if len(res.List) < pageSize {
		a.page = 1
	} else {
		a.page = page + 1
	}

	created := 0
	var errs []error
	for _, it := range res.List {
		_, isNew, err := a.downloader.Download(ctx, src.Name(), it)
		if err != nil {
			log.Warn("Download from %s failed: %v", src.Name(), err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if isNew {
			created++
		}
	}

	log.Info("Auto download from %s page %d: %d new of %d item(s)", src.Name(), page, created, len(res.List))
	return created, errors.Join(errs...)
}

// Deleter removes a resource and its file.
type Deleter interface {
	DeleteResource(ctx context.Context, id int64) (database.Resource, error)
}

// Cleaner removes stale downloads.
type Cleaner struct {
	db      *database.Database
	deleter Deleter
	locks   *coordinator.Locks

	// Now is the clock used for the retention cutoff.
	Now func() time.Time
}

const cleanupBatch = 200

// NewCleaner creates a Cleaner.
func NewCleaner(db *database.Database, del Deleter, locks *coordinator.Locks) *Cleaner {
	return &Cleaner{db: db, deleter: del, locks: locks, Now: time.Now}
}

// Run deletes downloaded resources older than keepDays that are neither
// favorites nor privacy-marked. Local resources are never touched.
func (c *Cleaner) Run(ctx context.Context, keepDays int) (int, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	if !c.locks.TryAcquire(coordinator.LockAutoCleanup) {
		return 0, ErrCleanupBusy
	}
	defer c.locks.Release(coordinator.LockAutoCleanup)

	cutoff := c.Now().Add(-time.Duration(keepDays) * 24 * time.Hour).UnixMilli()

	deleted := 0
	var errs []error
	failed := make(map[int64]struct{})
	for {
		limit := cleanupBatch + len(failed)
		list, err := c.db.ListExpiredDownloads(ctx, cutoff, limit)
		if err != nil {
			return deleted, fmt.Errorf("list expired downloads: %w", err)
		}

		progressed := false
		for _, r := range list {
			if _, skip := failed[r.ID]; skip {
				continue
			}
			if _, err := c.deleter.DeleteResource(ctx, r.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
				failed[r.ID] = struct{}{}
				errs = append(errs, fmt.Errorf("delete %s: %w", r.FilePath, err))
				continue
			}
			deleted++
			progressed = true
		}

		if !progressed || len(list) < limit || ctx.Err() != nil {
			break
		}
	}

	if deleted > 0 {
		log.Info("Cleanup removed %d download(s) older than %d day(s)", deleted, keepDays)
	}
	return deleted, errors.Join(errs...)
}
