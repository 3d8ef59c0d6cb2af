package app

import (
	"context"
	"errors"
	"time"

	"wallswitch/internal/indexer"
	"wallswitch/internal/selection"
)

// Scheduled task keys.
const (
	TaskAutoSwitch           = "autoSwitch"
	TaskAutoRefreshDirectory = "autoRefreshDirectory"
	TaskHandleQuality        = "handleQuality"
	TaskAutoDownload         = "autoDownload"
	TaskAutoCleanup          = "autoCleanup"
)

// refreshDelay runs the first directory refresh shortly after start instead
// of waiting a whole interval.
const refreshDelay = time.Second

// Intervals returns the interval of every task from the current settings.
// A zero interval disables the task.
func (a *App) Intervals() map[string]time.Duration {
	cfg := a.Settings.Get()
	return map[string]time.Duration{
		TaskAutoSwitch:           cfg.SwitchInterval.Duration,
		TaskAutoRefreshDirectory: cfg.RefreshInterval.Duration,
		TaskHandleQuality:        cfg.QualityInterval.Duration,
		TaskAutoDownload:         cfg.DownloadInterval.Duration,
		TaskAutoCleanup:          cfg.CleanupInterval.Duration,
	}
}

// Reschedule registers each task at its configured interval and cancels
// the disabled ones. Call it again after reloading settings.
func (a *App) Reschedule() error {
	tasks := map[string]func(context.Context) error{
		TaskAutoSwitch:           a.autoSwitch,
		TaskAutoRefreshDirectory: a.autoRefresh,
		TaskHandleQuality:        a.handleQuality,
		TaskAutoDownload:         a.autoDownload,
		TaskAutoCleanup:          a.autoCleanup,
	}

	for key, interval := range a.Intervals() {
		if interval <= 0 {
			a.Scheduler.Cancel(key)
			continue
		}
		var delay time.Duration
		if key == TaskAutoRefreshDirectory {
			delay = refreshDelay
		}
		if err := a.Scheduler.ScheduleTask(key, interval, tasks[key], delay); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) autoSwitch(ctx context.Context) error {
	res := a.Engine.Next(ctx, selection.Options{})
	if res.Success {
		log.Info("Switched wallpaper to %s", res.Resource.FilePath)
		return nil
	}
	if res.NoCandidate() {
		log.Debug("No wallpaper to switch to: %s", res.Reason)
		return nil
	}
	return res.Err
}

func (a *App) autoRefresh(ctx context.Context) error {
	res, err := a.Sync.RefreshDirectory(ctx, false)
	var cfgErr *indexer.ConfigError
	if errors.As(err, &cfgErr) {
		log.Debug("Skipping directory refresh: %v", err)
		return nil
	}
	if err != nil {
		return err
	}
	log.Info("Directory refresh inserted %d and updated %d of %d files", res.Inserted, res.Updated, res.Total)
	return nil
}

func (a *App) handleQuality(ctx context.Context) error {
	n, err := a.Sync.HandleQuality(ctx)
	if err == nil && n > 0 {
		log.Info("Quality backfill updated %d resources", n)
	}
	return err
}

func (a *App) autoDownload(ctx context.Context) error {
	n, err := a.AutoDL.Run(ctx)
	if err == nil && n > 0 {
		log.Info("Downloaded %d new resources", n)
	}
	return err
}

func (a *App) autoCleanup(ctx context.Context) error {
	n, err := a.Cleaner.Run(ctx, a.Settings.Get().CleanupKeepDays)
	if err == nil && n > 0 {
		log.Info("Cleaned up %d expired downloads", n)
	}
	return err
}
