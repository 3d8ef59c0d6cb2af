package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wallswitch/internal/catalog"
	"wallswitch/internal/coordinator"
	"wallswitch/internal/database"
	"wallswitch/internal/indexer"
	"wallswitch/internal/logging"
	"wallswitch/internal/metrics"
	"wallswitch/internal/remote"
	"wallswitch/internal/scanner"
	"wallswitch/internal/selection"
	"wallswitch/internal/settings"
	"wallswitch/internal/startup"
)

var log = logging.Component("app")

const statsInterval = time.Minute

// Options overrides collaborators that New would otherwise build from the
// configuration.
type Options struct {
	// Setter applies wallpapers. Defaults to a CommandSetter for
	// WALLPAPER_COMMAND, or a LogSetter when none is configured.
	Setter selection.Setter
	// Sources are registered as remote download sources.
	Sources []remote.Source
	// Worker replaces the directory scanner worker.
	Worker scanner.WorkerFunc
}

// App holds every long-lived component of the daemon.
type App struct {
	Config *startup.Config

	DB        *database.Database
	Settings  *settings.Store
	Host      *scanner.Host
	Locks     *coordinator.Locks
	Scheduler *coordinator.Scheduler
	Sync      *indexer.Synchronizer
	Catalog   *catalog.Catalog
	Engine    *selection.Engine

	Registry   *remote.Registry
	Downloader *remote.Downloader
	AutoDL     *remote.AutoDownloader
	Cleaner    *remote.Cleaner

	collector *metrics.Collector

	ctx        context.Context
	cancel     context.CancelFunc
	background sync.WaitGroup
	closeOnce  sync.Once
}

// New opens the catalog and wires every component. Nothing runs until Start.
func New(ctx context.Context, cfg *startup.Config, opts Options) (*App, error) {
	store, err := settings.NewStore(cfg.SettingsFile)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	setter := opts.Setter
	if setter == nil {
		setter, err = defaultSetter(cfg.WallpaperCommand)
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	worker := opts.Worker
	if worker == nil {
		wc := scanner.DefaultConfig()
		if cfg.ScanWorkers > 0 {
			wc.ProbeWorkers = cfg.ScanWorkers
		}
		worker = scanner.NewWorker(wc)
	}

	a := &App{
		Config:    cfg,
		DB:        db,
		Settings:  store,
		Host:      scanner.NewHost(worker),
		Locks:     coordinator.NewLocks(),
		Scheduler: coordinator.NewScheduler(),
		Catalog:   catalog.New(db),
		Registry:  remote.NewRegistry(opts.Sources...),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	a.Host.OnProgress = func(resourceName string, total int) {
		log.Info("Scan of %s found %d files, converting in chunks", resourceName, total)
	}

	a.Sync = indexer.New(db, a.Host, store, a.Locks)
	a.Sync.OnChange = a.onCatalogChange

	a.Downloader = remote.NewDownloader(db, cfg.DownloadDir, nil)
	a.AutoDL = remote.NewAutoDownloader(a.Registry, a.Downloader, store, a.Locks)
	a.Cleaner = remote.NewCleaner(db, a.Catalog, a.Locks)

	a.Engine = selection.New(db, store, setter)
	if cfg.DownloadsEnabled {
		a.Engine.SetDownloader(a.Downloader)
	}

	a.collector = metrics.NewCollector(statsProvider{db: db}, statsInterval)

	return a, nil
}

func defaultSetter(command string) (selection.Setter, error) {
	if command == "" {
		log.Warn("WALLPAPER_COMMAND not set, selections are only logged")
		return selection.LogSetter{}, nil
	}
	s, err := selection.NewCommandSetter(command)
	if err != nil {
		return nil, fmt.Errorf("wallpaper command: %w", err)
	}
	return s, nil
}

// Start launches the scanner worker, the stats collector and the scheduler.
func (a *App) Start(ctx context.Context) error {
	a.Host.Start(ctx)
	a.collector.Start()

	if err := a.Reschedule(); err != nil {
		return err
	}
	a.Scheduler.Start()
	return nil
}

// Close stops background work and closes the catalog. It is safe to call
// more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.Scheduler.Stop()
		a.cancel()
		a.background.Wait()
		a.collector.Stop()
		a.Host.Close()
		err = a.DB.Close()
	})
	return err
}

// onCatalogChange backfills quality for rows a manual refresh just added.
func (a *App) onCatalogChange(res indexer.RefreshResult) {
	a.background.Add(1)
	go func() {
		defer a.background.Done()
		n, err := a.Sync.HandleQuality(a.ctx)
		if err != nil {
			log.Debug("Quality backfill after refresh of %d rows: %v", res.Inserted, err)
			return
		}
		log.Debug("Quality backfill after refresh updated %d rows", n)
	}()
}

// statsProvider feeds catalog statistics to the metrics collector.
type statsProvider struct {
	db *database.Database
}

func (p statsProvider) GetStats() metrics.Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := p.db.CalculateStats(ctx)
	if err != nil {
		log.Warn("Failed to calculate catalog stats: %v", err)
		return metrics.Stats{}
	}
	return metrics.Stats{
		TotalImages:    s.TotalImages,
		TotalVideos:    s.TotalVideos,
		TotalFavorites: s.TotalFavorites,
		TotalPrivacy:   s.TotalPrivacy,
		TotalUnscored:  s.TotalUnscored,
		TotalHistory:   s.TotalHistory,
	}
}
