package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallswitch/internal/coordinator"
	"wallswitch/internal/database"
	"wallswitch/internal/metrics"
	"wallswitch/internal/scanner"
)

// RefreshResult summarizes one directory refresh.
type RefreshResult struct {
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	Total    int           `json:"total"`
	Stats    scanner.Stats `json:"stats"`
	Duration time.Duration `json:"duration"`
}

// RefreshDirectory scans the configured local folders, inserts files the
// catalog does not know yet and refreshes rows whose file changed on disk. A refresh already in flight makes this return
// ErrBusy immediately. Configuration problems are returned as *ConfigError
// before any lock is taken.
func (s *Synchronizer) RefreshDirectory(ctx context.Context, manual bool) (RefreshResult, error) {
	cfg := s.settings.Get()

	folders := scanner.ExistingFolders(scanner.NormalizeFolders(cfg.LocalResourceFolders))
	if len(folders) == 0 {
		return s.configError(ErrNoFolders)
	}
	if len(cfg.AllowedFileExt) == 0 {
		return s.configError(ErrNoExtensions)
	}

	if !s.locks.TryAcquire(coordinator.LockRefreshDirectory) {
		metrics.ScanRunsTotal.WithLabelValues("rejected").Inc()
		if manual {
			log.Info("Refresh rejected, another refresh is running")
		}
		return RefreshResult{}, ErrBusy
	}
	defer s.locks.Release(coordinator.LockRefreshDirectory)

	s.setRefreshing(true)
	defer s.setRefreshing(false)
	metrics.ScanRunning.Set(1)
	defer metrics.ScanRunning.Set(0)

	start := time.Now()
	res, err := s.refresh(ctx, folders, cfg.AllowedFileExt, manual)
	res.Duration = time.Since(start)
	metrics.ScanDuration.Observe(res.Duration.Seconds())
	s.recordRefresh(res, err)

	if err != nil {
		status := "fail"
		if errors.Is(err, scanner.ErrWorkerExited) {
			status = "worker_exited"
		}
		metrics.ScanRunsTotal.WithLabelValues(status).Inc()
		log.Error("Refresh failed after %v: %v", res.Duration, err)
		return res, err
	}

	metrics.ScanRunsTotal.WithLabelValues("success").Inc()
	metrics.ScanInsertedTotal.Add(float64(res.Inserted))
	log.Info("Refresh complete in %v: %d inserted, %d updated, %d total (new %d, modified %d, unchanged %d, missing %d)",
		res.Duration, res.Inserted, res.Updated, res.Total,
		res.Stats.NewFiles, res.Stats.ModifiedFiles, res.Stats.UnchangedFiles, res.Stats.MissingFiles)

	if manual && res.Inserted+res.Updated > 0 && s.OnChange != nil {
		s.OnChange(res)
	}
	return res, nil
}

func (s *Synchronizer) refresh(ctx context.Context, folders, exts []string, manual bool) (RefreshResult, error) {
	known, err := s.db.KnownFiles(ctx, database.LocalResourceName)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("load known files: %w", err)
	}

	log.Debug("Refreshing %d folder(s) with %d known files", len(folders), len(known))

	resp, err := s.scanner.Scan(ctx, scanner.ScanRequest{
		ResourceName:   database.LocalResourceName,
		FolderPaths:    folders,
		AllowedFileExt: exts,
		ExistingFiles:  known,
		Manual:         manual,
	})
	if err != nil {
		return RefreshResult{}, fmt.Errorf("scan: %w", err)
	}

	inserted, updated, err := s.db.ApplyScan(ctx, resp.List, resp.Modified)
	if err != nil {
		return RefreshResult{Stats: resp.Stats}, fmt.Errorf("store scan results: %w", err)
	}
	res := RefreshResult{Inserted: inserted, Updated: updated, Stats: resp.Stats}

	res.Total, err = s.db.CountResources(ctx, database.LocalResourceName)
	if err != nil {
		return res, fmt.Errorf("count resources: %w", err)
	}
	return res, nil
}

// configError records a refresh that could not start so health reporting
// shows the reason.
func (s *Synchronizer) configError(err error) (RefreshResult, error) {
	cerr := &ConfigError{Err: err}
	s.recordRefresh(RefreshResult{}, cerr)
	return RefreshResult{}, cerr
}
