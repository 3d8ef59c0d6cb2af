package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallswitch/internal/coordinator"
	"wallswitch/internal/database"
	"wallswitch/internal/metrics"
)

// HandleQuality runs one backfill pass: it reads a page of unscored images
// (2.5x the configured page size), sends them to the worker in page-sized
// sub-batches spaced by Stagger, and writes each sub-batch's metrics in its
// own transaction. Pagination restarts at page 1 after a short page.
//
// A pass already in flight makes this return ErrQualityBusy.
func (s *Synchronizer) HandleQuality(ctx context.Context) (int, error) {
	if !s.locks.TryAcquire(coordinator.LockHandleQuality) {
		return 0, ErrQualityBusy
	}
	defer s.locks.Release(coordinator.LockHandleQuality)

	pageSize := s.settings.Get().QualityPageSize
	if pageSize <= 0 {
		pageSize = defaultQualityPageSize
	}
	batchSize := pageSize * 5 / 2

	page := s.qualityPage
	metrics.QualityPage.Set(float64(page))

	items, err := s.db.ListUnscored(ctx, batchSize, (page-1)*batchSize)
	if err != nil {
		return 0, fmt.Errorf("list unscored: %w", err)
	}
	if len(items) < batchSize {
		s.qualityPage = 1
	} else {
		s.qualityPage = page + 1
	}
	if len(items) == 0 {
		return 0, nil
	}

	log.Debug("Quality backfill page %d: %d item(s) in sub-batches of %d", page, len(items), pageSize)

	updated := 0
	var errs []error
	for i := 0; i < len(items); i += pageSize {
		if i > 0 && s.Stagger > 0 {
			select {
			case <-ctx.Done():
				return updated, errors.Join(append(errs, ctx.Err())...)
			case <-time.After(s.Stagger):
			}
		}

		sub := items[i:min(i+pageSize, len(items))]
		n, err := s.scoreBatch(ctx, sub)
		updated += n
		if err != nil {
			metrics.QualityBatchesTotal.WithLabelValues("fail").Inc()
			log.Warn("Quality sub-batch of %d failed: %v", len(sub), err)
			errs = append(errs, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		metrics.QualityBatchesTotal.WithLabelValues("success").Inc()
	}

	metrics.QualityUpdatedTotal.Add(float64(updated))
	if updated > 0 {
		log.Info("Quality backfill updated %d of %d resource(s)", updated, len(items))
	}
	return updated, errors.Join(errs...)
}

func (s *Synchronizer) scoreBatch(ctx context.Context, sub []database.UnscoredItem) (int, error) {
	updates, err := s.scanner.ComputeQuality(ctx, sub)
	if err != nil {
		return 0, fmt.Errorf("compute quality: %w", err)
	}
	n, err := s.db.UpdateMetrics(ctx, updates)
	if err != nil {
		return 0, fmt.Errorf("update metrics: %w", err)
	}
	return n, nil
}
