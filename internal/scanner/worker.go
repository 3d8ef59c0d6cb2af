package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"wallswitch/internal/database"
	"wallswitch/internal/logging"
	"wallswitch/internal/media"
	"wallswitch/internal/mediatypes"
	"wallswitch/internal/metrics"
	"wallswitch/internal/workers"
)

var log = logging.Component("scanner")

// WorkerFunc runs a worker until ctx is cancelled or requests is closed.
// It may only communicate through the two channels.
type WorkerFunc func(ctx context.Context, requests <-chan Request, responses chan<- Response) error

// Config tunes the scan worker.
type Config struct {
	// ProbeWorkers bounds concurrent metric probes (0 = auto).
	ProbeWorkers int
	// BatchThreshold is the result size above which a PROCESSING message is
	// sent and conversion is chunked.
	BatchThreshold int
	// ChunkSize is the number of rows converted between yields.
	ChunkSize int
	// SkipHidden skips files and directories starting with ".". Off by
	// default: dot-prefixed files inside a configured folder are catalogued.
	SkipHidden bool
	// Probe computes metrics during a scan.
	Probe func(path string) (media.Metrics, error)
	// ProbeQuality computes metrics during quality backfill. It defaults to
	// the same EXIF-aware function as Probe so both paths store the same
	// orientation for a file.
	ProbeQuality func(path string) (media.Metrics, error)
}

// DefaultConfig returns the scan defaults.
func DefaultConfig() Config {
	return Config{
		ProbeWorkers:   workers.ForMixed(16),
		BatchThreshold: 5000,
		ChunkSize:      1000,
		Probe:          media.ProbeOriented,
		ProbeQuality:   media.ProbeOriented,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ProbeWorkers <= 0 {
		c.ProbeWorkers = d.ProbeWorkers
	}
	if c.BatchThreshold <= 0 {
		c.BatchThreshold = d.BatchThreshold
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.Probe == nil {
		c.Probe = d.Probe
	}
	if c.ProbeQuality == nil {
		c.ProbeQuality = d.ProbeQuality
	}
	return c
}

// NewWorker returns a WorkerFunc that serves scan and quality requests one
// at a time.
func NewWorker(cfg Config) WorkerFunc {
	w := &worker{cfg: cfg.withDefaults()}
	return w.run
}

type worker struct {
	cfg Config
}

func (w *worker) run(ctx context.Context, requests <-chan Request, responses chan<- Response) error {
	log.Debug("Worker started (probe workers: %d)", w.cfg.ProbeWorkers)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-requests:
			if !ok {
				return nil
			}
			w.handle(ctx, req, responses)
		}
	}
}

// handle serves one request. Errors and panics become a FAIL reply.
func (w *worker) handle(ctx context.Context, req Request, responses chan<- Response) {
	send := func(resp Response) {
		resp.Seq = req.Seq
		select {
		case responses <- resp:
		case <-ctx.Done():
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Recovered from panic handling %s: %v", req.Event, r)
			send(Response{Event: failEvent(req.Event), ResourceName: req.ResourceName, Reason: fmt.Sprintf("panic: %v", r)})
		}
	}()

	var (
		resp Response
		err  error
	)
	switch req.Event {
	case EventRefreshDirectory:
		resp, err = w.refresh(ctx, req, send)
	case EventHandleQuality:
		resp, err = w.quality(ctx, req)
	default:
		err = fmt.Errorf("unknown event %q", req.Event)
	}

	if err != nil {
		log.Warn("%s failed for %q: %v", req.Event, req.ResourceName, err)
		send(Response{Event: failEvent(req.Event), ResourceName: req.ResourceName, Reason: err.Error()})
		return
	}
	send(resp)
}

func (w *worker) refresh(ctx context.Context, req Request, send func(Response)) (Response, error) {
	start := time.Now()

	folders := NormalizeFolders(req.FolderPaths)
	existing := ExistingFolders(folders)
	if len(existing) == 0 {
		return Response{}, errors.New("none of the configured folders exist")
	}
	allow := mediatypes.NewAllowSet(req.AllowedFileExt)
	if len(allow) == 0 {
		return Response{}, errors.New("no allowed file extensions")
	}

	known := make(map[string]database.KnownFile, len(req.ExistingFiles))
	for _, k := range req.ExistingFiles {
		known[k.FilePath] = k
	}

	walkStart := time.Now()
	entries, err := walkFolders(ctx, existing, allow, w.cfg.SkipHidden)
	if err != nil {
		return Response{}, fmt.Errorf("walk: %w", err)
	}
	walkEnd := time.Now()

	var stats Stats
	seen := make(map[string]struct{}, len(entries))
	var (
		changed []fileEntry
		ids     []int64 // catalogued ID per changed entry, 0 when new
	)
	for _, e := range entries {
		seen[e.path] = struct{}{}
		k, isKnown := known[e.path]
		switch {
		case !isKnown:
			stats.NewFiles++
			changed = append(changed, e)
			ids = append(ids, 0)
		case k.MtimeMs != e.info.ModTime().UnixMilli():
			stats.ModifiedFiles++
			changed = append(changed, e)
			ids = append(ids, k.ID)
		default:
			stats.UnchangedFiles++
		}
	}
	for p := range known {
		if _, ok := seen[p]; !ok && underAny(p, existing) {
			stats.MissingFiles++
		}
	}
	stats.TotalProcessed = len(entries)

	probed, err := w.probeAll(ctx, changed)
	if err != nil {
		return Response{}, err
	}

	if len(changed) > w.cfg.BatchThreshold {
		send(Response{Event: EventRefreshProcessing, ResourceName: req.ResourceName, TotalFiles: len(changed)})
	}

	list := make([]database.Resource, 0, stats.NewFiles)
	modified := make([]database.Resource, 0, stats.ModifiedFiles)
	for i := 0; i < len(changed); i += w.cfg.ChunkSize {
		end := min(i+w.cfg.ChunkSize, len(changed))
		for j := i; j < end; j++ {
			r := toResource(req.ResourceName, changed[j], probed[j])
			if ids[j] == 0 {
				list = append(list, r)
				continue
			}
			r.ID = ids[j]
			modified = append(modified, r)
		}
		if len(changed) > w.cfg.BatchThreshold {
			if err := ctx.Err(); err != nil {
				return Response{}, err
			}
			runtime.Gosched()
		}
	}

	metrics.ScanFilesTotal.WithLabelValues("new").Add(float64(stats.NewFiles))
	metrics.ScanFilesTotal.WithLabelValues("modified").Add(float64(stats.ModifiedFiles))
	metrics.ScanFilesTotal.WithLabelValues("unchanged").Add(float64(stats.UnchangedFiles))
	metrics.ScanFilesTotal.WithLabelValues("missing").Add(float64(stats.MissingFiles))

	log.Info("Scan of %d folder(s) for %q: %d files (%d new, %d modified, %d unchanged, %d missing) in %v",
		len(existing), req.ResourceName, stats.TotalProcessed, stats.NewFiles, stats.ModifiedFiles,
		stats.UnchangedFiles, stats.MissingFiles, time.Since(start))

	return Response{
		Event:        EventRefreshSuccess,
		ResourceName: req.ResourceName,
		List:         list,
		Modified:     modified,
		Stats:        stats,
		Timing: Timing{
			WalkStart: walkStart,
			WalkEnd:   walkEnd,
			Duration:  time.Since(start),
		},
	}, nil
}

// probeAll computes metrics for image entries on a bounded pool. A file that
// cannot be probed keeps zero metrics and is left for the quality backfill.
func (w *worker) probeAll(ctx context.Context, entries []fileEntry) ([]media.Metrics, error) {
	out := make([]media.Metrics, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.ProbeWorkers)

	for i, e := range entries {
		out[i] = media.Metrics{IsLandscape: media.OrientationUnknown}
		if mediatypes.GetFileType(mediatypes.ExtOf(e.path)) != mediatypes.FileTypeImage {
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("panic probing %s: %v", e.path, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := w.cfg.Probe(e.path)
			if err != nil {
				log.Debug("Could not probe %s: %v", e.path, err)
				return nil
			}
			out[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	return out, nil
}

func (w *worker) quality(ctx context.Context, req Request) (Response, error) {
	updates := make([]database.MetricsUpdate, 0, len(req.Items))
	for _, item := range req.Items {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		m, err := w.cfg.ProbeQuality(item.FilePath)
		if err != nil {
			log.Debug("Quality probe failed for %s: %v", item.FilePath, err)
			continue
		}
		updates = append(updates, database.MetricsUpdate{
			ID:          item.ID,
			Quality:     string(m.Quality),
			Width:       m.Width,
			Height:      m.Height,
			IsLandscape: m.IsLandscape,
		})
	}
	return Response{Event: EventQualitySuccess, Metrics: updates}, nil
}

func toResource(resourceName string, e fileEntry, m media.Metrics) database.Resource {
	atime, mtime, ctime := fileTimes(e.info)
	ext := mediatypes.ExtOf(e.path)
	return database.Resource{
		ResourceName: resourceName,
		FilePath:     e.path,
		FileName:     filepath.Base(e.path),
		FileExt:      strings.TrimPrefix(ext, "."),
		FileType:     string(mediatypes.GetFileType(ext)),
		FileSize:     e.info.Size(),
		Width:        m.Width,
		Height:       m.Height,
		Quality:      string(m.Quality),
		IsLandscape:  m.IsLandscape,
		AtimeMs:      atime,
		MtimeMs:      mtime,
		CtimeMs:      ctime,
	}
}

func underAny(path string, folders []string) bool {
	for _, f := range folders {
		if path == f || isWithin(path, f) {
			return true
		}
	}
	return false
}
