package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wallswitch/internal/database"
	"wallswitch/internal/metrics"
)

var (
	// ErrWorkerExited is returned to every caller waiting on a worker that
	// exited or crashed before replying.
	ErrWorkerExited = errors.New("scan worker exited")
	// ErrScanFailed wraps a FAIL reply from the worker.
	ErrScanFailed = errors.New("scan failed")
	// ErrHostClosed is returned after Close.
	ErrHostClosed = errors.New("scanner host closed")
)

// State is the host's view of the worker.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateProcessing:
		return "processing"
	default:
		return "idle"
	}
}

type reply struct {
	resp Response
	err  error
}

// waiter is one caller blocked on the reply to request seq.
type waiter struct {
	seq   uint64
	event Event
	ch    chan reply
}

// incarnation is one running copy of the worker and its channel pair.
type incarnation struct {
	requests chan Request
	exited   chan struct{}
}

// Host owns the worker's channel pair. Every request gets a sequence number
// the worker echoes back, and replies are routed on it, so a reply to a
// caller that gave up is dropped instead of reaching the next caller. The
// host tracks worker state and restarts the worker when it exits, failing
// any callers still waiting on it.
type Host struct {
	run          WorkerFunc
	restartDelay time.Duration

	// OnProgress is called when a large scan reports its total.
	OnProgress func(resourceName string, totalFiles int)

	mu       sync.Mutex
	state    State
	seq      uint64
	pending  []*waiter
	current  *incarnation
	restarts int
	ready    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHost creates a host for the given worker. Call Start before use.
func NewHost(run WorkerFunc) *Host {
	return &Host{
		run:          run,
		restartDelay: 100 * time.Millisecond,
		ready:        make(chan struct{}),
	}
}

// Start launches the worker and the supervisor loop.
func (h *Host) Start(ctx context.Context) {
	h.ctx, h.cancel = context.WithCancel(ctx)
	h.wg.Add(1)
	go h.supervise()
}

// Close stops the worker and fails pending callers.
func (h *Host) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
}

// State returns the current worker state.
func (h *Host) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Restarts returns how many times the worker was restarted.
func (h *Host) Restarts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.restarts
}

func (h *Host) supervise() {
	defer h.wg.Done()

	first := true
	for {
		inc := &incarnation{
			requests: make(chan Request),
			exited:   make(chan struct{}),
		}
		responses := make(chan Response, 16)
		done := make(chan error, 1)

		h.mu.Lock()
		h.current = inc
		h.mu.Unlock()
		if first {
			close(h.ready)
			first = false
		}

		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("worker panic: %v", r)
				}
			}()
			done <- h.run(h.ctx, inc.requests, responses)
		}()

		var exitErr error
	route:
		for {
			select {
			case resp := <-responses:
				h.route(resp)
			case exitErr = <-done:
				break route
			}
		}

		// Replies sent before the exit still count.
		for drained := false; !drained; {
			select {
			case resp := <-responses:
				h.route(resp)
			default:
				drained = true
			}
		}
		close(inc.exited)

		if h.ctx.Err() != nil {
			h.failAll(ErrHostClosed)
			return
		}

		log.Warn("Scan worker exited: %v; restarting", exitErr)
		h.failAll(ErrWorkerExited)
		metrics.WorkerRestartsTotal.Inc()
		h.mu.Lock()
		h.restarts++
		h.mu.Unlock()

		select {
		case <-time.After(h.restartDelay):
		case <-h.ctx.Done():
			return
		}
	}
}

// route delivers a reply to the waiter whose request it answers.
func (h *Host) route(resp Response) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if resp.Event == EventRefreshProcessing {
		h.state = StateProcessing
		if h.OnProgress != nil {
			go h.OnProgress(resp.ResourceName, resp.TotalFiles)
		}
		return
	}

	for i, w := range h.pending {
		if w.seq != resp.Seq || w.event != resp.Event.family() {
			continue
		}
		h.pending = append(h.pending[:i], h.pending[i+1:]...)
		var err error
		if resp.Event.IsFail() {
			err = fmt.Errorf("%w: %s", ErrScanFailed, resp.Reason)
		}
		w.ch <- reply{resp: resp, err: err}
		h.updateStateLocked()
		return
	}
	log.Warn("Dropping unroutable %s reply #%d for %q", resp.Event, resp.Seq, resp.ResourceName)
}

func (h *Host) failAll(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.pending {
		w.ch <- reply{err: err}
	}
	h.pending = nil
	h.state = StateIdle
}

// updateStateLocked returns to idle once no refresh is outstanding.
func (h *Host) updateStateLocked() {
	for _, w := range h.pending {
		if w.event == EventRefreshDirectory {
			return
		}
	}
	h.state = StateIdle
}

// call sends req and blocks until the routed reply, worker exit or ctx.
func (h *Host) call(ctx context.Context, req Request) (Response, error) {
	if h.ctx == nil {
		return Response{}, ErrHostClosed
	}
	select {
	case <-h.ready:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	h.mu.Lock()
	if h.ctx.Err() != nil {
		h.mu.Unlock()
		return Response{}, ErrHostClosed
	}
	inc := h.current
	h.seq++
	req.Seq = h.seq
	w := &waiter{seq: req.Seq, event: req.Event.family(), ch: make(chan reply, 1)}
	h.pending = append(h.pending, w)
	if req.Event == EventRefreshDirectory {
		h.state = StateScanning
	}
	h.mu.Unlock()

	select {
	case inc.requests <- req:
	case <-inc.exited:
		// Either failAll already answered w or abandon removes it first.
		h.abandon(w)
		select {
		case r := <-w.ch:
			return r.resp, r.err
		default:
			return Response{}, ErrWorkerExited
		}
	case <-ctx.Done():
		h.abandon(w)
		return Response{}, ctx.Err()
	}

	select {
	case r := <-w.ch:
		return r.resp, r.err
	case <-ctx.Done():
		h.abandon(w)
		return Response{}, ctx.Err()
	}
}

func (h *Host) abandon(w *waiter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, p := range h.pending {
		if p == w {
			h.pending = append(h.pending[:i], h.pending[i+1:]...)
			break
		}
	}
	h.updateStateLocked()
}

// ScanRequest describes one directory refresh.
type ScanRequest struct {
	ResourceName   string
	FolderPaths    []string
	AllowedFileExt []string
	ExistingFiles  []database.KnownFile
	Manual         bool
}

// Scan asks the worker to walk folders and blocks until it replies.
func (h *Host) Scan(ctx context.Context, sr ScanRequest) (Response, error) {
	return h.call(ctx, Request{
		Event:          EventRefreshDirectory,
		ResourceName:   sr.ResourceName,
		FolderPaths:    sr.FolderPaths,
		AllowedFileExt: sr.AllowedFileExt,
		ExistingFiles:  sr.ExistingFiles,
		Manual:         sr.Manual,
	})
}

// ComputeQuality asks the worker to recompute metrics for items.
func (h *Host) ComputeQuality(ctx context.Context, items []database.UnscoredItem) ([]database.MetricsUpdate, error) {
	resp, err := h.call(ctx, Request{Event: EventHandleQuality, Items: items})
	if err != nil {
		return nil, err
	}
	return resp.Metrics, nil
}
