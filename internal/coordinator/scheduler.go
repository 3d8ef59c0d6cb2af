package coordinator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"wallswitch/internal/logging"
	"wallswitch/internal/metrics"
)

var log = logging.Component("scheduler")

// Task is a scheduled callback. Returning an error wrapping ErrLocked marks
// the tick as skipped.
type Task func(ctx context.Context) error

type entry struct {
	id       cron.EntryID
	timer    *time.Timer
	interval time.Duration
}

// Scheduler runs named tasks on fixed intervals. Each key has at most one
// schedule; a tick that finds the previous run of the same task still going
// is dropped, never queued.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool
	running sync.WaitGroup
}

// NewScheduler creates a scheduler. Tasks run only after Start.
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger{})),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
	}
}

// ScheduleTask runs fn every interval under key. When initialDelay is
// positive fn also runs once after that delay. Scheduling an existing key
// replaces its previous schedule and pending delayed run.
func (s *Scheduler) ScheduleTask(key string, interval time.Duration, fn Task, initialDelay time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive, got %v", key, interval)
	}

	job := cron.NewChain(
		recoverWrapper(key),
		cron.SkipIfStillRunning(cronLogger{}),
	).Then(cron.FuncJob(func() { s.runTask(key, fn) }))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("schedule %s: scheduler stopped", key)
	}
	s.removeLocked(key)

	e := &entry{interval: interval}
	e.id = s.cron.Schedule(cron.Every(interval), job)
	if initialDelay > 0 {
		e.timer = time.AfterFunc(initialDelay, job.Run)
	}
	s.entries[key] = e

	log.Debug("Scheduled %s every %v (initial delay %v)", key, interval, initialDelay)
	return nil
}

// Cancel removes a task schedule. Unknown keys are ignored.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
}

func (s *Scheduler) removeLocked(key string) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	s.cron.Remove(e.id)
	delete(s.entries, key)
}

// Keys returns the scheduled task names in sorted order.
func (s *Scheduler) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interval returns the interval a key is scheduled at.
func (s *Scheduler) Interval(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return e.interval, true
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("Scheduler started with tasks %v", s.Keys())
}

// Stop cancels every schedule and waits for running tasks to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for key := range s.entries {
		s.removeLocked(key)
	}
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()
	s.running.Wait()
	log.Info("Scheduler stopped")
}

func (s *Scheduler) runTask(key string, fn Task) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	runID := uuid.NewString()
	start := time.Now()
	err := fn(s.ctx)

	switch {
	case err == nil:
		metrics.TaskRunsTotal.WithLabelValues(key, "ok").Inc()
		log.Debug("Task %s (%s) finished in %v", key, runID, time.Since(start))
	case errors.Is(err, ErrLocked):
		metrics.TaskRunsTotal.WithLabelValues(key, "skipped").Inc()
		log.Debug("Task %s (%s) skipped: %v", key, runID, err)
	default:
		metrics.TaskRunsTotal.WithLabelValues(key, "error").Inc()
		log.Warn("Task %s (%s) failed after %v: %v", key, runID, time.Since(start), err)
	}
}

// recoverWrapper keeps a panicking task from taking down the process.
func recoverWrapper(key string) cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					metrics.TaskRunsTotal.WithLabelValues(key, "error").Inc()
					log.Error("Task %s panicked: %v\n%s", key, r, debug.Stack())
				}
			}()
			j.Run()
		})
	}
}

// cronLogger adapts the component logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if logging.IsDebugEnabled() {
		log.Debug("cron: %s %v", msg, keysAndValues)
	}
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error("cron: %s: %v %v", msg, err, keysAndValues)
}
