package coordinator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestScheduleTaskInitialDelay(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	var runs atomic.Int32
	err := s.ScheduleTask("task", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("ScheduleTask() error = %v", err)
	}

	waitFor(t, time.Second, func() bool { return runs.Load() == 1 })
}

func TestScheduleTaskInterval(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a cron tick")
	}
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	var runs atomic.Int32
	_ = s.ScheduleTask("tick", time.Second, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, 0)

	waitFor(t, 3*time.Second, func() bool { return runs.Load() >= 1 })
}

func TestScheduleTaskReplacesExisting(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	var first, second atomic.Int32
	_ = s.ScheduleTask("task", time.Hour, func(ctx context.Context) error {
		first.Add(1)
		return nil
	}, 50*time.Millisecond)
	_ = s.ScheduleTask("task", 2*time.Hour, func(ctx context.Context) error {
		second.Add(1)
		return nil
	}, 10*time.Millisecond)

	if keys := s.Keys(); len(keys) != 1 || keys[0] != "task" {
		t.Fatalf("Keys() = %v, want [task]", keys)
	}
	if d, _ := s.Interval("task"); d != 2*time.Hour {
		t.Errorf("Interval() = %v, want 2h", d)
	}

	waitFor(t, time.Second, func() bool { return second.Load() == 1 })
	time.Sleep(100 * time.Millisecond)
	if first.Load() != 0 {
		t.Error("replaced task's delayed run still fired")
	}
}

func TestScheduleTaskRejectsZeroInterval(t *testing.T) {
	s := NewScheduler()
	if err := s.ScheduleTask("bad", 0, func(context.Context) error { return nil }, 0); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestCancel(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	var runs atomic.Int32
	_ = s.ScheduleTask("task", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}, 30*time.Millisecond)
	s.Cancel("task")
	s.Cancel("unknown")

	time.Sleep(80 * time.Millisecond)
	if runs.Load() != 0 {
		t.Error("cancelled task ran")
	}
	if len(s.Keys()) != 0 {
		t.Errorf("Keys() = %v, want empty", s.Keys())
	}
}

func TestTaskErrorsAndPanicsAreContained(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	var done atomic.Int32
	_ = s.ScheduleTask("locked", time.Hour, func(ctx context.Context) error {
		defer done.Add(1)
		return fmt.Errorf("busy: %w", ErrLocked)
	}, 5*time.Millisecond)
	_ = s.ScheduleTask("panics", time.Hour, func(ctx context.Context) error {
		defer done.Add(1)
		panic("boom")
	}, 5*time.Millisecond)

	waitFor(t, time.Second, func() bool { return done.Load() == 2 })
}

func TestStopWaitsForRunningTask(t *testing.T) {
	s := NewScheduler()
	s.Start()

	started := make(chan struct{})
	var finished atomic.Bool
	_ = s.ScheduleTask("slow", time.Hour, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		finished.Store(true)
		return ctx.Err()
	}, time.Millisecond)

	<-started
	s.Stop()
	if !finished.Load() {
		t.Error("Stop returned before the running task observed cancellation")
	}
}
