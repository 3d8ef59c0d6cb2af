package coordinator

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestTryAcquireRejectsHeldLock(t *testing.T) {
	l := NewLocks()

	if !l.TryAcquire(LockRefreshDirectory) {
		t.Fatal("first acquire should succeed")
	}
	if l.TryAcquire(LockRefreshDirectory) {
		t.Fatal("second acquire should be rejected")
	}
	if !l.TryAcquire(LockHandleQuality) {
		t.Fatal("different key should be independent")
	}

	l.Release(LockRefreshDirectory)
	if l.Held(LockRefreshDirectory) {
		t.Error("lock still held after release")
	}
	if !l.TryAcquire(LockRefreshDirectory) {
		t.Error("acquire after release should succeed")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := NewLocks()
	l.Release("never-taken")
	l.TryAcquire("k")
	l.Release("k")
	l.Release("k")
	if l.Held("k") {
		t.Error("lock should be free")
	}
}

func TestSnapshot(t *testing.T) {
	l := NewLocks()
	l.TryAcquire("b")
	l.TryAcquire("a")

	got := l.Snapshot()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Snapshot() = %v, want [a b]", got)
	}
}

func TestGuard(t *testing.T) {
	l := NewLocks()

	t.Run("releases after error", func(t *testing.T) {
		wantErr := errors.New("boom")
		err := l.Guard("k", func() error { return wantErr })
		if !errors.Is(err, wantErr) {
			t.Fatalf("Guard() error = %v, want %v", err, wantErr)
		}
		if l.Held("k") {
			t.Error("lock still held after failed fn")
		}
	})

	t.Run("releases after panic", func(t *testing.T) {
		func() {
			defer func() { _ = recover() }()
			_ = l.Guard("k", func() error { panic("boom") })
		}()
		if l.Held("k") {
			t.Error("lock still held after panic")
		}
	})

	t.Run("rejects while held", func(t *testing.T) {
		l.TryAcquire("k")
		defer l.Release("k")

		ran := false
		err := l.Guard("k", func() error { ran = true; return nil })
		if !errors.Is(err, ErrLocked) {
			t.Errorf("Guard() error = %v, want ErrLocked", err)
		}
		if ran {
			t.Error("fn ran while lock was held")
		}
	})
}

func TestTryAcquireConcurrent(t *testing.T) {
	l := NewLocks()
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire("shared") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("%d goroutines acquired the lock, want 1", wins.Load())
	}
}
