package activation

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeFlusher counts flush attempts and controls what Pending reports.
type fakeFlusher struct {
	mu      sync.Mutex
	pending int
	flushes int
}

func (f *fakeFlusher) Flush() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
	flushed := f.pending
	f.pending = 0
	return flushed, 0
}

func (f *fakeFlusher) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending
}

func (f *fakeFlusher) setPending(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = n
}

func (f *fakeFlusher) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestNotifyTriggersFlush(t *testing.T) {
	f := &fakeFlusher{}
	f.setPending(3)
	trig := New(f, WithInterval(0), WithMinGap(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go trig.Run(ctx)

	trig.Notify()
	waitFor(t, func() bool { return f.flushCount() == 1 })
}

func TestNotifySkipsWhenNothingPending(t *testing.T) {
	f := &fakeFlusher{}
	trig := New(f, WithInterval(0), WithMinGap(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go trig.Run(ctx)

	trig.Notify()
	time.Sleep(50 * time.Millisecond)
	if f.flushCount() != 0 {
		t.Errorf("expected no flush with empty backlog, got %d", f.flushCount())
	}
}

func TestNotifyIsNonBlocking(t *testing.T) {
	f := &fakeFlusher{}
	trig := New(f)

	// No Run loop draining the channel; repeated Notify must not block.
	for i := 0; i < 10; i++ {
		trig.Notify()
	}
}

func TestRateLimitCoalescesBursts(t *testing.T) {
	f := &fakeFlusher{}
	trig := New(f, WithInterval(0), WithMinGap(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go trig.Run(ctx)

	for i := 0; i < 5; i++ {
		f.setPending(1)
		trig.Notify()
		time.Sleep(20 * time.Millisecond)
	}

	// The limiter's initial token allows exactly one flush.
	if got := f.flushCount(); got != 1 {
		t.Errorf("expected 1 rate-limited flush, got %d", got)
	}
}

func TestPeriodicRetry(t *testing.T) {
	f := &fakeFlusher{}
	f.setPending(1)
	trig := New(f, WithInterval(30*time.Millisecond), WithMinGap(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go trig.Run(ctx)

	waitFor(t, func() bool { return f.flushCount() >= 1 })
}

func TestWatchPathTriggersFlush(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "unlocked")

	f := &fakeFlusher{}
	f.setPending(1)
	trig := New(f, WithInterval(0), WithMinGap(0), WithWatchPaths(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go trig.Run(ctx)

	// Give the watcher a moment to attach before touching the marker.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(marker, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	waitFor(t, func() bool { return f.flushCount() >= 1 })
}

func TestRunStopsOnCancel(t *testing.T) {
	f := &fakeFlusher{}
	trig := New(f, WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		trig.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
