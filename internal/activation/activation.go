// Package activation turns external "the store may be reachable again"
// signals into backlog flush attempts. The core has no opinion about where
// the signal comes from: the CLI wires SIGUSR1 to Notify, the agent adds
// marker-file watches and a periodic retry ticker. All sources funnel into
// one loop gated by a rate limiter, so redundant triggers cannot stampede
// the OS store.
package activation

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

const (
	// DefaultInterval is the periodic retry cadence when none is configured.
	DefaultInterval = 30 * time.Second

	// DefaultMinGap is the minimum spacing between flush attempts.
	DefaultMinGap = 5 * time.Second

	// watchDebounce coalesces bursts of file events into one trigger.
	watchDebounce = 500 * time.Millisecond
)

// Flusher is the subset of the keychain Manager the trigger drives.
type Flusher interface {
	Flush() (flushed, remaining int)
	Pending() int
}

// Trigger drives a Flusher from notifications, file events, and a ticker.
type Trigger struct {
	flusher    Flusher
	notify     chan struct{}
	limiter    *rate.Limiter
	interval   time.Duration
	watchPaths []string
	logger     *slog.Logger
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithInterval sets the periodic retry cadence. Zero disables the ticker.
func WithInterval(d time.Duration) Option {
	return func(t *Trigger) {
		t.interval = d
	}
}

// WithMinGap sets the minimum spacing between flush attempts. Zero disables
// rate limiting.
func WithMinGap(d time.Duration) Option {
	return func(t *Trigger) {
		if d <= 0 {
			t.limiter = nil
			return
		}
		t.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithWatchPaths adds filesystem paths whose changes count as activation
// signals (e.g. a session-unlock marker file).
func WithWatchPaths(paths ...string) Option {
	return func(t *Trigger) {
		t.watchPaths = append(t.watchPaths, paths...)
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trigger) {
		t.logger = l
	}
}

// New creates a trigger for the given flusher.
func New(f Flusher, opts ...Option) *Trigger {
	t := &Trigger{
		flusher:  f,
		notify:   make(chan struct{}, 1),
		limiter:  rate.NewLimiter(rate.Every(DefaultMinGap), 1),
		interval: DefaultInterval,
		logger:   slog.With("component", "activation"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Notify signals that the store may be available again. Non-blocking; a
// signal arriving while one is already queued is coalesced.
func (t *Trigger) Notify() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// Run blocks, flushing on each activation signal until ctx is cancelled.
func (t *Trigger) Run(ctx context.Context) error {
	var watchEvents chan fsnotify.Event
	if len(t.watchPaths) > 0 {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Close()
		for _, p := range t.watchPaths {
			if err := watcher.Add(p); err != nil {
				t.logger.Warn("cannot watch activation path", "path", p, "error", err)
			}
		}
		watchEvents = make(chan fsnotify.Event)
		go forwardEvents(ctx, watcher, watchEvents)
	}

	var tick <-chan time.Time
	if t.interval > 0 {
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-t.notify:
			t.flush()

		case <-tick:
			t.flush()

		case event, ok := <-watchEvents:
			if !ok {
				watchEvents = nil
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, t.Notify)
		}
	}
}

func (t *Trigger) flush() {
	if t.flusher.Pending() == 0 {
		return
	}
	if t.limiter != nil && !t.limiter.Allow() {
		t.logger.Debug("flush skipped, rate limited")
		return
	}
	flushed, remaining := t.flusher.Flush()
	t.logger.Debug("activation flush", "flushed", flushed, "remaining", remaining)
}

func forwardEvents(ctx context.Context, watcher *fsnotify.Watcher, out chan<- fsnotify.Event) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("activation watcher error", "error", err)
		}
	}
}
