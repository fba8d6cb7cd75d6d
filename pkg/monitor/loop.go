// Package monitor drives the periodic scan-diff-notify cycle over a
// watched set of paths: one long-running loop per process, cooperatively
// stoppable within a single check interval.
package monitor

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/shareguard/shareguard/internal/logger"
	"github.com/shareguard/shareguard/pkg/acl"
	"github.com/shareguard/shareguard/pkg/change"
	"github.com/shareguard/shareguard/pkg/metrics"
	"github.com/shareguard/shareguard/pkg/store"
)

// DefaultCheckInterval is how often the loop re-scans the watch set.
const DefaultCheckInterval = 60 * time.Second

// DefaultBackoffInterval is the sleep after the loop itself fails
// unexpectedly, before resuming.
const DefaultBackoffInterval = 60 * time.Second

// DefaultRetention is how long any Store entry survives the periodic reap.
const DefaultRetention = 48 * time.Hour

// DefaultStaleRetention is how long a stale entry survives the periodic
// reap, a shorter window than DefaultRetention (see pkg/store's Reap
// contract and DESIGN.md's Open Questions).
const DefaultStaleRetention = time.Hour

// Scanner is the subset of *acl.Scanner the loop needs.
type Scanner interface {
	Scan(ctx context.Context, path string, opts acl.Options) (*acl.Snapshot, error)
}

// Notifier is the subset of the Notification Service the loop pushes
// change alerts into.
type Notifier interface {
	NotifyChange(path string, cs *change.ChangeSet, severity change.Severity)
}

// Options configures a Loop.
type Options struct {
	CheckInterval   time.Duration
	BackoffInterval time.Duration
	RetentionWindow time.Duration
	StaleRetention  time.Duration
	ScanOptions     acl.Options
	IsSystemSID     func(sid string) bool
}

func (o *Options) setDefaults() {
	if o.CheckInterval <= 0 {
		o.CheckInterval = DefaultCheckInterval
	}
	if o.BackoffInterval <= 0 {
		o.BackoffInterval = DefaultBackoffInterval
	}
	if o.RetentionWindow <= 0 {
		o.RetentionWindow = DefaultRetention
	}
	if o.StaleRetention <= 0 {
		o.StaleRetention = DefaultStaleRetention
	}
	if o.IsSystemSID == nil {
		o.IsSystemSID = func(string) bool { return false }
	}
}

// Loop is the single long-running watch-set monitor per process.
type Loop struct {
	scanner  Scanner
	store    store.Store
	notifier Notifier
	opts     Options
	metrics  *metrics.Metrics

	mu      sync.Mutex
	watch   map[string]bool
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// errorCount is the cumulative count of per-path scan/diff failures,
	// for metrics.
	errorCount int
}

// NewLoop constructs a Loop. The watch set starts empty; call Start or Add
// to populate it.
func NewLoop(scanner Scanner, st store.Store, notifier Notifier, opts Options) *Loop {
	opts.setDefaults()
	return &Loop{
		scanner:  scanner,
		store:    st,
		notifier: notifier,
		opts:     opts,
		watch:    make(map[string]bool),
	}
}

// Start adds paths to the watch set and starts the loop if it is not
// already running.
func (l *Loop) Start(paths ...string) {
	l.mu.Lock()
	for _, p := range paths {
		l.watch[p] = true
	}
	alreadyRunning := l.running
	l.mu.Unlock()

	if alreadyRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.mu.Lock()
	l.running = true
	l.cancel = cancel
	l.done = make(chan struct{})
	l.mu.Unlock()

	go l.run(ctx)
}

// Stop halts the loop and waits for it to exit, unblocking a sleeping loop
// within one check interval.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	cancel := l.cancel
	done := l.done
	l.mu.Unlock()

	cancel()
	<-done

	l.mu.Lock()
	l.running = false
	l.mu.Unlock()
}

// WithMetrics attaches m so every cycle records its duration, isolated
// error count, and detected-change severities. A nil m (the default)
// disables instrumentation.
func (l *Loop) WithMetrics(m *metrics.Metrics) *Loop {
	l.metrics = m
	return l
}

// Add mutates the watch set while the loop runs (or before it starts).
func (l *Loop) Add(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watch[path] = true
}

// Remove mutates the watch set while the loop runs.
func (l *Loop) Remove(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.watch, path)
}

// ErrorCount returns the cumulative count of isolated per-path failures.
func (l *Loop) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errorCount
}

// WatchCount returns the number of paths currently in the watch set, for
// status reporting.
func (l *Loop) WatchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.watch)
}

func (l *Loop) watchSetSnapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.watch))
	for p := range l.watch {
		out = append(out, p)
	}
	return out
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(l.opts.CheckInterval)
	defer ticker.Stop()

	l.safeCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.safeCycle(ctx)
		}
	}
}

// safeCycle recovers a panicking cycle so one bad path can never kill the
// loop outright; per §4.7 the loop backs off and resumes instead.
func (l *Loop) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("monitor cycle panicked, backing off", "panic", r)
			select {
			case <-ctx.Done():
			case <-time.After(l.opts.BackoffInterval):
			}
		}
	}()
	l.cycle(ctx)
}

func (l *Loop) cycle(ctx context.Context) {
	started := time.Now()
	errorsBefore := l.ErrorCount()

	paths := l.watchSetSnapshot()

	for _, p := range paths {
		select {
		case <-ctx.Done():
			return
		default:
		}
		l.processPath(ctx, p)
	}

	removed := l.store.Reap(time.Now().Add(-l.opts.RetentionWindow), time.Now().Add(-l.opts.StaleRetention))
	if removed > 0 {
		logger.Debug("monitor reaped stale snapshot store entries", logger.Component("monitor"))
	}

	l.metrics.ObserveMonitorCycle(time.Since(started), l.ErrorCount()-errorsBefore)
}

func (l *Loop) processPath(ctx context.Context, p string) {
	if _, err := os.Stat(p); err != nil {
		return // path no longer exists; left in the watch set for the caller to remove
	}

	snap, err := l.scanner.Scan(ctx, p, l.opts.ScanOptions)
	if err != nil {
		l.recordError()
		logger.Warn("monitor scan failed", logger.Path(p), logger.Err(err))
		return
	}

	existing, ok := l.store.Get(p)
	if !ok {
		l.store.Put(p, snap, time.Time{})
		return
	}

	cs := change.Diff(p, existing.Snapshot, snap)
	if !cs.Significant() {
		return
	}

	severity := cs.Severity(l.opts.IsSystemSID)
	l.store.Put(p, snap, time.Time{})
	l.store.MarkStale(p)
	l.metrics.ObserveChangeDetected(string(severity))

	if l.notifier != nil {
		l.notifier.NotifyChange(p, cs, severity)
	}
}

func (l *Loop) recordError() {
	l.mu.Lock()
	l.errorCount++
	l.mu.Unlock()
}
