// Package workerpool bounds how many blocking Windows syscalls (DACL
// reads, SID/group lookups) run concurrently, so a caller like the
// monitor loop or a recursive scan never spawns an unbounded number of
// OS threads blocked in cgo/syscall calls.
package workerpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/shareguard/shareguard/internal/logger"
)

// DefaultWorkers is used when Config.Workers is unset.
const DefaultWorkers = 8

// DefaultQueueSize is used when Config.QueueSize is unset.
const DefaultQueueSize = 256

// Config configures a Pool.
type Config struct {
	Workers   int
	QueueSize int
}

func (c *Config) setDefaults() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
}

type job struct {
	fn     func(ctx context.Context)
	result chan struct{}
}

// Pool is a fixed-size pool of workers draining a bounded job queue.
type Pool struct {
	cfg Config

	jobs chan job

	mu        sync.Mutex
	started   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
	wg        sync.WaitGroup
}

// New constructs a Pool. Call Start before Submit/Dispatch.
func New(cfg Config) *Pool {
	cfg.setDefaults()
	return &Pool{
		cfg:       cfg,
		jobs:      make(chan job, cfg.QueueSize),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start spawns the pool's worker goroutines. Idempotent.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	logger.Debug("starting worker pool", "workers", p.cfg.Workers)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	go func() {
		p.wg.Wait()
		close(p.stoppedCh)
	}()
}

// Stop signals workers to drain the remaining queue and exit, then blocks
// until they do.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	select {
	case <-p.stopCh:
	default:
		close(p.stopCh)
	}
	p.mu.Unlock()

	<-p.stoppedCh
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			p.drain(ctx)
			return
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			p.run(ctx, j)
		}
	}
}

func (p *Pool) drain(ctx context.Context) {
	for {
		select {
		case j := <-p.jobs:
			p.run(ctx, j)
		default:
			return
		}
	}
}

func (p *Pool) run(ctx context.Context, j job) {
	defer close(j.result)
	j.fn(ctx)
}

// ErrPoolNotStarted is returned by Submit when Start has not been called.
var ErrPoolNotStarted = fmt.Errorf("workerpool: pool not started")

// Submit runs fn on a worker goroutine and blocks until it completes or
// ctx is cancelled. The call itself is bounded by the pool's worker count
// and queue capacity: Submit blocks the caller while waiting for a free
// worker slot if the queue is full.
func (p *Pool) Submit(ctx context.Context, fn func(ctx context.Context) error) error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return ErrPoolNotStarted
	}

	var callErr error
	j := job{
		fn: func(ctx context.Context) {
			callErr = fn(ctx)
		},
		result: make(chan struct{}),
	}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-j.result:
		return callErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispatch is Submit's typed counterpart: it runs fn on a pool worker and
// returns its value and error, for call sites that need a result rather
// than just a completion signal (e.g. a DACL read or a SID lookup).
func Dispatch[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var value T
	err := p.Submit(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		value = v
		return err
	})
	return value, err
}
