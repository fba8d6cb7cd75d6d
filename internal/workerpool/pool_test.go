package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmit_RunsOnWorkerAndReturnsResult(t *testing.T) {
	p := New(Config{Workers: 2, QueueSize: 4})
	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()

	err := p.Submit(ctx, func(ctx context.Context) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantErr := errors.New("syscall failed")
	err = p.Submit(ctx, func(ctx context.Context) error { return wantErr })
	if err != wantErr {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestDispatch_ReturnsTypedValue(t *testing.T) {
	p := New(Config{Workers: 2, QueueSize: 4})
	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()

	v, err := Dispatch(ctx, p, func(ctx context.Context) (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Fatalf("Dispatch = (%d, %v), want (42, nil)", v, err)
	}
}

func TestSubmit_BoundsConcurrency(t *testing.T) {
	p := New(Config{Workers: 2, QueueSize: 8})
	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()

	var inFlight int32
	var maxSeen int32
	done := make(chan struct{}, 8)

	for i := 0; i < 8; i++ {
		go func() {
			p.Submit(ctx, func(ctx context.Context) error {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					old := atomic.LoadInt32(&maxSeen)
					if n <= old || atomic.CompareAndSwapInt32(&maxSeen, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inFlight, -1)
				return nil
			})
			done <- struct{}{}
		}()
	}

	for i := 0; i < 8; i++ {
		<-done
	}

	if atomic.LoadInt32(&maxSeen) > 2 {
		t.Errorf("expected at most 2 concurrent jobs (pool size), saw %d", maxSeen)
	}
}

func TestSubmit_NotStartedReturnsError(t *testing.T) {
	p := New(Config{})
	err := p.Submit(context.Background(), func(ctx context.Context) error { return nil })
	if err != ErrPoolNotStarted {
		t.Errorf("expected ErrPoolNotStarted, got %v", err)
	}
}

func TestSubmit_ContextCancelledWhileQueued(t *testing.T) {
	p := New(Config{Workers: 1, QueueSize: 1})
	ctx := context.Background()
	p.Start(ctx)
	defer p.Stop()

	block := make(chan struct{})
	go p.Submit(ctx, func(ctx context.Context) error {
		<-block
		return nil
	})
	time.Sleep(10 * time.Millisecond) // let the first job occupy the only worker

	cancelCtx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Submit(cancelCtx, func(ctx context.Context) error { return nil })
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	close(block)
}

func TestStop_IdempotentWithoutStart(t *testing.T) {
	p := New(Config{})
	p.Stop() // must not panic or block
}

func TestStart_DoubleStartIsNoop(t *testing.T) {
	p := New(Config{Workers: 1})
	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx)
	p.Stop()
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.setDefaults()
	if cfg.Workers != DefaultWorkers {
		t.Errorf("default Workers = %d, want %d", cfg.Workers, DefaultWorkers)
	}
	if cfg.QueueSize != DefaultQueueSize {
		t.Errorf("default QueueSize = %d, want %d", cfg.QueueSize, DefaultQueueSize)
	}
}
