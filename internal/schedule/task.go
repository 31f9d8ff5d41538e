// Package schedule provides the repeating-task primitive behind both the
// capture scheduler and the monitoring poller: a named function run on a
// fixed cadence with a start/stop lifecycle, a forced immediate run, and a
// guard that skips a tick while the previous run is still in flight so
// concurrent uploads stay bounded.
package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Task runs fn repeatedly until stopped. Every run receives a context that
// is cancelled by Stop; fn owns its own errors (a failed run never stops
// the cadence).
type Task struct {
	name     string
	interval time.Duration
	clock    Clock
	log      zerolog.Logger
	fn       func(ctx context.Context)

	mu      sync.Mutex
	runCtx  context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool

	inFlight atomic.Bool
	runs     sync.WaitGroup
}

// NewTask creates a Task. fn must respect ctx cancellation on its blocking
// calls.
func NewTask(name string, interval time.Duration, clock Clock, log zerolog.Logger, fn func(ctx context.Context)) *Task {
	return &Task{
		name:     name,
		interval: interval,
		clock:    clock,
		log:      log.With().Str("task", name).Logger(),
		fn:       fn,
	}
}

// Start begins the cadence: one immediate run, then one per interval.
// Starting a running task is a no-op.
func (t *Task) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.runCtx = runCtx
	t.cancel = cancel
	t.done = make(chan struct{})
	t.started = true

	ticker := t.clock.NewTicker(t.interval)

	go func() {
		defer close(t.done)
		defer ticker.Stop()

		t.launch(runCtx)
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C():
				t.launch(runCtx)
			}
		}
	}()

	t.log.Debug().Dur("interval", t.interval).Msg("Task started")
}

// Fire runs fn immediately, outside the cadence, e.g. when a filter change
// must not wait for the next tick. No-op if the task is not running or a
// run is already in flight.
func (t *Task) Fire() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	t.launch(t.runCtx)
}

// launch starts one guarded run. The WaitGroup is incremented before the
// goroutine exists so Stop can never miss a run it raced with.
func (t *Task) launch(ctx context.Context) {
	t.runs.Add(1)
	go func() {
		defer t.runs.Done()
		t.run(ctx)
	}()
}

// run executes fn once unless a previous run is still in flight.
func (t *Task) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !t.inFlight.CompareAndSwap(false, true) {
		t.log.Debug().Msg("Previous run still in flight, skipping tick")
		return
	}
	defer t.inFlight.Store(false)

	t.fn(ctx)
}

// Stop cancels the cadence and blocks until the loop has exited and any
// in-flight run has returned. Idempotent: stopping a stopped task is a
// no-op, so teardown paths can all call it unconditionally.
func (t *Task) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	t.started = false
	cancel := t.cancel
	done := t.done
	t.cancel = nil
	t.mu.Unlock()

	cancel()
	<-done
	t.runs.Wait()

	t.log.Debug().Msg("Task stopped")
}

// Running reports whether the task is currently scheduled.
func (t *Task) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}
