// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/schoolgate/internal/config"
	"github.com/tomtom215/schoolgate/internal/logging"
	"github.com/tomtom215/schoolgate/internal/metrics"
)

var (
	// ErrQueueFull is returned by Submit when the job queue is at capacity.
	ErrQueueFull = errors.New("dispatch: queue full")

	// ErrStopped is returned by Submit after the dispatcher shut down, and is
	// delivered to jobs that were still queued at shutdown.
	ErrStopped = errors.New("dispatch: dispatcher stopped")
)

// Job is blocking work run on a worker goroutine. ctx is cancelled when the
// dispatcher shuts down.
type Job func(ctx context.Context) (any, error)

// Done receives the outcome of a Job. It always runs on the Loop.
type Done func(result any, err error)

type task struct {
	job  Job
	done Done
}

// Dispatcher runs jobs on a bounded worker pool and posts each result back
// to a Loop. It implements suture.Service.
type Dispatcher struct {
	loop    Loop
	workers int
	queue   chan task

	mu      sync.RWMutex
	stopped bool
}

// New creates a dispatcher. Jobs may be submitted before Serve starts; they
// wait in the queue.
func New(cfg config.DispatchConfig, loop Loop) *Dispatcher {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 2
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 32
	}
	return &Dispatcher{
		loop:    loop,
		workers: workers,
		queue:   make(chan task, size),
	}
}

// Submit queues job without blocking. done may be nil.
func (d *Dispatcher) Submit(job Job, done Done) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		metrics.RecordDispatchJob("rejected")
		return ErrStopped
	}
	select {
	case d.queue <- task{job: job, done: done}:
		metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		metrics.RecordDispatchJob("rejected")
		return ErrQueueFull
	}
}

// Go is a typed wrapper around Submit.
func Go[T any](d *Dispatcher, job func(ctx context.Context) (T, error), done func(T, error)) error {
	var wrappedDone Done
	if done != nil {
		wrappedDone = func(result any, err error) {
			v, _ := result.(T)
			done(v, err)
		}
	}
	return d.Submit(func(ctx context.Context) (any, error) {
		return job(ctx)
	}, wrappedDone)
}

// Serve runs the workers until ctx is cancelled. In-flight jobs see the
// cancellation; jobs still queued are completed with ErrStopped, and later
// submissions are rejected.
func (d *Dispatcher) Serve(ctx context.Context) error {
	d.mu.RLock()
	stopped := d.stopped
	d.mu.RUnlock()
	if stopped {
		return fmt.Errorf("%w: %w", ErrStopped, suture.ErrDoNotRestart)
	}

	logging.Debug().Int("workers", d.workers).Int("queue_size", cap(d.queue)).Msg("Dispatcher started")

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	d.stop()

	logging.Debug().Msg("Dispatcher stopped")
	return ctx.Err()
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-d.queue:
			metrics.DispatchQueueDepth.Set(float64(len(d.queue)))
			d.run(ctx, t)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, t task) {
	result, err := call(ctx, t.job)
	if err != nil {
		metrics.RecordDispatchJob("error")
	} else {
		metrics.RecordDispatchJob("ok")
	}
	d.deliver(t.done, result, err)
}

func (d *Dispatcher) deliver(done Done, result any, err error) {
	if done == nil {
		return
	}
	d.loop.Post(func() { done(result, err) })
}

// stop rejects new submissions and fails whatever is still queued.
func (d *Dispatcher) stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	for {
		select {
		case t := <-d.queue:
			metrics.RecordDispatchJob("rejected")
			d.deliver(t.done, nil, ErrStopped)
		default:
			metrics.DispatchQueueDepth.Set(0)
			return
		}
	}
}

// call runs job, turning a panic into an error so one bad job cannot take
// down the pool.
func call(ctx context.Context, job Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Dispatched job panicked")
			result, err = nil, fmt.Errorf("dispatch: job panicked: %v", r)
		}
	}()
	return job(ctx)
}

func (d *Dispatcher) String() string {
	return "dispatcher"
}
