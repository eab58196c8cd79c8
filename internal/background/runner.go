// Package background runs work that must outlive the request that scheduled it.
package background

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultTaskTimeout = 5 * time.Minute

// ErrStopped is returned by Go after Shutdown has begun.
var ErrStopped = errors.New("background: runner stopped")

// Task is a unit of background work.
type Task func(ctx context.Context) error

// Scheduler is the capability handed to services that need deferred work.
type Scheduler interface {
	Go(name string, task Task) error
}

// Runner tracks detached tasks so shutdown can wait for them to finish.
type Runner struct {
	mu       sync.Mutex
	wg       sync.WaitGroup
	stopped  bool
	base     context.Context
	timeout  time.Duration
	inflight int
}

// NewRunner returns a runner whose tasks inherit values, but not cancellation,
// from parent and are bounded by timeout.
func NewRunner(parent context.Context, timeout time.Duration) *Runner {
	if parent == nil {
		parent = context.Background()
	}
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}
	return &Runner{base: context.WithoutCancel(parent), timeout: timeout}
}

// Go starts task in its own goroutine. Errors and panics are logged and
// swallowed.
func (r *Runner) Go(name string, task Task) error {
	if task == nil {
		return nil
	}
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrStopped, name)
	}
	r.wg.Add(1)
	r.inflight++
	r.mu.Unlock()

	go func() {
		defer func() {
			r.mu.Lock()
			r.inflight--
			r.mu.Unlock()
			r.wg.Done()
		}()
		r.run(name, task)
	}()
	return nil
}

func (r *Runner) run(name string, task Task) {
	ctx, cancel := context.WithTimeout(r.base, r.timeout)
	defer cancel()
	defer func() {
		if recovered := recover(); recovered != nil {
			log.WithField("task", name).Errorf("background task panic: %v\n%s", recovered, debug.Stack())
		}
	}()

	start := time.Now()
	if err := task(ctx); err != nil {
		log.WithError(err).WithField("task", name).Warn("background task failed")
		return
	}
	log.WithField("task", name).Debugf("background task finished in %s", time.Since(start))
}

// Inflight returns the number of running tasks.
func (r *Runner) Inflight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inflight
}

// Wait blocks until every started task has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown stops accepting tasks and waits for running ones until ctx ends.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background: shutdown with %d tasks running: %w", r.Inflight(), ctx.Err())
	}
}

// Retry runs fn up to attempts times with a linear backoff, stopping early
// when ctx ends.
func Retry(ctx context.Context, attempts int, backoff time.Duration, fn func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(time.Duration(attempt) * backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(lastErr, ctx.Err())
		case <-timer.C:
		}
	}
	return lastErr
}
