package exitz

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// hookResult reports how a single asynchronous hook settled.
type hookResult struct {
	id  string
	err error
}

// runSync invokes the synchronous hooks in registration order. A hook
// unregistered while the sequence is running is skipped if its turn has
// not come yet.
//
// Panics are not recovered: a failing synchronous hook aborts the
// sequence the same way it would abort any other code path.
func (c *Coordinator) runSync(code int) {
	c.mu.Lock()
	hooks := c.hooks.snapshotSync()
	c.mu.Unlock()

	for _, hook := range hooks {
		c.mu.Lock()
		live := c.hooks.hasSync(hook.id)
		c.mu.Unlock()
		if !live {
			continue
		}

		hook.callback(code)
		atomic.AddInt64(&c.metrics.HooksRun, 1)
	}
}

// runAsync starts every asynchronous hook concurrently and waits until all
// of them settle or the longest declared wait elapses, whichever comes
// first. Hooks still running at that point are abandoned: their results
// are drained into a buffered channel nobody reads.
func (c *Coordinator) runAsync(code int) {
	c.mu.Lock()
	hooks := c.hooks.snapshotAsync()
	c.mu.Unlock()

	if len(hooks) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var forceAfter time.Duration
	results := make(chan hookResult, len(hooks))
	for _, hook := range hooks {
		if hook.wait > forceAfter {
			forceAfter = hook.wait
		}
		go c.executeHookSafely(ctx, hook, code, results)
	}

	timer := c.clock.NewTimer(forceAfter)
	defer timer.Stop()

	for remaining := len(hooks); remaining > 0; remaining-- {
		select {
		case result := <-results:
			if result.err != nil {
				atomic.AddInt64(&c.metrics.HooksFailed, 1)
				c.logger.Error("async exit hook failed",
					zap.String("hook", result.id),
					zap.Error(result.err))
			} else {
				atomic.AddInt64(&c.metrics.HooksRun, 1)
			}
		case <-timer.C():
			atomic.AddInt64(&c.metrics.ForcedExits, 1)
			atomic.AddInt64(&c.metrics.HooksAbandoned, int64(remaining))
			c.logger.Warn("async exit hooks exceeded their wait, continuing without them",
				zap.Int("abandoned", remaining),
				zap.Duration("wait", forceAfter))
			return
		}
	}
}

// executeHookSafely runs an asynchronous hook with panic recovery so that a
// panicking hook is reported like a failing one instead of killing the
// process before the other hooks settle.
func (c *Coordinator) executeHookSafely(ctx context.Context, hook asyncEntry, code int, results chan<- hookResult) {
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrHookPanicked, "%v", r)
		}
		results <- hookResult{id: hook.id, err: err}
	}()

	err = hook.callback(ctx, code)
}

// finalize flushes output and, if the cause demands it, terminates the
// host.
func (c *Coordinator) finalize(cause Cause, code int) {
	c.state.Store(stateFinalizing)
	c.flush()
	c.state.Store(stateTerminated)

	if cause.MustExit {
		c.logger.Debug("terminating host", zap.Int("code", code))
		c.host.Exit(code)
	}

	close(c.done)
}

// flush syncs every output collaborator within the flush grace period.
// Sync errors are expected for terminals and closed pipes and are ignored.
func (c *Coordinator) flush() {
	flushers := make([]Flusher, 0, len(c.flushers)+1)
	flushers = append(flushers, c.flushers...)
	flushers = append(flushers, c.logger)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for _, f := range flushers {
			if err := f.Sync(); err != nil {
				c.logger.Debug("flush failed", zap.Error(err))
			}
		}
	}()

	timer := c.clock.NewTimer(c.flushTimeout)
	defer timer.Stop()

	select {
	case <-finished:
	case <-timer.C():
		atomic.AddInt64(&c.metrics.FlushTimeouts, 1)
		c.logger.Warn("output flush timed out", zap.Duration("timeout", c.flushTimeout))
	}
}
