package exitz

import (
	"context"
	"sync"
	"time"
)

// SyncFunc is a synchronous exit hook. It receives the effective exit code
// and must not block: it runs on every termination cause, including the
// host-controlled exit where nothing can be waited for.
type SyncFunc func(code int)

// AsyncFunc is an asynchronous exit hook. It is considered complete when it
// returns. The context is cancelled once the coordinator stops waiting,
// either because every hook settled or because the wait ceiling elapsed.
type AsyncFunc func(ctx context.Context, code int) error

// AsyncOptions configures an asynchronous hook.
type AsyncOptions struct {
	// Wait is the time the hook is expected to need. It must be positive.
	// The coordinator waits for the longest Wait among the registered
	// hooks, not their sum.
	Wait time.Duration
}

// SyncHandler describes the function signatures accepted by Sync.
type SyncHandler interface {
	func() | func(int)
}

// AsyncHandler describes the function signatures accepted by Async.
type AsyncHandler interface {
	func() | func() error | func(int) error | func(context.Context, int) error
}

// Sync adapts a plain function to a SyncFunc. A nil function yields a nil
// SyncFunc, which registration rejects.
//
// Accepted function signatures:
// func ()
// func (int)
func Sync[F SyncHandler](fn F) SyncFunc {
	switch fn := any(fn).(type) {
	case func():
		if fn == nil {
			return nil
		}
		return func(int) { fn() }
	case func(int):
		if fn == nil {
			return nil
		}
		return SyncFunc(fn)
	}
	return nil
}

// Async adapts a plain function to an AsyncFunc. A nil function yields a
// nil AsyncFunc, which registration rejects.
//
// Accepted function signatures:
// func ()
// func () error
// func (int) error
// func (context.Context, int) error
func Async[F AsyncHandler](fn F) AsyncFunc {
	switch fn := any(fn).(type) {
	case func():
		if fn == nil {
			return nil
		}
		return func(context.Context, int) error {
			fn()
			return nil
		}
	case func() error:
		if fn == nil {
			return nil
		}
		return func(context.Context, int) error { return fn() }
	case func(int) error:
		if fn == nil {
			return nil
		}
		return func(_ context.Context, code int) error { return fn(code) }
	case func(context.Context, int) error:
		if fn == nil {
			return nil
		}
		return AsyncFunc(fn)
	}
	return nil
}

// AsyncCallback adapts a hook written in continuation style: the hook calls
// done when its work is finished, possibly from another goroutine.
func AsyncCallback(fn func(code int, done func())) AsyncFunc {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, code int) error {
		finished := make(chan struct{})
		var once sync.Once
		fn(code, func() { once.Do(func() { close(finished) }) })
		select {
		case <-finished:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
