package exitz

import "github.com/cockroachdb/errors"

// Registration Errors
//
// These errors are returned synchronously by OnExit and OnAsyncExit so that
// misuse surfaces at the call site instead of during shutdown.

// ErrInvalidArgument is returned when a hook is nil or an asynchronous
// hook declares a non-positive wait budget. Returned errors wrap this
// sentinel with details; test for it with errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrTerminating is returned when registering a hook after the
// termination sequence has already started. Such a hook could never run.
var ErrTerminating = errors.New("termination already in progress")

// Hook Execution Errors
//
// These errors are reported during the termination sequence.

// ErrHookPanicked is recorded when an asynchronous hook panics. The panic is
// recovered on the hook's goroutine, logged and counted as a failure.
var ErrHookPanicked = errors.New("hook panicked during execution")

func invalidArgument(format string, args ...interface{}) error {
	return errors.WithHint(
		errors.Wrapf(ErrInvalidArgument, format, args...),
		"hooks must be non-nil and asynchronous hooks need a positive Wait",
	)
}
