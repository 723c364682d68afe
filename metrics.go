package exitz

// Metrics provides observability data for the exit coordinator.
// Counter fields use atomic operations for thread safety.
type Metrics struct {
	// Registration Metrics (require mutex read)
	SyncHooks  int64 // Currently registered synchronous hooks
	AsyncHooks int64 // Currently registered asynchronous hooks

	// Termination Counters (atomic operations required)
	HooksRun        int64 // Hooks that completed without error
	HooksFailed     int64 // Async hooks that returned an error or panicked
	HooksAbandoned  int64 // Async hooks still running when the wait ceiling elapsed
	IgnoredTriggers int64 // Causes that fired after the sequence had started
	ForcedExits     int64 // Times the wait ceiling elapsed before all hooks settled
	FlushTimeouts   int64 // Times output flushing exceeded its grace period

	// Terminating reports whether the sequence has started.
	Terminating bool
}
