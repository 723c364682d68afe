package exitz

import "sync"

var (
	defaultCoordinator *Coordinator
	defaultOnce        sync.Once
)

// Default returns the process-wide coordinator used by the package-level
// functions. It is created on first use. This method is thread-safe.
func Default() *Coordinator {
	defaultOnce.Do(func() {
		defaultCoordinator = New()
	})
	return defaultCoordinator
}

// OnExit registers a synchronous hook on the default coordinator.
func OnExit(callback SyncFunc) (Hook, error) {
	return Default().OnExit(callback)
}

// OnAsyncExit registers an asynchronous hook on the default coordinator.
func OnAsyncExit(callback AsyncFunc, opts AsyncOptions) (Hook, error) {
	return Default().OnAsyncExit(callback, opts)
}

// GracefulExit runs every hook, asynchronous ones included, and terminates
// the process with code. Use it instead of os.Exit when asynchronous hooks
// are registered.
func GracefulExit(code int) {
	Default().GracefulExit(code)
}

// Exit runs the synchronous hooks and terminates the process with code.
// Asynchronous hooks do not run.
func Exit(code int) {
	Default().Exit(code)
}

// BeforeExit runs every hook and terminates the process with the pre-set
// exit code, or 0. Defer it first thing in main so it runs last:
//
//	func main() {
//		defer exitz.BeforeExit()
//		...
//	}
func BeforeExit() {
	Default().BeforeExit()
}

// Recover turns an uncaught panic on the calling goroutine into a graceful
// termination. It must be deferred directly:
//
//	defer exitz.Recover()
func Recover() {
	if r := recover(); r != nil {
		Default().HandlePanic(r)
	}
}

// SetExitCode pre-sets the code used by Exit and BeforeExit.
func SetExitCode(code int) {
	Default().SetExitCode(code)
}
