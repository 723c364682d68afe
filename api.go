// Package exitz runs cleanup hooks exactly once when a process terminates,
// whatever the cause: an explicit exit, a termination signal, an uncaught
// panic, a supervisor's shutdown message or the end of main.
//
// Hooks come in two kinds:
//   - Synchronous hooks run on every cause, in registration order
//   - Asynchronous hooks declare how long they need and only run when the
//     cause allows waiting; they all start together after the synchronous
//     hooks and the coordinator waits for the longest declared budget
//
// Basic Usage:
//
//	hook, err := exitz.OnExit(func(code int) {
//		fmt.Println("exiting with", code)
//	})
//	if err != nil {
//		return err
//	}
//	defer hook.Unhook() // if the cleanup is no longer needed
//
//	_, err = exitz.OnAsyncExit(func(ctx context.Context, code int) error {
//		return producer.Flush(ctx)
//	}, exitz.AsyncOptions{Wait: 500 * time.Millisecond})
//
//	// instead of os.Exit
//	exitz.GracefulExit(0)
//
// Termination Causes:
//
//	Cause               Async hooks  Exit code
//	Exit(code)          skipped      code
//	BeforeExit()        run          SetExitCode value or 0
//	SIGHUP/SIGINT/TERM  run          128 + signal number
//	Recover()           run          2
//	shutdown message    run          0
//	GracefulExit(code)  run          code
//
// Only the first cause runs the hooks; later causes are ignored. Hook
// registration binds the termination signals lazily, on first use.
//
// Custom Coordinators:
//
//	coordinator := exitz.New(
//		exitz.WithLogger(logger),
//		exitz.WithFlushTimeout(2*time.Second),
//		exitz.WithShutdownMessages(os.Stdin),
//	)
package exitz
