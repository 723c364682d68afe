package exitz

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultFlushTimeout bounds how long finalization waits for output to be
// flushed before the host exits.
const DefaultFlushTimeout = time.Second

// synchronousNotice is written when a host-controlled exit happens while
// asynchronous hooks are registered.
var synchronousNotice = strings.Join([]string{
	"SYNCHRONOUS TERMINATION NOTICE:",
	"When explicitly exiting the process via exitz.Exit or via a parent process,",
	"asynchronous tasks in your exit hooks will not run. Either remove these tasks,",
	"use GracefulExit() instead of Exit(), or ensure your parent process",
	"sends a SIGINT to the process running this code.",
}, " ")

// Termination states. The only way out of stateIdle is the compare-and-swap
// in Trigger, which makes the sequence single-fire. stateAborted means a
// synchronous hook panicked and the sequence never reached finalize.
const (
	stateIdle int32 = iota
	stateRunning
	stateFinalizing
	stateTerminated
	stateAborted
)

// Option configures a Coordinator during creation.
type Option func(*config)

// config holds internal configuration for coordinator creation.
type config struct {
	clock        clockz.Clock // Time abstraction for deterministic testing
	host         Host
	logger       *zap.Logger
	notice       io.Writer
	flushTimeout time.Duration
	flushers     []Flusher
	signals      []os.Signal
	messages     io.Reader
}

// WithClock sets the clock used for the wait ceiling and the flush grace
// period. Default is clockz.RealClock.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithHost replaces the process collaborator. Default terminates through
// os.Exit and listens through os/signal.
func WithHost(host Host) Option {
	return func(c *config) {
		c.host = host
	}
}

// WithLogger sets the diagnostics logger. Default logs warnings and errors
// to stderr.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithNoticeWriter sets where the synchronous termination notice is
// written. Default is os.Stderr.
func WithNoticeWriter(w io.Writer) Option {
	return func(c *config) {
		c.notice = w
	}
}

// WithFlushTimeout sets the grace period for flushing output before the
// host exits. Default is DefaultFlushTimeout.
func WithFlushTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.flushTimeout = timeout
	}
}

// WithFlushers replaces the output collaborators synced before exit.
// Default is os.Stdout and os.Stderr. The logger is always synced.
func WithFlushers(flushers ...Flusher) Option {
	return func(c *config) {
		c.flushers = flushers
	}
}

// WithSignals replaces the termination signals the coordinator binds to.
// Passing no signals disables signal handling.
func WithSignals(signals ...os.Signal) Option {
	return func(c *config) {
		c.signals = signals
	}
}

// WithShutdownMessages makes the coordinator read line-delimited messages
// from r, typically a pipe from a supervising parent. A line reading
// "shutdown" starts a graceful termination.
func WithShutdownMessages(r io.Reader) Option {
	return func(c *config) {
		c.messages = r
	}
}

// Coordinator owns the exit hooks of a process and runs them exactly once,
// whichever termination cause fires first.
//
// Thread Safety:
// Registration, unregistration and Trigger are safe for concurrent use.
// Hooks run outside the lock, so a hook may unregister other hooks.
type Coordinator struct {
	clock        clockz.Clock
	host         Host
	logger       *zap.Logger
	notice       io.Writer
	flushTimeout time.Duration
	flushers     []Flusher
	signals      []os.Signal
	messages     io.Reader

	mu          sync.Mutex
	hooks       registry
	exitCode    int
	hasExitCode bool

	state    atomic.Int32
	bindOnce sync.Once
	done     chan struct{}

	metrics Metrics
}

// New creates a coordinator with the specified options.
//
// Default configuration:
//   - real clock
//   - os.Exit and os/signal as the host
//   - SIGHUP, SIGINT and SIGTERM on unix, os.Interrupt elsewhere
//   - stdout and stderr flushed within one second
//
// Most programs use the process-wide coordinator through the package-level
// functions instead.
func New(opts ...Option) *Coordinator {
	cfg := config{
		clock:        clockz.RealClock,
		host:         osHost{},
		notice:       os.Stderr,
		flushTimeout: DefaultFlushTimeout,
		flushers:     []Flusher{os.Stdout, os.Stderr},
		signals:      defaultSignals(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.logger == nil {
		cfg.logger = newDefaultLogger()
	}

	return &Coordinator{
		clock:        cfg.clock,
		host:         cfg.host,
		logger:       cfg.logger,
		notice:       cfg.notice,
		flushTimeout: cfg.flushTimeout,
		flushers:     cfg.flushers,
		signals:      cfg.signals,
		messages:     cfg.messages,
		done:         make(chan struct{}),
	}
}

func newDefaultLogger() *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		zap.WarnLevel,
	)
	return zap.New(core).Named("exitz")
}

// OnExit registers a synchronous hook. It runs on every termination cause,
// before any asynchronous hook starts.
func (c *Coordinator) OnExit(callback SyncFunc) (Hook, error) {
	if callback == nil {
		return Hook{}, invalidArgument("exit hook must not be nil")
	}

	c.mu.Lock()
	if c.state.Load() != stateIdle {
		c.mu.Unlock()
		return Hook{}, ErrTerminating
	}
	id := c.hooks.addSync(callback)
	c.mu.Unlock()

	c.bind()

	return newHook(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.hooks.removeSync(id)
	}), nil
}

// OnAsyncExit registers an asynchronous hook. It only runs when the
// termination cause allows waiting: signals, GracefulExit, BeforeExit,
// Recover and shutdown messages. Exit skips it.
func (c *Coordinator) OnAsyncExit(callback AsyncFunc, opts AsyncOptions) (Hook, error) {
	if callback == nil {
		return Hook{}, invalidArgument("async exit hook must not be nil")
	}
	if opts.Wait <= 0 {
		return Hook{}, invalidArgument("wait must be positive, got %s", opts.Wait)
	}

	c.mu.Lock()
	if c.state.Load() != stateIdle {
		c.mu.Unlock()
		return Hook{}, ErrTerminating
	}
	id := c.hooks.addAsync(callback, opts.Wait)
	c.mu.Unlock()

	c.bind()

	return newHook(func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.hooks.removeAsync(id)
	}), nil
}

// SetExitCode pre-sets the code used when the program ends through Exit or
// BeforeExit. Signals, panics and GracefulExit use their own codes.
func (c *Coordinator) SetExitCode(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.exitCode = code
	c.hasExitCode = true
}

// ExitCode returns the pre-set exit code and whether one was set.
func (c *Coordinator) ExitCode() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.exitCode, c.hasExitCode
}

// Trigger runs the termination sequence for the given cause and reports
// whether this call started it. Only the first call does anything; later
// calls return false immediately whatever their cause.
//
// Trigger blocks until the hooks have settled or the wait ceiling elapsed
// and output has been flushed. If the cause requires it, the host is then
// terminated and Trigger does not return.
//
// A panicking synchronous hook aborts the sequence: Done is closed and the
// panic continues up the calling goroutine.
func (c *Coordinator) Trigger(cause Cause) bool {
	if !c.state.CompareAndSwap(stateIdle, stateRunning) {
		atomic.AddInt64(&c.metrics.IgnoredTriggers, 1)
		c.logger.Debug("termination already triggered, ignoring cause",
			zap.Stringer("cause", cause.Kind))
		return false
	}

	completed := false
	defer func() {
		if !completed {
			c.state.Store(stateAborted)
			close(c.done)
		}
	}()

	c.mu.Lock()
	hasAsync := len(c.hooks.asyncHooks) > 0
	code := cause.exitCode(c.exitCode, c.hasExitCode)
	c.mu.Unlock()

	if cause.Synchronous && hasAsync {
		fmt.Fprintln(c.notice, synchronousNotice)
	}

	c.logger.Debug("termination triggered",
		zap.Stringer("cause", cause.Kind),
		zap.Int("code", code),
		zap.Bool("synchronous", cause.Synchronous))

	c.runSync(code)

	if !cause.Synchronous {
		c.runAsync(code)
	}

	c.finalize(cause, code)
	completed = true
	return true
}

// wait blocks until the sequence started by another cause is over. If that
// sequence was aborted by a panicking hook, nothing else will end the
// process, so the host is terminated with PanicExitCode.
func (c *Coordinator) wait() {
	<-c.done
	if c.state.Load() == stateAborted {
		c.host.Exit(PanicExitCode)
	}
}

// GracefulExit terminates the process with code after running every hook,
// asynchronous ones included. If another cause already started the
// sequence, GracefulExit waits for it to finish instead.
//
// Hooks must not call GracefulExit: the sequence would wait on itself.
func (c *Coordinator) GracefulExit(code int) {
	if !c.Trigger(GracefulCause(code)) {
		c.wait()
	}
}

// Exit is a replacement for os.Exit that runs the synchronous hooks first.
// Asynchronous hooks are skipped and, if any are registered, a notice is
// written to the notice writer (stderr by default).
func (c *Coordinator) Exit(code int) {
	c.SetExitCode(code)
	c.Trigger(NaturalExit())
	c.host.Exit(code)
}

// BeforeExit runs every hook, asynchronous ones included, and terminates
// the host with the pre-set exit code or 0. Defer it at the top of main.
func (c *Coordinator) BeforeExit() {
	if !c.Trigger(BeforeExitCause()) {
		c.wait()
	}
}

// Recover turns an uncaught panic into a graceful termination with
// PanicExitCode. Defer it directly:
//
//	defer coordinator.Recover()
func (c *Coordinator) Recover() {
	if r := recover(); r != nil {
		c.HandlePanic(r)
	}
}

// HandlePanic logs a recovered panic value and terminates gracefully with
// PanicExitCode.
//
// A panic while hooks are still running, or one raised by a hook that
// aborted the sequence, terminates the host with PanicExitCode at once.
func (c *Coordinator) HandlePanic(v interface{}) {
	c.logger.Error("uncaught panic, terminating",
		zap.Any("panic", v),
		zap.StackSkip("stack", 1))
	if c.Trigger(PanicCause(v)) {
		return
	}

	switch c.state.Load() {
	case stateRunning, stateAborted:
		c.host.Exit(PanicExitCode)
	default:
		c.wait()
	}
}

// Done is closed once the termination sequence has completed without the
// host ending the process, which only happens with a Host that returns from
// Exit or for causes that leave the exit to the caller.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Metrics returns current coordinator metrics with thread-safe access.
func (c *Coordinator) Metrics() Metrics {
	c.mu.Lock()
	syncHooks := int64(len(c.hooks.syncHooks))
	asyncHooks := int64(len(c.hooks.asyncHooks))
	c.mu.Unlock()

	return Metrics{
		SyncHooks:       syncHooks,
		AsyncHooks:      asyncHooks,
		HooksRun:        atomic.LoadInt64(&c.metrics.HooksRun),
		HooksFailed:     atomic.LoadInt64(&c.metrics.HooksFailed),
		HooksAbandoned:  atomic.LoadInt64(&c.metrics.HooksAbandoned),
		IgnoredTriggers: atomic.LoadInt64(&c.metrics.IgnoredTriggers),
		ForcedExits:     atomic.LoadInt64(&c.metrics.ForcedExits),
		FlushTimeouts:   atomic.LoadInt64(&c.metrics.FlushTimeouts),
		Terminating:     c.state.Load() != stateIdle,
	}
}
