package exitz

import (
	"fmt"
	"os"
	"syscall"
)

// CauseKind identifies what started the termination sequence.
type CauseKind int

// Termination causes.
const (
	// CauseNaturalExit is the host's own, non-cancelable exit. Only
	// synchronous hooks run.
	CauseNaturalExit CauseKind = iota
	// CauseBeforeExit is raised when the program is about to finish on
	// its own and can still wait for asynchronous work.
	CauseBeforeExit
	// CauseSignal is an OS termination signal.
	CauseSignal
	// CausePanic is an uncaught panic reported through Recover.
	CausePanic
	// CauseShutdownMessage is a shutdown request from a supervising parent.
	CauseShutdownMessage
	// CauseGraceful is an explicit call to GracefulExit.
	CauseGraceful
)

// PanicExitCode is the exit code used after an uncaught panic. It matches
// the status the Go runtime uses when a panic kills the process.
const PanicExitCode = 2

// String returns the cause name used in logs.
func (k CauseKind) String() string {
	switch k {
	case CauseNaturalExit:
		return "exit"
	case CauseBeforeExit:
		return "before-exit"
	case CauseSignal:
		return "signal"
	case CausePanic:
		return "panic"
	case CauseShutdownMessage:
		return "shutdown-message"
	case CauseGraceful:
		return "graceful"
	default:
		return fmt.Sprintf("cause(%d)", int(k))
	}
}

// Cause describes a termination trigger and how the coordinator must
// treat it. Build one with the constructors below.
type Cause struct {
	Kind CauseKind

	// MustExit asks the coordinator to terminate the host itself once
	// the hooks have run.
	MustExit bool

	// Synchronous marks a host-controlled exit: the host has already
	// decided to die and asynchronous hooks are skipped.
	Synchronous bool

	// Signal is set for CauseSignal.
	Signal os.Signal

	// Code is the explicit exit code for CauseGraceful.
	Code int

	// Panic holds the recovered value for CausePanic.
	Panic interface{}
}

// NaturalExit is the host-controlled synchronous exit.
func NaturalExit() Cause {
	return Cause{Kind: CauseNaturalExit, Synchronous: true}
}

// BeforeExitCause is the cancelable end of the program.
func BeforeExitCause() Cause {
	return Cause{Kind: CauseBeforeExit, MustExit: true}
}

// SignalCause wraps a received OS signal.
func SignalCause(sig os.Signal) Cause {
	return Cause{Kind: CauseSignal, MustExit: true, Signal: sig}
}

// PanicCause wraps a recovered panic value.
func PanicCause(v interface{}) Cause {
	return Cause{Kind: CausePanic, MustExit: true, Panic: v}
}

// ShutdownMessageCause is a supervisor's shutdown request.
func ShutdownMessageCause() Cause {
	return Cause{Kind: CauseShutdownMessage, MustExit: true}
}

// GracefulCause is an explicit graceful exit with the given code.
func GracefulCause(code int) Cause {
	return Cause{Kind: CauseGraceful, MustExit: true, Code: code}
}

// exitCode maps a cause to the code handed to hooks and to the host. preset
// is the code set through SetExitCode, if any.
func (c Cause) exitCode(preset int, hasPreset bool) int {
	switch c.Kind {
	case CauseSignal:
		return signalExitCode(c.Signal)
	case CausePanic:
		return PanicExitCode
	case CauseGraceful:
		return c.Code
	case CauseShutdownMessage:
		return 0
	default:
		if hasPreset {
			return preset
		}
		return 0
	}
}

// signalExitCode follows the shell convention of 128 plus the signal
// number.
func signalExitCode(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok && int(s) > 0 {
		return 128 + int(s)
	}
	return 1
}
