//go:build unix

package exitz

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// defaultSignals are the termination signals bound on first registration.
// SIGQUIT keeps its default behaviour so a stuck process can still dump
// its goroutines.
func defaultSignals() []os.Signal {
	return []os.Signal{unix.SIGHUP, unix.SIGINT, unix.SIGTERM}
}

func signalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if name := unix.SignalName(s); name != "" {
			return name
		}
	}
	return sig.String()
}
