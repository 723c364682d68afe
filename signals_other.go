//go:build !unix

package exitz

import "os"

// defaultSignals are the termination signals bound on first registration.
func defaultSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func signalName(sig os.Signal) string {
	return sig.String()
}
