package exitz

import (
	"os"
	"os/signal"
)

// Host is the process the coordinator terminates. The default
// implementation uses the os and os/signal packages; tests replace it to
// observe exits without ending the test binary.
type Host interface {
	// Exit terminates the process with the given code. It normally does
	// not return.
	Exit(code int)

	// Notify relays incoming signals to c.
	Notify(c chan<- os.Signal, sig ...os.Signal)

	// Stop stops relaying signals to c.
	Stop(c chan<- os.Signal)
}

// Flusher is an output collaborator synced before the host exits.
// *os.File and *zap.Logger both satisfy it.
type Flusher interface {
	Sync() error
}

type osHost struct{}

func (osHost) Exit(code int) {
	os.Exit(code)
}

func (osHost) Notify(c chan<- os.Signal, sig ...os.Signal) {
	signal.Notify(c, sig...)
}

func (osHost) Stop(c chan<- os.Signal) {
	signal.Stop(c)
}
