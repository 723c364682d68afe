package exitz

import (
	"bytes"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeHost records exits instead of terminating the test binary and hands
// out the signal channel the coordinator binds.
type fakeHost struct {
	mu       sync.Mutex
	exits    []int
	exited   chan int
	notified chan chan<- os.Signal
	notifies atomic.Int32
	stopped  atomic.Bool
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		exited:   make(chan int, 8),
		notified: make(chan chan<- os.Signal, 8),
	}
}

func (h *fakeHost) Exit(code int) {
	h.mu.Lock()
	h.exits = append(h.exits, code)
	h.mu.Unlock()

	select {
	case h.exited <- code:
	default:
	}
}

func (h *fakeHost) Notify(c chan<- os.Signal, _ ...os.Signal) {
	h.notifies.Add(1)
	select {
	case h.notified <- c:
	default:
	}
}

func (h *fakeHost) Stop(chan<- os.Signal) {
	h.stopped.Store(true)
}

func (h *fakeHost) Exits() []int {
	h.mu.Lock()
	defer h.mu.Unlock()

	exits := make([]int, len(h.exits))
	copy(exits, h.exits)
	return exits
}

// waitExit returns the next exit code or fails the test.
func (h *fakeHost) waitExit(t *testing.T) int {
	t.Helper()
	select {
	case code := <-h.exited:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("host was not terminated")
		return -1
	}
}

// recorder collects hook output in order.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines := make([]string, len(r.lines))
	copy(lines, r.lines)
	return lines
}

// newTestCoordinator builds a coordinator that never touches the real
// process: fake host, silent logger, no output flushers.
func newTestCoordinator(host *fakeHost, opts ...Option) (*Coordinator, *bytes.Buffer) {
	notice := &bytes.Buffer{}
	base := []Option{
		WithHost(host),
		WithLogger(zap.NewNop()),
		WithNoticeWriter(notice),
		WithFlushers(),
	}
	return New(append(base, opts...)...), notice
}

func waitDone(t *testing.T, c *Coordinator) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("termination sequence did not complete")
	}
}
