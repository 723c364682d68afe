package exitz

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// waitForTimer blocks until the fake clock has a pending timer.
func waitForTimer(t *testing.T, clock *clockz.FakeClock) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !clock.HasWaiters() {
		if time.Now().After(deadline) {
			t.Fatal("coordinator never armed its timer")
		}
		runtime.Gosched()
	}
}

func TestWaitCeilingIsMaximumNotSum(t *testing.T) {
	host := newFakeHost()
	clock := clockz.NewFakeClock()
	c, _ := newTestCoordinator(host, WithClock(clock))

	var cancelled atomic.Int32
	blocking := func(ctx context.Context, code int) error {
		<-ctx.Done()
		cancelled.Add(1)
		return ctx.Err()
	}

	_, err := c.OnAsyncExit(blocking, AsyncOptions{Wait: 100 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.OnAsyncExit(blocking, AsyncOptions{Wait: 300 * time.Millisecond})
	require.NoError(t, err)

	go c.Trigger(GracefulCause(0))
	waitForTimer(t, clock)

	// The shortest budget alone must not release the coordinator.
	clock.Advance(100 * time.Millisecond)
	clock.BlockUntilReady()
	select {
	case <-host.exited:
		t.Fatal("coordinator stopped waiting before the longest budget elapsed")
	case <-time.After(50 * time.Millisecond):
	}

	// 300ms is the maximum; the sum would be 400ms.
	clock.Advance(200 * time.Millisecond)
	clock.BlockUntilReady()
	assert.Equal(t, 0, host.waitExit(t))
	waitDone(t, c)

	metrics := c.Metrics()
	assert.Equal(t, int64(1), metrics.ForcedExits)
	assert.Equal(t, int64(2), metrics.HooksAbandoned)

	// Abandoned hooks see their context cancelled once nobody waits for them.
	assert.Eventually(t, func() bool { return cancelled.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestAsyncHooksSettleBeforeCeiling(t *testing.T) {
	host := newFakeHost()
	c, _ := newTestCoordinator(host)

	for i := 0; i < 3; i++ {
		_, err := c.OnAsyncExit(func(ctx context.Context, code int) error {
			time.Sleep(10 * time.Millisecond)
			return nil
		}, AsyncOptions{Wait: 5 * time.Second})
		require.NoError(t, err)
	}

	start := time.Now()
	c.GracefulExit(0)

	assert.Less(t, time.Since(start), time.Second, "coordinator waited for the ceiling although every hook settled")
	metrics := c.Metrics()
	assert.Equal(t, int64(3), metrics.HooksRun)
	assert.Equal(t, int64(0), metrics.ForcedExits)
}

func TestAsyncHookFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	host := newFakeHost()
	c, _ := newTestCoordinator(host, WithLogger(zap.New(core)))

	_, err := c.OnAsyncExit(func(ctx context.Context, code int) error {
		return errors.New("flush failed")
	}, AsyncOptions{Wait: time.Second})
	require.NoError(t, err)

	_, err = c.OnAsyncExit(func(ctx context.Context, code int) error {
		panic("async boom")
	}, AsyncOptions{Wait: time.Second})
	require.NoError(t, err)

	var healthy atomic.Bool
	_, err = c.OnAsyncExit(func(ctx context.Context, code int) error {
		healthy.Store(true)
		return nil
	}, AsyncOptions{Wait: time.Second})
	require.NoError(t, err)

	c.GracefulExit(0)

	assert.True(t, healthy.Load())
	assert.Equal(t, []int{0}, host.Exits())
	assert.Equal(t, int64(2), c.Metrics().HooksFailed)

	failures := logs.FilterMessage("async exit hook failed").All()
	require.Len(t, failures, 2)

	var panicked int
	for _, entry := range failures {
		for _, field := range entry.Context {
			if field.Key != "error" {
				continue
			}
			if err, ok := field.Interface.(error); ok && errors.Is(err, ErrHookPanicked) {
				panicked++
			}
		}
	}
	assert.Equal(t, 1, panicked)
}

type blockingFlusher struct {
	release chan struct{}
	synced  atomic.Bool
}

func (f *blockingFlusher) Sync() error {
	<-f.release
	f.synced.Store(true)
	return nil
}

type countingFlusher struct {
	calls atomic.Int32
}

func (f *countingFlusher) Sync() error {
	f.calls.Add(1)
	return errors.New("sync /dev/stdout: invalid argument")
}

func TestFlushIsBounded(t *testing.T) {
	host := newFakeHost()
	flusher := &blockingFlusher{release: make(chan struct{})}
	t.Cleanup(func() { close(flusher.release) })

	c, _ := newTestCoordinator(host,
		WithFlushers(flusher),
		WithFlushTimeout(20*time.Millisecond))

	_, err := c.OnExit(func(int) {})
	require.NoError(t, err)

	c.GracefulExit(4)

	assert.Equal(t, []int{4}, host.Exits())
	assert.False(t, flusher.synced.Load())
	assert.Equal(t, int64(1), c.Metrics().FlushTimeouts)
}

func TestFlushErrorsAreIgnored(t *testing.T) {
	host := newFakeHost()
	stdout, stderr := &countingFlusher{}, &countingFlusher{}
	c, _ := newTestCoordinator(host, WithFlushers(stdout, stderr))

	_, err := c.OnExit(func(int) {})
	require.NoError(t, err)

	c.Exit(0)

	assert.Equal(t, int32(1), stdout.calls.Load())
	assert.Equal(t, int32(1), stderr.calls.Load())
	assert.Equal(t, int64(0), c.Metrics().FlushTimeouts)
	assert.Equal(t, []int{0}, host.Exits())
}
