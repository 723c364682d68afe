// Package benchmarks measures registration churn and termination cost of
// the exitz coordinator.
package benchmarks

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zoobzio/exitz"
)

// discardHost keeps the benchmark binary alive.
type discardHost struct{}

func (discardHost) Exit(int)                              {}
func (discardHost) Notify(chan<- os.Signal, ...os.Signal) {}
func (discardHost) Stop(chan<- os.Signal)                 {}

func newCoordinator() *exitz.Coordinator {
	return exitz.New(
		exitz.WithHost(discardHost{}),
		exitz.WithLogger(zap.NewNop()),
		exitz.WithFlushers(),
	)
}

// BenchmarkRegistration measures hook registration and removal under
// concurrent load, which contends on the coordinator mutex.
func BenchmarkRegistration(b *testing.B) {
	b.Run("sync_churn", func(b *testing.B) {
		c := newCoordinator()
		var failures atomic.Int64

		b.ReportAllocs()
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				hook, err := c.OnExit(func(int) {})
				if err != nil {
					failures.Add(1)
					continue
				}
				hook.Unhook()
			}
		})

		b.ReportMetric(float64(failures.Load()), "failures")
	})

	b.Run("unhook_with_many_hooks", func(b *testing.B) {
		c := newCoordinator()
		for i := 0; i < 1000; i++ {
			if _, err := c.OnExit(func(int) {}); err != nil {
				b.Fatal(err)
			}
		}

		b.ReportAllocs()
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			hook, err := c.OnAsyncExit(func(context.Context, int) error { return nil },
				exitz.AsyncOptions{Wait: time.Second})
			if err != nil {
				b.Fatal(err)
			}
			hook.Unhook()
		}
	})
}

// BenchmarkTermination measures a full graceful sequence with a mix of
// hook kinds.
func BenchmarkTermination(b *testing.B) {
	for _, hooks := range []int{1, 10, 100} {
		hooks := hooks
		b.Run(fmt.Sprintf("hooks_%d", hooks), func(b *testing.B) {
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				b.StopTimer()
				c := newCoordinator()
				for j := 0; j < hooks; j++ {
					if _, err := c.OnExit(func(int) {}); err != nil {
						b.Fatal(err)
					}
					if _, err := c.OnAsyncExit(func(context.Context, int) error { return nil },
						exitz.AsyncOptions{Wait: time.Second}); err != nil {
						b.Fatal(err)
					}
				}
				b.StartTimer()

				c.GracefulExit(0)
			}
		})
	}
}

// BenchmarkIgnoredTrigger measures the cost of causes arriving after the
// sequence has started.
func BenchmarkIgnoredTrigger(b *testing.B) {
	c := newCoordinator()
	c.GracefulExit(0)

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.Trigger(exitz.SignalCause(os.Interrupt))
		}
	})
}
