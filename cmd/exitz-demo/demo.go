package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/zoobzio/exitz"
	"github.com/zoobzio/exitz/metrics"
)

// demo registers the sample hooks on a coordinator and terminates through
// the configured mode.
type demo struct {
	cfg         Config
	out         io.Writer
	logger      *zap.Logger
	coordinator *exitz.Coordinator
}

func (d *demo) println(a ...any) {
	fmt.Fprintln(d.out, a...)
}

// register installs foo and bar, unhooks baz and, when a wait is
// configured, adds the asynchronous quux hook.
func (d *demo) register() error {
	for _, word := range []string{"foo", "bar"} {
		word := word
		if _, err := d.coordinator.OnExit(func(code int) {
			d.println(word)
		}); err != nil {
			return errors.Wrapf(err, "register %s", word)
		}
	}

	baz, err := d.coordinator.OnExit(func(int) { d.println("baz") })
	if err != nil {
		return errors.Wrap(err, "register baz")
	}
	baz.Unhook()

	if d.cfg.PrintCode {
		if _, err := d.coordinator.OnExit(func(code int) {
			d.println(strconv.Itoa(code))
		}); err != nil {
			return errors.Wrap(err, "register code printer")
		}
	}

	if d.cfg.Wait > 0 {
		if _, err := d.coordinator.OnAsyncExit(d.quux, exitz.AsyncOptions{Wait: d.cfg.Wait}); err != nil {
			return errors.Wrap(err, "register quux")
		}
	}

	return nil
}

func (d *demo) quux(ctx context.Context, code int) error {
	select {
	case <-time.After(d.cfg.Work):
	case <-ctx.Done():
		return ctx.Err()
	}
	if d.cfg.PrintCode {
		d.println(strconv.Itoa(code))
		return nil
	}
	d.println("quux")
	return nil
}

// serveMetrics exposes the coordinator metrics until the process ends.
func (d *demo) serveMetrics() {
	if d.cfg.MetricsAddr == "" {
		return
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewCollector(d.coordinator))

	server := &http.Server{
		Addr:              d.cfg.MetricsAddr,
		Handler:           metrics.Handler(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// run terminates through the configured mode. Except for modeSignal and
// modeMessage it does not return when the coordinator owns the real
// process.
func (d *demo) run() {
	if d.cfg.ExitCode != noExitCode {
		d.coordinator.SetExitCode(d.cfg.ExitCode)
	}

	switch d.cfg.Mode {
	case modeExit:
		d.coordinator.Exit(d.cfg.Code)
	case modeGraceful:
		d.coordinator.GracefulExit(d.cfg.Code)
	case modeBeforeExit:
		defer d.coordinator.BeforeExit()
	case modePanic:
		defer d.coordinator.Recover()
		panic("demo panic")
	case modeSignal, modeMessage:
		d.logger.Info("waiting for termination", zap.String("mode", d.cfg.Mode))
		<-d.coordinator.Done()
	}
}
