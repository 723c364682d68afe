// Command exitz-demo registers a few exit hooks and terminates through a
// chosen cause, for trying out the exitz coordinator by hand:
//
//	exitz-demo --mode exit
//	exitz-demo --mode graceful --wait 200ms --work 100ms
//	exitz-demo --mode signal --print-code --wait 1s &
//	kill -INT $!
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zoobzio/exitz"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "exitz-demo",
		Usage: "run exit hooks through a chosen termination cause",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{envPrefix + "CONFIG"},
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "termination cause: graceful, exit, signal, before-exit, message or panic",
			},
			&cli.IntFlag{
				Name:  "code",
				Usage: "exit code passed to exit and graceful",
			},
			&cli.IntFlag{
				Name:  "exit-code",
				Usage: "pre-set exit code used by exit and before-exit",
			},
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "register the asynchronous quux hook with this wait",
			},
			&cli.DurationFlag{
				Name:  "work",
				Usage: "how long quux works before printing",
			},
			&cli.BoolFlag{
				Name:  "print-code",
				Usage: "print the exit code from a synchronous and the asynchronous hook",
			},
			&cli.DurationFlag{
				Name:  "flush-timeout",
				Usage: "grace period for flushing output before exit",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "diagnostics level: debug, info, warn or error",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "serve Prometheus metrics on this address",
			},
		},
		Action: run,
	}
}

// setFlags returns the flags given on the command line, keyed the way
// Config names them.
func setFlags(c *cli.Context) map[string]any {
	flags := map[string]any{}
	for _, name := range []string{"mode", "log-level", "metrics-addr"} {
		if c.IsSet(name) {
			flags[configKey(name)] = c.String(name)
		}
	}
	for _, name := range []string{"code", "exit-code"} {
		if c.IsSet(name) {
			flags[configKey(name)] = c.Int(name)
		}
	}
	for _, name := range []string{"wait", "work", "flush-timeout"} {
		if c.IsSet(name) {
			flags[configKey(name)] = c.Duration(name).String()
		}
	}
	if c.IsSet("print-code") {
		flags["print_code"] = c.Bool("print-code")
	}
	return flags
}

func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"), setFlags(c))
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	opts := []exitz.Option{
		exitz.WithLogger(logger),
		exitz.WithFlushTimeout(cfg.FlushTimeout),
	}
	if cfg.Mode == modeMessage {
		opts = append(opts, exitz.WithShutdownMessages(os.Stdin))
	}

	d := &demo{
		cfg:         cfg,
		out:         c.App.Writer,
		logger:      logger,
		coordinator: exitz.New(opts...),
	}
	if err := d.register(); err != nil {
		return err
	}
	d.serveMetrics()
	d.run()
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "parse log level")
	}

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.Lock(os.Stderr),
		lvl,
	)
	return zap.New(core).Named("exitz-demo"), nil
}
