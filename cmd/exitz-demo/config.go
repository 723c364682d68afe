package main

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the prefix of environment variables read by the demo.
const envPrefix = "EXITZ_"

// Termination modes.
const (
	modeGraceful   = "graceful"
	modeExit       = "exit"
	modeSignal     = "signal"
	modeBeforeExit = "before-exit"
	modeMessage    = "message"
	modePanic      = "panic"
)

var modes = []string{modeGraceful, modeExit, modeSignal, modeBeforeExit, modeMessage, modePanic}

// noExitCode marks an unset pre-set exit code.
const noExitCode = -1

// Config holds the demo settings.
type Config struct {
	Mode         string        `koanf:"mode"`
	Code         int           `koanf:"code"`
	ExitCode     int           `koanf:"exit_code"`
	Wait         time.Duration `koanf:"wait"`
	Work         time.Duration `koanf:"work"`
	PrintCode    bool          `koanf:"print_code"`
	FlushTimeout time.Duration `koanf:"flush_timeout"`
	LogLevel     string        `koanf:"log_level"`
	MetricsAddr  string        `koanf:"metrics_addr"`
}

func defaults() map[string]any {
	return map[string]any{
		"mode":          modeGraceful,
		"code":          0,
		"exit_code":     noExitCode,
		"wait":          "0s",
		"work":          "100ms",
		"print_code":    false,
		"flush_timeout": "1s",
		"log_level":     "warn",
		"metrics_addr":  "",
	}
}

// mapProvider is a koanf provider backed by a map.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

// loadConfig merges the configuration sources. Later sources override
// earlier ones: defaults, the YAML file, EXITZ_ environment variables and
// finally the flags set on the command line.
func loadConfig(path string, flags map[string]any) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return Config{}, errors.Wrap(err, "load defaults")
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, errors.Wrapf(err, "load config file %s", path)
		}
	}

	// EXITZ_EXIT_CODE -> exit_code
	transform := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}
	if err := k.Load(env.Provider(envPrefix, ".", transform), nil); err != nil {
		return Config{}, errors.Wrap(err, "load env")
	}

	if len(flags) > 0 {
		if err := k.Load(mapProvider(flags), nil); err != nil {
			return Config{}, errors.Wrap(err, "load flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	valid := false
	for _, mode := range modes {
		if c.Mode == mode {
			valid = true
			break
		}
	}
	if !valid {
		return errors.Newf("unknown mode %q, want one of %s", c.Mode, strings.Join(modes, ", "))
	}

	if c.Wait < 0 {
		return errors.Newf("wait must not be negative, got %s", c.Wait)
	}
	if c.FlushTimeout <= 0 {
		return errors.Newf("flush timeout must be positive, got %s", c.FlushTimeout)
	}
	return nil
}
