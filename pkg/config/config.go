// Package config holds the options of a compilation. Values are layered:
// defaults, then an optional YAML file, then RALPH_WHILE_* environment
// variables, then command line flags.
package config

import (
	"os"
	"strings"

	"github.com/xyproto/env/v2"
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

// Integer backends accepted in Config.BigInt.
const (
	BigIntUnbounded = "big"
	BigIntU64       = "u64"
)

// Environment variable names.
const (
	EnvOptimize   = "RALPH_WHILE_OPTIMIZE"
	EnvReuseTemps = "RALPH_WHILE_REUSE_TEMPS"
	EnvBigInt     = "RALPH_WHILE_BIGINT"
	EnvVerbose    = "RALPH_WHILE_VERBOSE"
	EnvStepLimit  = "RALPH_WHILE_STEP_LIMIT"
)

// ErrInvalid is returned for a configuration value out of range.
var ErrInvalid = errors.New("invalid configuration")

// Config is passed explicitly to every compiler entry point.
type Config struct {
	// Optimize enables the pattern rewriter for WHILE programs.
	Optimize bool `yaml:"optimize"`
	// ReuseTemps recycles released temporaries through scope pools.
	ReuseTemps bool `yaml:"reuse_temps"`
	// BigInt selects the register representation used by --run.
	BigInt string `yaml:"bigint"`
	// Verbose is a tlog verbosity filter, e.g. "rewrite,alloc".
	Verbose string `yaml:"verbose"`
	// StepLimit caps loop iterations in --run. Zero means no limit.
	StepLimit int `yaml:"step_limit"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Optimize:   true,
		ReuseTemps: true,
		BigInt:     BigIntUnbounded,
	}
}

// Load applies the file at path (skipped if empty) and the environment on
// top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrap(err, "parse config %s", path)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if env.Has(EnvOptimize) {
		c.Optimize = env.Bool(EnvOptimize)
	}
	if env.Has(EnvReuseTemps) {
		c.ReuseTemps = env.Bool(EnvReuseTemps)
	}
	c.BigInt = env.Str(EnvBigInt, c.BigInt)
	c.Verbose = env.Str(EnvVerbose, c.Verbose)
	c.StepLimit = env.Int(EnvStepLimit, c.StepLimit)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch strings.ToLower(c.BigInt) {
	case BigIntUnbounded, BigIntU64:
	default:
		return errors.Wrap(ErrInvalid, "bigint %q: want %s or %s", c.BigInt, BigIntUnbounded, BigIntU64)
	}
	if c.StepLimit < 0 {
		return errors.Wrap(ErrInvalid, "step_limit %d is negative", c.StepLimit)
	}
	return nil
}

// Bits is the register width implied by BigInt, zero for unbounded.
func (c Config) Bits() int {
	if strings.EqualFold(c.BigInt, BigIntU64) {
		return 64
	}
	return 0
}
