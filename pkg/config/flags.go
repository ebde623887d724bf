package config

import (
	"strconv"

	"github.com/spf13/pflag"
	"tlog.app/go/errors"
)

// Flag names bound by BindFlags.
const (
	FlagNoOptimize = "O0"
	FlagNoReuse    = "no-reuse-temps"
	FlagBigInt     = "bigint"
	FlagVerbose    = "verbose"
	FlagStepLimit  = "step-limit"
	FlagConfig     = "config"
)

// BindFlags registers the configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.Bool(FlagNoOptimize, false, "Disable the pattern rewriter")
	fs.Bool(FlagNoReuse, false, "Never recycle temporaries through scope pools")
	fs.String(FlagBigInt, BigIntUnbounded, "Register representation for --run (big, u64)")
	fs.StringP(FlagVerbose, "v", "", "Log verbosity filter (e.g. rewrite,alloc)")
	fs.Int(FlagStepLimit, 0, "Abort --run after this many loop iterations")
	fs.String(FlagConfig, "", "YAML configuration file")
}

// ApplyFlags copies the flags set on the command line into c. Flags left
// at their default do not override file or environment values.
func ApplyFlags(fs *pflag.FlagSet, c *Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		v := f.Value.String()
		switch f.Name {
		case FlagNoOptimize:
			var off bool
			off, err = strconv.ParseBool(v)
			c.Optimize = !off
		case FlagNoReuse:
			var off bool
			off, err = strconv.ParseBool(v)
			c.ReuseTemps = !off
		case FlagBigInt:
			c.BigInt = v
		case FlagVerbose:
			c.Verbose = v
		case FlagStepLimit:
			c.StepLimit, err = strconv.Atoi(v)
		}
		if err != nil {
			err = errors.Wrap(err, "flag --%s", f.Name)
		}
	})
	if err != nil {
		return err
	}
	return c.Validate()
}
