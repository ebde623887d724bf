package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-while/pkg/compiler"
	"github.com/raymyers/ralph-while/pkg/config"
	"github.com/raymyers/ralph-while/pkg/ewhile"
	"github.com/raymyers/ralph-while/pkg/ir"
	"github.com/raymyers/ralph-while/pkg/lexer"
)

var version = "0.1.0"

// ErrNotApplicable is returned for a dump flag the selected language has
// no stage for.
var ErrNotApplicable = errors.New("not applicable")

// options holds the dump and run flags of one command instance.
type options struct {
	dParse   bool
	dOpt     bool
	dSymbols bool
	dScopes  bool
	extended bool
	run      []string
}

func (o *options) anyDump() bool {
	return o.dParse || o.dOpt || o.dSymbols || o.dScopes
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// singleDashFlags accept the one-dash spelling used by compiler drivers.
var singleDashFlags = []string{"dparse", "dopt", "dsymbols", "dscopes", "O0"}

// normalizeFlags converts single-dash flags like -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, name := range singleDashFlags {
			if arg == "-"+name {
				result[i] = "--" + name
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:   "ralph-while [file]",
		Short: "ralph-while compiles WHILE and EWHILE programs",
		Long: `ralph-while is the middle tier of a WHILE compiler. It rewrites
recognized arithmetic idioms in WHILE programs into single operations,
and resolves the scopes and temporary registers of EWHILE programs.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			cfgPath, _ := cmd.Flags().GetString(config.FlagConfig)
			cfg, err := config.Load(cfgPath)
			if err == nil {
				err = config.ApplyFlags(cmd.Flags(), &cfg)
			}
			if err != nil {
				fmt.Fprintf(errOut, "ralph-while: %v\n", err)
				return err
			}

			src, err := os.ReadFile(filename)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-while: error reading %s: %v\n", filename, err)
				return err
			}

			c, err := compiler.New()
			if err != nil {
				fmt.Fprintf(errOut, "ralph-while: %v\n", err)
				return err
			}

			ctx := logContext(cmd.Context(), errOut, cfg.Verbose)

			if o.extended || strings.HasSuffix(filename, ".ewhile") {
				return doExtended(ctx, c, filename, string(src), cfg, o, out, errOut)
			}
			return doWhile(ctx, c, filename, string(src), cfg, o, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVar(&o.dParse, "dparse", false, "Dump after parsing")
	rootCmd.Flags().BoolVar(&o.dOpt, "dopt", false, "Dump after pattern rewriting (WHILE)")
	rootCmd.Flags().BoolVar(&o.dSymbols, "dsymbols", false, "Dump symbol and constant tables (WHILE)")
	rootCmd.Flags().BoolVar(&o.dScopes, "dscopes", false, "Dump the scope tree and resolved program (EWHILE)")
	rootCmd.Flags().BoolVar(&o.extended, "ewhile", false, "Treat the input as EWHILE (default for .ewhile files)")
	rootCmd.Flags().StringArrayVar(&o.run, "run", nil, "Run the program with an input register, e.g. --run x1=5")
	config.BindFlags(rootCmd.Flags())

	return rootCmd
}

// logContext returns ctx carrying a console logger on errOut when a
// verbosity filter is set. Without one, logging is disabled.
func logContext(ctx context.Context, errOut io.Writer, verbose string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if verbose == "" {
		return ctx
	}
	l := tlog.New(tlog.NewConsoleWriter(errOut, 0))
	l.SetVerbosity(verbose)
	return tlog.ContextWithSpan(ctx, tlog.Span{Logger: l})
}

func doWhile(ctx context.Context, c *compiler.Compiler, filename, src string, cfg config.Config, o *options, out, errOut io.Writer) error {
	if o.dScopes {
		fmt.Fprintf(errOut, "ralph-while: warning: -dscopes applies to EWHILE programs only\n")
		return ErrNotApplicable
	}

	res, err := c.CompileWhile(ctx, src, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-while: %s: %v\n", filename, err)
		return err
	}

	if o.dParse {
		if err := dump(filename, "parsed", out, errOut, func(w io.Writer) {
			ir.NewPrinter(w).PrintProgram(res.Parsed)
		}); err != nil {
			return err
		}
	}

	if o.dOpt {
		if err := dump(filename, "opt", out, errOut, func(w io.Writer) {
			ir.NewPrinter(w).PrintProgram(res.Optimized)
		}); err != nil {
			return err
		}
		for _, s := range res.Stats {
			if s.Matches != 0 {
				fmt.Fprintf(errOut, "ralph-while: %s: %d match(es)\n", s.Pattern, s.Matches)
			}
		}
	}

	if o.dSymbols {
		fmt.Fprintln(out, "// variables")
		res.Vars.Dump(out)
		fmt.Fprintln(out, "// constants")
		res.Consts.Dump(out)
	}

	if len(o.run) != 0 {
		return doRun(ctx, res.Optimized, cfg, o.run, out, errOut)
	}

	if !o.anyDump() {
		ir.NewPrinter(out).PrintProgram(res.Optimized)
	}
	return nil
}

func doExtended(ctx context.Context, c *compiler.Compiler, filename, src string, cfg config.Config, o *options, out, errOut io.Writer) error {
	switch {
	case o.dOpt:
		fmt.Fprintf(errOut, "ralph-while: warning: -dopt applies to WHILE programs only\n")
		return ErrNotApplicable
	case o.dSymbols:
		fmt.Fprintf(errOut, "ralph-while: warning: -dsymbols applies to WHILE programs only\n")
		return ErrNotApplicable
	case len(o.run) != 0:
		fmt.Fprintf(errOut, "ralph-while: warning: --run applies to WHILE programs only\n")
		return ErrNotApplicable
	}

	res, err := c.CompileExtended(ctx, src, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-while: %s: %v\n", filename, err)
		return err
	}

	if o.dParse {
		if err := dump(filename, "parsed", out, errOut, func(w io.Writer) {
			ewhile.NewPrinter(w).PrintProgram(res.Program)
		}); err != nil {
			return err
		}
	}

	if o.dScopes {
		res.Scopes.Table.Dump(out)
		fmt.Fprintf(out, "// zero %s, %d temporaries, peak %d live\n",
			res.Scopes.Zero, len(res.Scopes.Minted), res.Scopes.Peak)
	}

	if o.dScopes || !o.anyDump() {
		p := ewhile.NewPrinter(out)
		p.Resolved = true
		p.PrintProgram(res.Program)
	}
	return nil
}

func doRun(ctx context.Context, prog ir.Program, cfg config.Config, args []string, out, errOut io.Writer) error {
	inputs, err := parseInputs(args)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-while: %v\n", err)
		return err
	}

	env, err := compiler.Run(ctx, prog, inputs, cfg, out)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-while: run: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "x0 = %s\n", env.Get("x0"))
	return nil
}

// parseInputs turns "x2=7" style arguments into the input list x1..xn.
// Registers not named are zero.
func parseInputs(args []string) ([]*big.Int, error) {
	var inputs []*big.Int
	for _, arg := range args {
		name, val, ok := strings.Cut(arg, "=")
		if !ok || !lexer.IsRegister(name) || name == "x0" {
			return nil, errors.New("bad input %q: want x<n>=<value> with n >= 1", arg)
		}
		idx, _ := strconv.Atoi(name[1:])
		v, ok := new(big.Int).SetString(val, 10)
		if !ok || v.Sign() < 0 {
			return nil, errors.New("bad input %q: value must be a non-negative integer", arg)
		}
		for len(inputs) < idx {
			inputs = append(inputs, new(big.Int))
		}
		inputs[idx-1] = v
	}
	return inputs, nil
}

// dump writes a stage to stdout and to a file next to the input, as
// file.while -> file.<stage>.while.
func dump(filename, stage string, out, errOut io.Writer, print func(io.Writer)) error {
	outputFilename := dumpFilename(filename, stage)

	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-while: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()

	print(outFile)
	print(out)
	return nil
}

// dumpFilename returns the output filename for a dump stage.
func dumpFilename(filename, stage string) string {
	ext := filepath.Ext(filename)
	switch ext {
	case ".while", ".ewhile":
		return filename[:len(filename)-len(ext)] + "." + stage + ext
	}
	return filename + "." + stage + ".while"
}
