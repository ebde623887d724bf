// Package compiler ties the passes together. CompileWhile runs the WHILE
// pipeline (parse, rewrite, symbol tables) and CompileExtended runs the
// EWHILE front half (parse, scope tree, temporary allocation).
package compiler

import (
	"context"
	"io"
	"math/big"
	"sync"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-while/pkg/config"
	"github.com/raymyers/ralph-while/pkg/eval"
	"github.com/raymyers/ralph-while/pkg/ewhile"
	"github.com/raymyers/ralph-while/pkg/ir"
	"github.com/raymyers/ralph-while/pkg/parser"
	"github.com/raymyers/ralph-while/pkg/patterns"
	"github.com/raymyers/ralph-while/pkg/rewrite"
	"github.com/raymyers/ralph-while/pkg/scopegen"
	"github.com/raymyers/ralph-while/pkg/symtab"
)

// WhileResult holds every stage of a WHILE compilation.
type WhileResult struct {
	Parsed    ir.Program
	Optimized ir.Program // equal to Parsed when optimization is off
	Stats     []rewrite.Stat
	Vars      *symtab.Table
	Consts    *symtab.ConstTable
}

// ExtendedResult holds an annotated EWHILE program.
type ExtendedResult struct {
	Program *ewhile.Program
	Scopes  *scopegen.Result
}

// Compiler compiles programs against one pattern catalog. Parsed WHILE
// programs are remembered by source text until Reset.
type Compiler struct {
	rw *rewrite.Rewriter

	mu   sync.Mutex
	memo map[string]ir.Program
}

// New creates a Compiler using the builtin pattern catalog.
func New() (*Compiler, error) {
	cat, err := patterns.Default()
	if err != nil {
		return nil, errors.Wrap(err, "pattern catalog")
	}
	return NewWithCatalog(cat), nil
}

// NewWithCatalog creates a Compiler using cat.
func NewWithCatalog(cat *patterns.Catalog) *Compiler {
	return &Compiler{
		rw:   rewrite.New(cat),
		memo: make(map[string]ir.Program),
	}
}

// Reset forgets all memoized parses.
func (c *Compiler) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memo = make(map[string]ir.Program)
}

// Parse parses WHILE source, reusing an earlier result for the same text.
func (c *Compiler) Parse(ctx context.Context, src string) (ir.Program, error) {
	c.mu.Lock()
	prog, ok := c.memo[src]
	c.mu.Unlock()
	if ok {
		tlog.SpanFromContext(ctx).V("parse").Printw("parse cache hit", "bytes", len(src))
		return prog, nil
	}

	prog, err := parser.Parse(src)
	if err != nil {
		return ir.Program{}, err
	}

	c.mu.Lock()
	c.memo[src] = prog
	c.mu.Unlock()
	return prog, nil
}

// CompileWhile parses src, rewrites it when cfg.Optimize is set and builds
// the symbol and constant tables of the result.
func (c *Compiler) CompileWhile(ctx context.Context, src string, cfg config.Config) (res *WhileResult, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile_while", "optimize", cfg.Optimize)
	defer tr.Finish("err", &err)

	prog, err := c.Parse(ctx, src)
	if err != nil {
		return nil, err
	}
	res = &WhileResult{Parsed: prog, Optimized: prog}

	if cfg.Optimize {
		r := c.rw.Rewrite(ctx, prog)
		res.Optimized, res.Stats = r.Program, r.Stats
		tr.Printw("rewrite done", "matches", r.Matches())
	}

	res.Vars, res.Consts = symtab.Build(res.Parsed, res.Optimized)
	if err := symtab.Check(res.Optimized, res.Vars, res.Consts); err != nil {
		return nil, errors.Wrap(err, "symbol tables")
	}

	if tr.If("compile") {
		tr.Printw("tables built", "vars", res.Vars.Len(), "consts", res.Consts.Len())
	}
	return res, nil
}

// CompileExtended parses EWHILE src, builds its scope tree and assigns
// registers and temporaries.
func (c *Compiler) CompileExtended(ctx context.Context, src string, cfg config.Config) (res *ExtendedResult, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile_extended", "reuse_temps", cfg.ReuseTemps)
	defer tr.Finish("err", &err)

	prog, err := ewhile.Parse(src)
	if err != nil {
		return nil, err
	}
	scopes, err := scopegen.Analyze(ctx, prog, cfg.ReuseTemps)
	if err != nil {
		return nil, errors.Wrap(err, "scopes")
	}

	tr.Printw("scopes resolved", "scopes", scopes.Table.Len(), "temps", len(scopes.Minted), "peak", scopes.Peak)
	return &ExtendedResult{Program: prog, Scopes: scopes}, nil
}

// Run executes a WHILE program with inputs bound to x1, x2, ... under the
// limits in cfg. Echo output goes to out.
func Run(ctx context.Context, prog ir.Program, inputs []*big.Int, cfg config.Config, out io.Writer) (eval.Env, error) {
	return eval.Run(ctx, prog, eval.Inputs(inputs...), eval.Options{
		Out:       out,
		StepLimit: cfg.StepLimit,
		Bits:      cfg.Bits(),
	})
}
