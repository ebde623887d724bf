// Package rewrite replaces loop idioms in WHILE programs with closed-form
// operations from a pattern catalog.
package rewrite

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-while/pkg/ir"
	"github.com/raymyers/ralph-while/pkg/match"
	"github.com/raymyers/ralph-while/pkg/patterns"
)

// Stat counts how often a catalog entry fired.
type Stat struct {
	Pattern string
	Matches int
}

// Result is an optimized program and per-pattern statistics in catalog
// order.
type Result struct {
	Program ir.Program
	Stats   []Stat
}

// Matches is the total number of rewrites performed.
func (r Result) Matches() int {
	n := 0
	for _, s := range r.Stats {
		n += s.Matches
	}
	return n
}

// Rewriter applies a catalog to programs. It holds no per-program state
// and may be shared.
type Rewriter struct {
	catalog *patterns.Catalog
}

// New creates a Rewriter for the given catalog
func New(c *patterns.Catalog) *Rewriter {
	return &Rewriter{catalog: c}
}

// Rewrite flattens prog, tries every catalog entry once in order and
// returns the result in canonical right-nested form. A pattern that never
// matches is not an error.
func (r *Rewriter) Rewrite(ctx context.Context, prog ir.Program) Result {
	tr := tlog.SpanFromContext(ctx)

	cur := ir.Flatten(prog).(ir.Program)
	res := Result{Stats: make([]Stat, 0, r.catalog.Len())}

	for _, p := range r.catalog.Patterns() {
		pr := pass{pattern: p, tr: tr}
		if cur.Body != nil {
			cur = ir.Program{Body: pr.body(cur.Body)}
		}
		res.Stats = append(res.Stats, Stat{Pattern: p.Name, Matches: pr.matches})

		if pr.matches != 0 {
			tr.Printw("pattern applied", "pattern", p.Name, "matches", pr.matches)
		}
	}

	res.Program = ir.Unflatten(cur).(ir.Program)
	return res
}

// pass is one traversal of the tree for one pattern.
type pass struct {
	pattern patterns.Pattern
	tr      tlog.Span
	matches int
}

// body rewrites a statement position that may hold a sequence.
func (p *pass) body(n ir.Node) ir.Node {
	stmts := p.stmt(n)
	if len(stmts) == 1 {
		return stmts[0]
	}
	return ir.Sequence{Stmts: stmts}
}

// stmt rewrites the statement n. The whole node is tried first, then its
// children; a match yields the instantiated replacement statements.
func (p *pass) stmt(n ir.Node) []ir.Node {
	if repl, ok := p.try(n); ok {
		return repl
	}

	switch n := n.(type) {
	case ir.Sequence:
		return p.list(n.Stmts)
	case ir.While:
		return []ir.Node{ir.While{Cond: n.Cond, Body: p.body(n.Body)}}
	default:
		return []ir.Node{n}
	}
}

// list scans a flat statement list. Sequence patterns are tried on every
// window of their length; a matched window is consumed whole.
func (p *pass) list(stmts []ir.Node) []ir.Node {
	k := p.pattern.Len()
	_, windowed := p.pattern.Tree.(ir.Sequence)

	out := make([]ir.Node, 0, len(stmts))
	for i := 0; i < len(stmts); {
		if windowed && i+k <= len(stmts) {
			if repl, ok := p.try(ir.Sequence{Stmts: stmts[i : i+k]}); ok {
				out = append(out, repl...)
				i += k
				continue
			}
		}
		out = append(out, p.stmt(stmts[i])...)
		i++
	}
	return out
}

func (p *pass) try(n ir.Node) ([]ir.Node, bool) {
	b, ok := match.Match(p.pattern.Tree, n, nil)
	if !ok {
		return nil, false
	}
	p.matches++

	repl := make([]ir.Node, 0, len(p.pattern.Replacement))
	for _, r := range p.pattern.Replacement {
		repl = append(repl, ir.Statements(match.Instantiate(r, b))...)
	}

	if p.tr.If("rewrite") {
		p.tr.Printw("rewrite", "pattern", p.pattern.Name, "bindings", b.String(), "replacement", len(repl))
	}
	return repl, true
}
