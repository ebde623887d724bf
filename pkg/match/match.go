// Package match unifies pattern trees with program trees.
//
// A pattern is an ordinary IR tree in which every identifier of the form
// x<digits> is a placeholder. A placeholder binds to the candidate's
// identifier on first occurrence and must see the same identifier at
// every later occurrence. There is no backtracking: a conflicting later
// occurrence fails the whole attempt.
package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/raymyers/ralph-while/pkg/ir"
)

// Bindings maps placeholders to the concrete identifiers they matched.
type Bindings map[ir.Ident]ir.Ident

// Clone returns an independent copy of b.
func (b Bindings) Clone() Bindings {
	out := make(Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Placeholders returns the bound placeholders in sorted order.
func (b Bindings) Placeholders() []ir.Ident {
	keys := make([]ir.Ident, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// String renders b as "x1=x7 x2=x3" in placeholder order.
func (b Bindings) String() string {
	var sb strings.Builder
	for i, k := range b.Placeholders() {
		if i != 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%s", k, b[k])
	}
	return sb.String()
}

// Match unifies pattern p with candidate c, extending b. The input
// bindings are never modified. On failure the returned bindings are nil.
//
// Sequences only match sequences of the same length; windows over longer
// lists are the caller's business.
func Match(p, c ir.Node, b Bindings) (Bindings, bool) {
	m := matcher{b: b.Clone()}
	if !m.node(p, c) {
		return nil, false
	}
	return m.b, true
}

type matcher struct {
	b Bindings
}

func (m *matcher) node(p, c ir.Node) bool {
	switch p := p.(type) {
	case nil:
		return c == nil
	case ir.Program:
		c, ok := c.(ir.Program)
		return ok && m.node(p.Body, c.Body)
	case ir.Sequence:
		c, ok := c.(ir.Sequence)
		if !ok || len(p.Stmts) != len(c.Stmts) {
			return false
		}
		for i := range p.Stmts {
			if !m.node(p.Stmts[i], c.Stmts[i]) {
				return false
			}
		}
		return true
	case ir.Assignment:
		c, ok := c.(ir.Assignment)
		return ok &&
			m.ident(p.Target, c.Target) &&
			m.ident(p.Source, c.Source) &&
			p.Op == c.Op &&
			p.Constant == c.Constant
	case ir.AssignmentTwoOperand:
		c, ok := c.(ir.AssignmentTwoOperand)
		return ok &&
			m.ident(p.Target, c.Target) &&
			m.ident(p.Source, c.Source) &&
			p.Op == c.Op &&
			m.ident(p.Operand, c.Operand) &&
			p.ScaleNum == c.ScaleNum &&
			p.ScaleDen == c.ScaleDen
	case ir.While:
		c, ok := c.(ir.While)
		return ok && m.node(p.Cond, c.Cond) && m.node(p.Body, c.Body)
	case ir.Condition:
		c, ok := c.(ir.Condition)
		return ok && m.ident(p.Var, c.Var) && p.Threshold == c.Threshold
	case ir.Print:
		c, ok := c.(ir.Print)
		return ok && m.ident(p.Var, c.Var)
	case ir.Empty:
		c, ok := c.(ir.Empty)
		return ok && p.Reason == c.Reason
	}
	return false
}

func (m *matcher) ident(p, c ir.Ident) bool {
	if !ir.IsPlaceholder(p) {
		return p == c
	}
	if bound, ok := m.b[p]; ok {
		return bound == c
	}
	m.b[p] = c
	return true
}

// Instantiate builds a new tree from repl with every bound placeholder
// replaced by its binding. Unbound placeholders are kept verbatim. repl
// itself is not modified.
func Instantiate(repl ir.Node, b Bindings) ir.Node {
	sub := func(id ir.Ident) ir.Ident {
		if v, ok := b[id]; ok && ir.IsPlaceholder(id) {
			return v
		}
		return id
	}

	switch n := repl.(type) {
	case ir.Program:
		if n.Body == nil {
			return ir.Program{}
		}
		return ir.Program{Body: Instantiate(n.Body, b)}
	case ir.Sequence:
		stmts := make([]ir.Node, len(n.Stmts))
		for i, s := range n.Stmts {
			stmts[i] = Instantiate(s, b)
		}
		return ir.Sequence{Stmts: stmts}
	case ir.Assignment:
		n.Target, n.Source = sub(n.Target), sub(n.Source)
		return n
	case ir.AssignmentTwoOperand:
		n.Target, n.Source, n.Operand = sub(n.Target), sub(n.Source), sub(n.Operand)
		return n
	case ir.While:
		return ir.While{
			Cond: Instantiate(n.Cond, b).(ir.Condition),
			Body: Instantiate(n.Body, b),
		}
	case ir.Condition:
		n.Var = sub(n.Var)
		return n
	case ir.Print:
		n.Var = sub(n.Var)
		return n
	default:
		return repl
	}
}

// Placeholders lists the distinct placeholders of n in order of first
// occurrence.
func Placeholders(n ir.Node) []ir.Ident {
	seen := make(map[ir.Ident]bool)
	var out []ir.Ident
	for _, id := range ir.Idents(n) {
		if ir.IsPlaceholder(id) && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
