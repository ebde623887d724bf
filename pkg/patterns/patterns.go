// Package patterns holds the ordered catalog of loop idioms the rewriter
// replaces with closed-form operations.
package patterns

import (
	"sync"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-while/pkg/ir"
	"github.com/raymyers/ralph-while/pkg/match"
	"github.com/raymyers/ralph-while/pkg/parser"
)

// ErrUnboundPlaceholder is returned when a replacement mentions a
// placeholder that its source pattern never binds.
var ErrUnboundPlaceholder = errors.New("replacement placeholder not bound by pattern")

// Entry is one catalog rule: WHILE source for the idiom and the IR that
// replaces it.
type Entry struct {
	Name        string
	Source      string
	Replacement []ir.Node
}

// Pattern is a compiled Entry. Tree is the flattened statement or
// sequence to look for.
type Pattern struct {
	Name        string
	Tree        ir.Node
	Replacement []ir.Node
}

// Len is the number of consecutive statements the pattern spans.
func (p Pattern) Len() int {
	if seq, ok := p.Tree.(ir.Sequence); ok {
		return len(seq.Stmts)
	}
	return 1
}

// Catalog is an ordered, read-only list of compiled patterns.
type Catalog struct {
	patterns []Pattern
}

// Compile parses every entry's source and checks its replacement.
func Compile(entries []Entry) (*Catalog, error) {
	c := &Catalog{patterns: make([]Pattern, 0, len(entries))}
	for _, e := range entries {
		p, err := compileEntry(e)
		if err != nil {
			return nil, errors.Wrap(err, "pattern %s", e.Name)
		}
		c.patterns = append(c.patterns, p)
	}
	return c, nil
}

func compileEntry(e Entry) (Pattern, error) {
	prog, err := parser.Parse(e.Source)
	if err != nil {
		return Pattern{}, errors.Wrap(err, "parse")
	}
	if _, ok := prog.Body.(ir.Empty); ok {
		return Pattern{}, errors.New("empty pattern source")
	}
	if len(e.Replacement) == 0 {
		return Pattern{}, errors.New("empty replacement")
	}

	tree := ir.Flatten(prog.Body)

	bound := make(map[ir.Ident]bool)
	for _, id := range match.Placeholders(tree) {
		bound[id] = true
	}
	for _, r := range e.Replacement {
		for _, id := range match.Placeholders(r) {
			if !bound[id] {
				return Pattern{}, errors.Wrap(ErrUnboundPlaceholder, "%s", id)
			}
		}
	}

	return Pattern{Name: e.Name, Tree: tree, Replacement: e.Replacement}, nil
}

// Patterns returns the compiled patterns in catalog order.
func (c *Catalog) Patterns() []Pattern {
	return c.patterns
}

func (c *Catalog) Len() int { return len(c.patterns) }

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the built-in catalog, compiling it on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Compile(Builtin())
	})
	return defaultCatalog, defaultErr
}
