// Package scopegen connects the EWHILE syntax tree to the scope tree.
//
// Build records every declaration and use in a new scope.Table. Annotate
// then walks the tree again in code generation order, resolving every
// name to its register and reserving the temporaries each construct
// needs.
package scopegen

import (
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-while/pkg/ewhile"
	"github.com/raymyers/ralph-while/pkg/scope"
)

type builder struct {
	t   *scope.Table
	cur int
}

// Build creates the scope tree of prog. A while body and an if branch
// each open a child scope; the else branch is a sibling of the then
// branch. Loop and branch conditions are resolved inside the new scope.
func Build(prog *ewhile.Program) (*scope.Table, error) {
	b := &builder{t: scope.NewTable(), cur: scope.GlobalID}
	if prog.Body == nil {
		return b.t, nil
	}
	if err := b.stmt(prog.Body); err != nil {
		return nil, err
	}
	return b.t, nil
}

func (b *builder) stmt(s ewhile.Stmt) error {
	switch s := s.(type) {
	case *ewhile.Block:
		for _, st := range s.Stmts {
			if err := b.stmt(st); err != nil {
				return err
			}
		}
	case *ewhile.Let:
		for _, name := range s.Names {
			if _, err := b.t.Declare(b.cur, name); err != nil {
				return errors.Wrap(err, "line %d: let", s.Line)
			}
		}
	case *ewhile.Assign:
		if err := b.expr(s.Expr); err != nil {
			return err
		}
		return b.use(s.Target, true)
	case *ewhile.Echo:
		return b.use(s.Var, false)
	case *ewhile.While:
		id, err := b.open()
		if err != nil {
			return err
		}
		s.Scope = id
		defer b.close(id)
		if err := b.cond(s.Cond); err != nil {
			return err
		}
		return b.stmt(s.Body)
	case *ewhile.If:
		parent := b.cur
		id, err := b.open()
		if err != nil {
			return err
		}
		s.ThenScope = id
		if err := b.cond(s.Cond); err != nil {
			return err
		}
		if err := b.stmt(s.Then); err != nil {
			return err
		}
		b.close(id)
		if s.Else == nil {
			return nil
		}
		if id, err = b.open(); err != nil {
			return err
		}
		s.ElseScope = id
		defer func() { b.cur = parent }()
		return b.stmt(s.Else)
	default:
		return errors.New("unexpected statement %T", s)
	}
	return nil
}

func (b *builder) open() (int, error) {
	id, err := b.t.NewChild(b.cur)
	if err != nil {
		return 0, err
	}
	b.cur = id
	return id, nil
}

func (b *builder) close(id int) {
	b.cur = b.t.Scope(id).Parent
}

func (b *builder) cond(c *ewhile.Cond) error {
	if err := b.expr(c.Left); err != nil {
		return err
	}
	return b.expr(c.Right)
}

func (b *builder) expr(e ewhile.Expr) error {
	if err := b.use(e.Left, false); err != nil {
		return err
	}
	if e.Op == ewhile.OpNone {
		return nil
	}
	return b.use(e.Right, false)
}

func (b *builder) use(o ewhile.Operand, assigned bool) error {
	if o.IsConst() {
		return nil
	}
	if _, err := b.t.Use(b.cur, o.Name, assigned); err != nil {
		return errors.Wrap(err, "line %d, col %d", o.Line, o.Column)
	}
	return nil
}
