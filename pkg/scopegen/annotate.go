package scopegen

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-while/pkg/ewhile"
	"github.com/raymyers/ralph-while/pkg/scope"
)

// Result is what Annotate learned about a program besides the fields it
// filled in the tree.
type Result struct {
	Table  *scope.Table
	Zero   string   // register holding the constant 0
	Peak   int      // most temporaries live at once
	Minted []string // every temporary name handed out, in order
}

type annotator struct {
	a  *scope.Allocator
	tr tlog.Span
}

// Analyze builds the scope tree of prog and annotates it.
func Analyze(ctx context.Context, prog *ewhile.Program, reuse bool) (*Result, error) {
	t, err := Build(prog)
	if err != nil {
		return nil, err
	}
	return Annotate(ctx, prog, t, reuse)
}

// Annotate walks prog the way the code generator does and fills in
// resolved registers (Operand.Resolve, Let.IDs) and the temporaries each
// assignment, condition and if statement holds (Expr.Temps, Cond.Temps,
// If.Temps). t must be the table Build returned for prog.
//
// Temporaries of an assignment are released right after it. Those of a
// condition are reserved in the enclosing scope and stay live until the
// whole loop or if statement is done.
func Annotate(ctx context.Context, prog *ewhile.Program, t *scope.Table, reuse bool) (*Result, error) {
	an := &annotator{
		a:  scope.NewAllocator(ctx, t, reuse),
		tr: tlog.SpanFromContext(ctx),
	}
	if err := an.a.Prepare(); err != nil {
		return nil, err
	}
	if prog.Body != nil {
		if err := an.stmt(prog.Body); err != nil {
			return nil, err
		}
	}
	if n := an.a.Live(); n != 0 {
		return nil, errors.New("%d temporaries still live after the program", n)
	}

	zero, _ := an.a.Zero()
	res := &Result{Table: t, Zero: zero, Peak: an.a.Peak(), Minted: an.a.Minted()}

	if an.tr.If("scope") {
		an.tr.Printw("scopes annotated", "scopes", t.Len(), "zero", zero, "peak", res.Peak, "minted", len(res.Minted), "reuse", reuse)
	}
	return res, nil
}

func (an *annotator) stmt(s ewhile.Stmt) error {
	switch s := s.(type) {
	case *ewhile.Block:
		for _, st := range s.Stmts {
			if err := an.stmt(st); err != nil {
				return err
			}
		}
		return nil
	case *ewhile.Let:
		s.IDs = s.IDs[:0]
		for _, name := range s.Names {
			id, err := an.a.Resolve(name)
			if err != nil {
				return errors.Wrap(err, "line %d: let", s.Line)
			}
			s.IDs = append(s.IDs, id)
		}
		return nil
	case *ewhile.Assign:
		if err := an.operand(&s.Target); err != nil {
			return err
		}
		if err := an.expr(&s.Expr); err != nil {
			return err
		}
		return an.a.Release(s.Expr.Temps...)
	case *ewhile.Echo:
		return an.operand(&s.Var)
	case *ewhile.While:
		if err := an.cond(s.Cond); err != nil {
			return err
		}
		if err := an.enter(s.Scope); err != nil {
			return err
		}
		if err := an.stmt(s.Body); err != nil {
			return err
		}
		if err := an.a.Exit(); err != nil {
			return err
		}
		return an.releaseCond(s.Cond)
	case *ewhile.If:
		return an.ifStmt(s)
	}
	return errors.New("unexpected statement %T", s)
}

func (an *annotator) ifStmt(s *ewhile.If) (err error) {
	if err = an.cond(s.Cond); err != nil {
		return err
	}
	if s.Temps, err = an.temps(ewhile.IfTemps(s.Else != nil)); err != nil {
		return err
	}

	if err = an.enter(s.ThenScope); err != nil {
		return err
	}
	if err = an.stmt(s.Then); err != nil {
		return err
	}
	if err = an.a.Exit(); err != nil {
		return err
	}

	if s.Else != nil {
		if err = an.enter(s.ElseScope); err != nil {
			return err
		}
		if err = an.stmt(s.Else); err != nil {
			return err
		}
		if err = an.a.Exit(); err != nil {
			return err
		}
	}

	if err = an.releaseCond(s.Cond); err != nil {
		return err
	}
	return an.a.Release(s.Temps...)
}

// enter moves the allocator into the next child scope, which must be the
// one Build opened for the construct.
func (an *annotator) enter(want int) error {
	if err := an.a.Enter(); err != nil {
		return err
	}
	if got := an.a.Current(); got != want {
		return errors.New("entered scope %d, expected %d", got, want)
	}
	return nil
}

func (an *annotator) cond(c *ewhile.Cond) (err error) {
	if err = an.expr(&c.Left); err != nil {
		return err
	}
	if err = an.expr(&c.Right); err != nil {
		return err
	}
	c.Temps, err = an.temps(ewhile.CondTemps(c.Op))
	return err
}

func (an *annotator) releaseCond(c *ewhile.Cond) error {
	if err := an.a.Release(c.Left.Temps...); err != nil {
		return err
	}
	if err := an.a.Release(c.Right.Temps...); err != nil {
		return err
	}
	return an.a.Release(c.Temps...)
}

func (an *annotator) expr(e *ewhile.Expr) error {
	if err := an.operand(&e.Left); err != nil {
		return err
	}
	if e.Op != ewhile.OpNone {
		if err := an.operand(&e.Right); err != nil {
			return err
		}
	}
	n, err := ewhile.TempsNeeded(*e)
	if err != nil {
		return errors.Wrap(err, "line %d, col %d", e.Left.Line, e.Left.Column)
	}
	e.Temps, err = an.temps(n)
	return err
}

func (an *annotator) temps(n int) ([]string, error) {
	if n == 0 {
		return nil, nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, err := an.a.NextTemp()
		if err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, nil
}

func (an *annotator) operand(o *ewhile.Operand) error {
	if o.IsConst() {
		return nil
	}
	id, err := an.a.Resolve(o.Name)
	if err != nil {
		return errors.Wrap(err, "line %d, col %d", o.Line, o.Column)
	}
	o.Resolve = id
	return nil
}
