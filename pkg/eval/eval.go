// Package eval interprets IR programs over unbounded non-negative
// registers. Every register starts at zero.
package eval

import (
	"context"
	"fmt"
	"io"
	"math/big"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-while/pkg/ir"
)

var (
	// ErrStepLimit is returned when a program runs more loop iterations
	// than Options.StepLimit allows.
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrShiftTooLarge is returned for a left shift whose result would not
	// fit in memory.
	ErrShiftTooLarge = errors.New("left shift amount too large")
	// ErrOverflow is returned when Options.Bits is set and a register
	// value no longer fits.
	ErrOverflow = errors.New("register overflow")
)

// maxShlBits bounds left shifts that are actually performed. Shift amounts
// that do not fit in 64 bits give 0, as the runtime library does.
const maxShlBits = 1 << 26

// Env holds register values. Missing registers read as zero.
type Env map[ir.Ident]*big.Int

// Get returns the value of r, or zero.
func (e Env) Get(r ir.Ident) *big.Int {
	if v, ok := e[r]; ok {
		return v
	}
	return new(big.Int)
}

// Clone returns a deep copy of e.
func (e Env) Clone() Env {
	out := make(Env, len(e))
	for k, v := range e {
		out[k] = new(big.Int).Set(v)
	}
	return out
}

// Inputs maps values to x1, x2, ... in order.
func Inputs(values ...*big.Int) Env {
	env := make(Env, len(values))
	for i, v := range values {
		env[ir.Ident(fmt.Sprintf("x%d", i+1))] = new(big.Int).Set(v)
	}
	return env
}

// Options tune a run.
type Options struct {
	// Out receives "echo" output. Nil discards it.
	Out io.Writer
	// StepLimit caps loop iterations. Zero means no limit.
	StepLimit int
	// Bits is the register width. Zero means unbounded.
	Bits int
}

type machine struct {
	ctx   context.Context
	env   Env
	opts  Options
	steps int
}

// Run executes prog starting from env, which is not modified, and returns
// the final register values. The result of the program is x0.
func Run(ctx context.Context, prog ir.Program, env Env, opts Options) (Env, error) {
	m := &machine{ctx: ctx, env: env.Clone(), opts: opts}
	if prog.Body == nil {
		return m.env, nil
	}
	if err := m.exec(prog.Body); err != nil {
		return m.env, err
	}
	tlog.SpanFromContext(ctx).V("eval").Printw("program finished", "steps", m.steps, "x0", m.env.Get("x0"))
	return m.env, nil
}

func (m *machine) exec(n ir.Node) error {
	switch n := n.(type) {
	case ir.Sequence:
		for _, s := range n.Stmts {
			if err := m.exec(s); err != nil {
				return err
			}
		}
	case ir.Assignment:
		c := n.Constant.Int()
		v, err := Apply(n.Op, m.env.Get(n.Source), c)
		if err != nil {
			return err
		}
		if err := m.set(n.Target, v); err != nil {
			return err
		}
	case ir.AssignmentTwoOperand:
		v, err := Apply(n.Op, m.env.Get(n.Source), m.env.Get(n.Operand))
		if err != nil {
			return err
		}
		if n.ScaleNum != n.ScaleDen && n.ScaleDen != 0 {
			v.Mul(v, big.NewInt(int64(n.ScaleNum)))
			v.Quo(v, big.NewInt(int64(n.ScaleDen)))
		}
		if err := m.set(n.Target, v); err != nil {
			return err
		}
	case ir.While:
		for m.holds(n.Cond) {
			if err := m.step(); err != nil {
				return err
			}
			if err := m.exec(n.Body); err != nil {
				return err
			}
		}
	case ir.Print:
		if m.opts.Out != nil {
			fmt.Fprintln(m.opts.Out, m.env.Get(n.Var).String())
		}
	case ir.Empty, nil:
	default:
		return errors.New("unexpected %T in statement position", n)
	}
	return nil
}

func (m *machine) set(r ir.Ident, v *big.Int) error {
	if m.opts.Bits > 0 && v.BitLen() > m.opts.Bits {
		return errors.Wrap(ErrOverflow, "%s needs %d bits", r, v.BitLen())
	}
	m.env[r] = v
	return nil
}

func (m *machine) holds(c ir.Condition) bool {
	return m.env.Get(c.Var).Cmp(c.Threshold.Int()) > 0
}

func (m *machine) step() error {
	m.steps++
	if m.opts.StepLimit > 0 && m.steps > m.opts.StepLimit {
		return errors.Wrap(ErrStepLimit, "after %d iterations", m.opts.StepLimit)
	}
	if m.steps%1024 == 0 {
		if err := m.ctx.Err(); err != nil {
			return errors.Wrap(err, "interrupted")
		}
	}
	return nil
}

// Apply computes a op b on non-negative integers. Subtraction saturates
// at zero, division and remainder by zero give zero.
func Apply(op ir.Op, a, b *big.Int) (*big.Int, error) {
	r := new(big.Int)
	switch op {
	case ir.OpAdd:
		r.Add(a, b)
	case ir.OpSub:
		r.Sub(a, b)
		if r.Sign() < 0 {
			r.SetInt64(0)
		}
	case ir.OpMul:
		r.Mul(a, b)
	case ir.OpDiv:
		if b.Sign() != 0 {
			r.Quo(a, b)
		}
	case ir.OpMod:
		if b.Sign() != 0 {
			r.Rem(a, b)
		}
	case ir.OpShl:
		if !b.IsUint64() {
			break
		}
		if b.Uint64() > maxShlBits && a.Sign() != 0 {
			return nil, errors.Wrap(ErrShiftTooLarge, "%v bits", b)
		}
		r.Lsh(a, uint(b.Uint64()))
	case ir.OpShr:
		if b.IsUint64() {
			r.Rsh(a, uint(b.Uint64()))
		}
	default:
		return nil, errors.New("unknown operator %v", op)
	}
	return r, nil
}
