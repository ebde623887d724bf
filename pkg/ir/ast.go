// Package ir defines the tree shared by the WHILE parser, the pattern
// library and the rewriter.
package ir

import (
	"math/big"

	"tlog.app/go/errors"
)

// Node is the base interface for all IR nodes. The variant set is closed:
// Program, Sequence, Assignment, AssignmentTwoOperand, While, Condition,
// Print and Empty.
type Node interface {
	implIRNode()
}

// Ident names a register or, inside pattern trees, a placeholder.
type Ident string

// Op is an arithmetic operator
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl // <<
	OpShr // >>
)

func (op Op) String() string {
	names := []string{"+", "-", "*", "/", "%", "<<", ">>"}
	if int(op) >= 0 && int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// ParseOp maps an operator spelling back to its Op.
func ParseOp(s string) (Op, bool) {
	for op := OpAdd; op <= OpShr; op++ {
		if op.String() == s {
			return op, true
		}
	}
	return 0, false
}

// Const is a non-negative integer literal of arbitrary size, kept in
// normalized decimal form so that trees compare with ==.
type Const string

// NewConst validates and normalizes a decimal literal.
func NewConst(lit string) (Const, error) {
	v, ok := new(big.Int).SetString(lit, 10)
	if !ok {
		return "", errors.New("invalid integer literal %q", lit)
	}
	if v.Sign() < 0 {
		return "", errors.New("negative integer literal %q", lit)
	}
	return Const(v.String()), nil
}

// ConstOf builds a Const from a small value.
func ConstOf(v uint64) Const {
	return Const(new(big.Int).SetUint64(v).String())
}

// Int returns the value as a fresh big.Int. An empty Const is zero.
func (c Const) Int() *big.Int {
	v, ok := new(big.Int).SetString(string(c), 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// IsZero reports whether c is the literal 0.
func (c Const) IsZero() bool { return c == "0" || c == "" }

// Program is the compilation unit root. Body may be nil.
type Program struct {
	Body Node
}

// Sequence is an ordered list of statements. The parser produces
// right-nested two-element sequences; Flatten turns them into one list.
type Sequence struct {
	Stmts []Node
}

// Assignment is target := source op constant, op being + or -.
type Assignment struct {
	Target   Ident
	Source   Ident
	Op       Op
	Constant Const
}

// AssignmentTwoOperand is target := (source op operand) * ScaleNum / ScaleDen.
// The scale is always 1/1 for now.
type AssignmentTwoOperand struct {
	Target   Ident
	Source   Ident
	Op       Op
	Operand  Ident
	ScaleNum int
	ScaleDen int
}

// While repeats Body while Cond holds.
type While struct {
	Cond Condition
	Body Node
}

// Condition is "Var > Threshold". Threshold is always 0 in parsed programs.
type Condition struct {
	Var       Ident
	Threshold Const
}

// Print writes the value of a register
type Print struct {
	Var Ident
}

// Empty stands in for an elided statement, such as the body of an empty file.
type Empty struct {
	Reason string
}

func (Program) implIRNode()              {}
func (Sequence) implIRNode()             {}
func (Assignment) implIRNode()           {}
func (AssignmentTwoOperand) implIRNode() {}
func (While) implIRNode()                {}
func (Condition) implIRNode()            {}
func (Print) implIRNode()                {}
func (Empty) implIRNode()                {}

// TwoOperand builds an AssignmentTwoOperand with unit scale.
func TwoOperand(target, source Ident, op Op, operand Ident) AssignmentTwoOperand {
	return AssignmentTwoOperand{Target: target, Source: source, Op: op, Operand: operand, ScaleNum: 1, ScaleDen: 1}
}

// IsPlaceholder reports whether id has the register shape x<digits>,
// which inside a pattern tree binds to any concrete identifier.
func IsPlaceholder(id Ident) bool {
	if len(id) < 2 || id[0] != 'x' {
		return false
	}
	for i := 1; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return true
}
