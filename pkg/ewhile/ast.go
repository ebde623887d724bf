// Package ewhile defines the syntax tree and parser of EWHILE, the
// extended WHILE language with named variables, conditionals and a full
// operator set.
//
// Nodes are pointers: scope analysis writes resolved register names and
// temporaries back into them.
package ewhile

import (
	"tlog.app/go/errors"

	"github.com/raymyers/ralph-while/pkg/lexer"
)

// ErrUnsupported is returned for constructs the code generator has no
// template for, such as a shift by a constant.
var ErrUnsupported = errors.New("unsupported construct")

// Node is the base interface for all EWHILE nodes
type Node interface {
	implEWhileNode()
}

// Stmt is the interface for all statement nodes
type Stmt interface {
	Node
	implStmt()
}

// Op is a binary expression operator
type Op int

const (
	OpNone Op = iota // plain copy: a = b
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl // <<
	OpShr // >>
	OpMax // ^?
	OpMin // v?
)

func (op Op) String() string {
	names := []string{"", "+", "-", "*", "/", "%", "<<", ">>", "^?", "v?"}
	if int(op) >= 0 && int(op) < len(names) {
		return names[op]
	}
	return "?"
}

var tokenOps = map[lexer.TokenType]Op{
	lexer.TokenPlus:    OpAdd,
	lexer.TokenMinus:   OpSub,
	lexer.TokenStar:    OpMul,
	lexer.TokenSlash:   OpDiv,
	lexer.TokenPercent: OpMod,
	lexer.TokenShl:     OpShl,
	lexer.TokenShr:     OpShr,
	lexer.TokenMax:     OpMax,
	lexer.TokenMin:     OpMin,
}

// CondOp is a comparison operator
type CondOp int

const (
	CondGt CondOp = iota // >
	CondEq               // ==
	CondNe               // !=
)

func (op CondOp) String() string {
	names := []string{">", "==", "!="}
	if int(op) >= 0 && int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Operand is a variable reference or a decimal constant.
type Operand struct {
	Name    string // variable name, empty for constants
	Const   string // literal, empty for variables
	Line    int
	Column  int
	Resolve string // register the name resolves to, set by scope analysis
}

// IsConst reports whether the operand is a literal.
func (o Operand) IsConst() bool { return o.Name == "" }

func (o Operand) String() string {
	if o.IsConst() {
		return o.Const
	}
	return o.Name
}

// Expr is "Left", or "Left Op Right".
type Expr struct {
	Left  Operand
	Op    Op
	Right Operand
	Temps []string // temporaries reserved for evaluating the expression
}

// Program is the compilation unit root. Body is nil for an empty file.
type Program struct {
	Body Stmt
}

// Block is a sequence of statements.
type Block struct {
	Stmts []Stmt
}

// Let declares variables in the enclosing scope.
type Let struct {
	Names []string
	IDs   []string
	Line  int
}

// Assign is "Target = Expr".
type Assign struct {
	Target Operand
	Expr   Expr
	Line   int
	Column int
}

// Cond compares two expressions.
type Cond struct {
	Left  Expr
	Op    CondOp
	Right Expr
	Temps []string // X, Y, result and, for == and !=, three scratch registers
}

// While loops while Cond holds. Scope is the id of its body's scope.
type While struct {
	Cond  *Cond
	Body  Stmt
	Scope int
	Line  int
}

// If runs Then when Cond holds and Else otherwise. Else may be nil.
type If struct {
	Cond      *Cond
	Then      Stmt
	Else      Stmt
	Temps     []string
	ThenScope int
	ElseScope int
	Line      int
}

// Echo prints a variable.
type Echo struct {
	Var Operand
}

func (*Program) implEWhileNode() {}
func (*Block) implEWhileNode()   {}
func (*Let) implEWhileNode()     {}
func (*Assign) implEWhileNode()  {}
func (*Cond) implEWhileNode()    {}
func (*While) implEWhileNode()   {}
func (*If) implEWhileNode()      {}
func (*Echo) implEWhileNode()    {}

func (*Block) implStmt()  {}
func (*Let) implStmt()    {}
func (*Assign) implStmt() {}
func (*While) implStmt()  {}
func (*If) implStmt()     {}
func (*Echo) implStmt()   {}

// TempsNeeded is the number of temporaries the code generator's template
// for e uses.
func TempsNeeded(e Expr) (int, error) {
	if e.Op == OpNone {
		return 0, nil
	}
	if e.Left.IsConst() {
		return 0, errors.Wrap(ErrUnsupported, "constant left operand of %s", e.Op)
	}
	rc := e.Right.IsConst()
	switch e.Op {
	case OpAdd, OpSub:
		if rc {
			return 0, nil
		}
		return 1, nil
	case OpMul:
		if rc {
			return 1, nil
		}
		return 3, nil
	case OpDiv:
		if rc {
			return 1, nil
		}
		return 4, nil
	}
	if rc {
		return 0, errors.Wrap(ErrUnsupported, "%s with a constant right operand", e.Op)
	}
	switch e.Op {
	case OpMod, OpMax, OpMin:
		return 2, nil
	case OpShl:
		return 8, nil
	case OpShr:
		return 6, nil
	}
	return 0, errors.Wrap(ErrUnsupported, "operator %v", e.Op)
}

// CondTemps is the number of temporaries a condition reserves besides
// those of its two expressions.
func CondTemps(op CondOp) int {
	if op == CondGt {
		return 3
	}
	return 6
}

// IfTemps is the number of temporaries an if statement reserves besides
// those of its condition.
func IfTemps(hasElse bool) int {
	if hasElse {
		return 5
	}
	return 4
}
