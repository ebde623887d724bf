package ir

import (
	"fmt"
	"io"
	"strings"
)

// Printer writes IR back out as WHILE source. Closed-form operations that
// have no WHILE spelling are written as "x0 = x1 * x2".
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new IR printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, indent: 0}
}

// PrintProgram prints a complete program
func (p *Printer) PrintProgram(prog Program) {
	if prog.Body == nil {
		return
	}
	p.printStmts(Statements(prog.Body))
	fmt.Fprintln(p.w)
}

// PrintNode prints any node at the current indentation.
func (p *Printer) PrintNode(n Node) {
	switch n := n.(type) {
	case Program:
		p.PrintProgram(n)
	case Condition:
		fmt.Fprint(p.w, conditionString(n))
	default:
		p.printStmts(Statements(n))
	}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) printStmts(stmts []Node) {
	for i, s := range stmts {
		if i > 0 {
			fmt.Fprintln(p.w, ";")
		}
		p.writeIndent()
		p.printStmt(s)
	}
}

func (p *Printer) printStmt(s Node) {
	switch s := s.(type) {
	case Assignment:
		fmt.Fprintf(p.w, "%s = %s %s %s", s.Target, s.Source, s.Op, s.Constant)
	case AssignmentTwoOperand:
		fmt.Fprintf(p.w, "%s = %s %s %s", s.Target, s.Source, s.Op, s.Operand)
		if s.ScaleNum != 1 || s.ScaleDen != 1 {
			fmt.Fprintf(p.w, " /* scale %d/%d */", s.ScaleNum, s.ScaleDen)
		}
	case While:
		fmt.Fprintf(p.w, "while %s do\n", conditionString(s.Cond))
		p.indent++
		p.printStmts(Statements(s.Body))
		p.indent--
		fmt.Fprintln(p.w)
		p.writeIndent()
		fmt.Fprint(p.w, "end")
	case Print:
		fmt.Fprintf(p.w, "echo %s", s.Var)
	case Empty:
		fmt.Fprintf(p.w, "/* %s */", s.Reason)
	case Sequence:
		p.printStmts(Statements(s))
	default:
		fmt.Fprintf(p.w, "/* unknown statement %T */", s)
	}
}

func conditionString(c Condition) string {
	th := c.Threshold
	if th == "" {
		th = "0"
	}
	return fmt.Sprintf("%s > %s", c.Var, th)
}

// String renders n with a Printer.
func String(n Node) string {
	var sb strings.Builder
	NewPrinter(&sb).PrintNode(n)
	return sb.String()
}
