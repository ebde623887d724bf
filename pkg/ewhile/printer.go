package ewhile

import (
	"fmt"
	"io"
	"strings"
)

// Printer renders EWHILE trees as source text. With Resolved set,
// variables are printed as the registers scope analysis bound them to
// and reserved temporaries are listed in comments.
type Printer struct {
	w        io.Writer
	indent   int
	Resolved bool
}

// NewPrinter creates a new EWHILE printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintProgram prints a whole program followed by a newline.
func (p *Printer) PrintProgram(prog *Program) {
	if prog.Body == nil {
		fmt.Fprintln(p.w, "/* empty */")
		return
	}
	p.printStmt(prog.Body)
	fmt.Fprintln(p.w)
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) printStmt(s Stmt) {
	switch s := s.(type) {
	case *Block:
		for i, st := range s.Stmts {
			if i > 0 {
				fmt.Fprint(p.w, ";\n")
			}
			p.printStmt(st)
		}
	case *Let:
		p.writeIndent()
		names := s.Names
		if p.Resolved && len(s.IDs) == len(s.Names) {
			names = s.IDs
		}
		fmt.Fprintf(p.w, "let %s", strings.Join(names, ", "))
	case *Assign:
		p.writeIndent()
		fmt.Fprintf(p.w, "%s = %s", p.operand(s.Target), p.expr(s.Expr))
		p.temps(s.Expr.Temps)
	case *Echo:
		p.writeIndent()
		fmt.Fprintf(p.w, "echo %s", p.operand(s.Var))
	case *While:
		p.writeIndent()
		fmt.Fprintf(p.w, "while %s do", p.cond(s.Cond))
		p.temps(p.condTemps(s.Cond))
		fmt.Fprintln(p.w)
		p.block(s.Body)
		p.writeIndent()
		fmt.Fprint(p.w, "end")
	case *If:
		p.writeIndent()
		fmt.Fprintf(p.w, "if %s then", p.cond(s.Cond))
		p.temps(append(p.condTemps(s.Cond), s.Temps...))
		fmt.Fprintln(p.w)
		p.block(s.Then)
		if s.Else != nil {
			p.writeIndent()
			fmt.Fprintln(p.w, "else")
			p.block(s.Else)
		}
		p.writeIndent()
		fmt.Fprint(p.w, "end")
	default:
		fmt.Fprintf(p.w, "/* unknown statement %T */", s)
	}
}

func (p *Printer) block(s Stmt) {
	p.indent++
	p.printStmt(s)
	p.indent--
	fmt.Fprintln(p.w)
}

func (p *Printer) operand(o Operand) string {
	if p.Resolved && o.Resolve != "" {
		return o.Resolve
	}
	return o.String()
}

func (p *Printer) expr(e Expr) string {
	if e.Op == OpNone {
		return p.operand(e.Left)
	}
	return fmt.Sprintf("%s %s %s", p.operand(e.Left), e.Op, p.operand(e.Right))
}

func (p *Printer) cond(c *Cond) string {
	return fmt.Sprintf("%s %s %s", p.expr(c.Left), c.Op, p.expr(c.Right))
}

func (p *Printer) condTemps(c *Cond) []string {
	var all []string
	all = append(all, c.Left.Temps...)
	all = append(all, c.Right.Temps...)
	return append(all, c.Temps...)
}

func (p *Printer) temps(names []string) {
	if !p.Resolved || len(names) == 0 {
		return
	}
	fmt.Fprintf(p.w, " /* temps %s */", strings.Join(names, " "))
}

// String renders a program with a fresh Printer.
func String(prog *Program, resolved bool) string {
	var b strings.Builder
	pr := NewPrinter(&b)
	pr.Resolved = resolved
	pr.PrintProgram(prog)
	return b.String()
}
