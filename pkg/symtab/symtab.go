// Package symtab holds the flat variable and constant tables that travel
// with an IR program to code generation.
package symtab

import (
	"fmt"
	"io"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-while/pkg/ir"
)

// Variable records how a register is used in a program.
type Variable struct {
	Name     ir.Ident
	Used     bool
	Assigned bool
	Order    int // first appearance
}

// Table is the variable table, in order of first appearance.
type Table struct {
	vars  map[ir.Ident]*Variable
	order []ir.Ident
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{vars: make(map[ir.Ident]*Variable)}
}

// Add registers name if it is not known yet and returns its record.
func (t *Table) Add(name ir.Ident) *Variable {
	if v, ok := t.vars[name]; ok {
		return v
	}
	v := &Variable{Name: name, Order: len(t.order)}
	t.vars[name] = v
	t.order = append(t.order, name)
	return v
}

func (t *Table) MarkUsed(name ir.Ident)     { t.Add(name).Used = true }
func (t *Table) MarkAssigned(name ir.Ident) { t.Add(name).Assigned = true }

// Lookup returns the record for name.
func (t *Table) Lookup(name ir.Ident) (Variable, bool) {
	v, ok := t.vars[name]
	if !ok {
		return Variable{}, false
	}
	return *v, true
}

// Contains reports whether name is in the table.
func (t *Table) Contains(name ir.Ident) bool {
	_, ok := t.vars[name]
	return ok
}

// Variables returns all records in order of first appearance.
func (t *Table) Variables() []Variable {
	out := make([]Variable, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.vars[name])
	}
	return out
}

func (t *Table) Len() int { return len(t.order) }

// Dump writes one line per variable.
func (t *Table) Dump(w io.Writer) {
	for _, v := range t.Variables() {
		fmt.Fprintf(w, "%-8s used=%-5v assigned=%v\n", v.Name, v.Used, v.Assigned)
	}
}

// ConstTable maps integer literals to synthetic constant register names
// constant_0, constant_1, ... in order of first appearance.
type ConstTable struct {
	names map[ir.Const]string
	order []ir.Const
}

// NewConstTable creates an empty constant table
func NewConstTable() *ConstTable {
	return &ConstTable{names: make(map[ir.Const]string)}
}

// Add returns the register name for c, allocating one if needed.
func (t *ConstTable) Add(c ir.Const) string {
	if name, ok := t.names[c]; ok {
		return name
	}
	name := fmt.Sprintf("constant_%d", len(t.order))
	t.names[c] = name
	t.order = append(t.order, c)
	return name
}

// Get returns the register name for c.
func (t *ConstTable) Get(c ir.Const) (string, bool) {
	name, ok := t.names[c]
	return name, ok
}

// Constants returns the literals in allocation order.
func (t *ConstTable) Constants() []ir.Const {
	return append([]ir.Const(nil), t.order...)
}

func (t *ConstTable) Len() int { return len(t.order) }

// Dump writes one line per constant.
func (t *ConstTable) Dump(w io.Writer) {
	for _, c := range t.order {
		fmt.Fprintf(w, "%-12s = %s\n", t.names[c], c)
	}
}

// Build walks the given trees and collects both tables. Passing the
// parsed and the optimized program together yields tables that cover
// either one.
func Build(nodes ...ir.Node) (*Table, *ConstTable) {
	vars := NewTable()
	consts := NewConstTable()
	for _, n := range nodes {
		ir.Walk(n, func(n ir.Node) bool {
			switch n := n.(type) {
			case ir.Assignment:
				vars.MarkAssigned(n.Target)
				vars.MarkUsed(n.Source)
				consts.Add(n.Constant)
			case ir.AssignmentTwoOperand:
				vars.MarkAssigned(n.Target)
				vars.MarkUsed(n.Source)
				vars.MarkUsed(n.Operand)
			case ir.Condition:
				vars.MarkUsed(n.Var)
				consts.Add(n.Threshold)
			case ir.Print:
				vars.MarkUsed(n.Var)
			}
			return true
		})
	}
	return vars, consts
}

// ErrMissing is returned by Check for a reference not covered by the tables.
var ErrMissing = errors.New("reference missing from symbol tables")

// Check verifies that every identifier and literal in n is present in
// the tables handed to code generation.
func Check(n ir.Node, vars *Table, consts *ConstTable) error {
	for _, id := range ir.Idents(n) {
		if !vars.Contains(id) {
			return errors.Wrap(ErrMissing, "variable %s", id)
		}
	}

	var err error
	ir.Walk(n, func(n ir.Node) bool {
		var c ir.Const
		switch n := n.(type) {
		case ir.Assignment:
			c = n.Constant
		case ir.Condition:
			c = n.Threshold
		default:
			return err == nil
		}
		if _, ok := consts.Get(c); !ok && err == nil {
			err = errors.Wrap(ErrMissing, "constant %s", c)
		}
		return false
	})
	return err
}
