// Package scope implements the lexical scope tree of an EWHILE program
// and the allocator that hands out and recycles temporary registers
// against it.
package scope

import (
	"sort"

	"tlog.app/go/errors"

	"github.com/raymyers/ralph-while/pkg/lexer"
)

var (
	ErrUndeclared  = errors.New("variable is not declared in this or a parent scope")
	ErrRedeclared  = errors.New("variable is already declared in this or a parent scope")
	ErrNotPrepared = errors.New("ids are not assigned yet, call Prepare first")
	ErrNoScope     = errors.New("no such scope")
	ErrNotLive     = errors.New("temporary is not live")
	ErrReserved    = errors.New("name is not available for temporaries")
)

// GlobalID is the index of the global scope in a Table.
const GlobalID = 0

// Var is the metadata kept for one name in one scope.
type Var struct {
	Name     string
	Used     bool
	Assigned bool
	Order    int // value of the scope's order counter at declaration
	Decl     bool
	Global   bool // a register such as x3, always in the global scope
	Temp     bool
	Recycled bool
	ID       string // resolved register name, set by Prepare; empty for temporaries
}

// Child links a scope to a child created when the parent's order counter
// had the value Order.
type Child struct {
	ID    int
	Order int
}

// Scope is one lexical block: the program, a loop body or an if/else
// branch.
type Scope struct {
	ID       int
	Parent   int // -1 for the global scope
	Children []Child

	vars  map[string]*Var
	names []string // declaration order
	order int
	temps map[string]bool // every temporary ever issued here
}

// Vars returns the scope's records in declaration order.
func (s *Scope) Vars() []*Var {
	out := make([]*Var, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.vars[n])
	}
	return out
}

// Lookup returns the record declared under name in this scope only.
func (s *Scope) Lookup(name string) (*Var, bool) {
	v, ok := s.vars[name]
	return v, ok
}

func (s *Scope) add(v *Var) *Var {
	v.Order = s.order
	s.order++
	if _, ok := s.vars[v.Name]; !ok {
		s.names = append(s.names, v.Name)
	}
	s.vars[v.Name] = v
	return v
}

// childOrder returns the order index under which child was created.
func (s *Scope) childOrder(child int) int {
	for _, c := range s.Children {
		if c.ID == child {
			return c.Order
		}
	}
	return -1
}

// Table is the scope tree. Scopes live in an arena indexed by ID; the
// parent link is an index, never a pointer.
type Table struct {
	scopes []*Scope

	// strict limits rule 1 of Resolve to the scope the lookup starts in,
	// so ancestors' names are visible only through creation order. It is
	// set when temporaries are not reused.
	strict bool
}

// NewTable creates a tree holding only the global scope
func NewTable() *Table {
	t := &Table{}
	t.newScope(-1)
	return t
}

func (t *Table) newScope(parent int) *Scope {
	s := &Scope{
		ID:     len(t.scopes),
		Parent: parent,
		vars:   make(map[string]*Var),
		temps:  make(map[string]bool),
	}
	t.scopes = append(t.scopes, s)
	return s
}

// Global returns the root scope.
func (t *Table) Global() *Scope { return t.scopes[GlobalID] }

// Scope returns the scope with the given id, or nil.
func (t *Table) Scope(id int) *Scope {
	if id < 0 || id >= len(t.scopes) {
		return nil
	}
	return t.scopes[id]
}

// Len is the number of scopes including the global one.
func (t *Table) Len() int { return len(t.scopes) }

// NewChild opens a new scope under parent and records the parent's
// current order index with it.
func (t *Table) NewChild(parent int) (int, error) {
	p := t.Scope(parent)
	if p == nil {
		return 0, errors.Wrap(ErrNoScope, "parent %d", parent)
	}
	c := t.newScope(parent)
	p.Children = append(p.Children, Child{ID: c.ID, Order: p.order})
	p.order++
	return c.ID, nil
}

// Resolve finds the record name refers to when used in scope from. At
// each scope on the way to the root:
//
//  1. a declared, non-recycled record resolves (in strict mode only in
//     the starting scope);
//  2. coming up from a child, a declared record whose order is below the
//     child's creation order resolves, recycled or not;
//  3. a record whose resolved id equals name resolves.
func (t *Table) Resolve(from int, name string) (*Scope, *Var, bool) {
	prev := -1
	for s := t.Scope(from); s != nil; s = t.Scope(s.Parent) {
		if v, ok := s.vars[name]; ok && v.Decl {
			if !v.Recycled && (!t.strict || s.ID == from) {
				return s, v, true
			}
			if prev >= 0 && v.Order < s.childOrder(prev) {
				return s, v, true
			}
		}
		for _, n := range s.names {
			if v := s.vars[n]; v.ID != "" && v.ID == name {
				return s, v, true
			}
		}
		prev = s.ID
	}
	return nil, nil, false
}

// Declare records a "let" declaration of name in scope. Register names
// always go to the global scope and may be declared more than once.
func (t *Table) Declare(scope int, name string) (*Var, error) {
	s := t.Scope(scope)
	if s == nil {
		return nil, errors.Wrap(ErrNoScope, "scope %d", scope)
	}
	if lexer.IsRegister(name) {
		return t.register(name), nil
	}
	if _, v, ok := t.Resolve(scope, name); ok {
		return v, errors.Wrap(ErrRedeclared, "%s", name)
	}
	return s.add(&Var{Name: name, Decl: true}), nil
}

// Use resolves a reference to name from scope and marks it used or
// assigned. An unknown register name is declared in the global scope.
func (t *Table) Use(scope int, name string, assigned bool) (*Var, error) {
	if t.Scope(scope) == nil {
		return nil, errors.Wrap(ErrNoScope, "scope %d", scope)
	}
	_, v, ok := t.Resolve(scope, name)
	if !ok {
		if !lexer.IsRegister(name) {
			return nil, errors.Wrap(ErrUndeclared, "%s", name)
		}
		v = t.register(name)
	}
	if assigned {
		v.Assigned = true
	} else {
		v.Used = true
	}
	return v, nil
}

func (t *Table) register(name string) *Var {
	g := t.Global()
	if v, ok := g.vars[name]; ok {
		return v
	}
	return g.add(&Var{Name: name, Decl: true, Global: true, ID: name})
}

// declareTemp adds or revives a temporary record in scope.
func (t *Table) declareTemp(scope int, name string) *Var {
	s := t.scopes[scope]
	s.temps[name] = true
	if v, ok := s.vars[name]; ok && v.Temp {
		v.Recycled = false
		return v
	}
	return s.add(&Var{Name: name, Decl: true, Temp: true})
}

// Registers lists the global register names in ascending index order.
func (t *Table) Registers() []string {
	var out []string
	for _, v := range t.Global().Vars() {
		if v.Global {
			out = append(out, v.Name)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return registerIndex(out[i]) < registerIndex(out[j])
	})
	return out
}

// Walk visits scopes depth first, children in creation order.
func (t *Table) Walk(fn func(s *Scope, depth int)) {
	var walk func(id, depth int)
	walk = func(id, depth int) {
		s := t.scopes[id]
		fn(s, depth)
		for _, c := range s.Children {
			walk(c.ID, depth+1)
		}
	}
	walk(GlobalID, 0)
}
