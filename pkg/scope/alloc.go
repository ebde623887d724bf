package scope

import (
	"context"
	"fmt"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/raymyers/ralph-while/pkg/lexer"
)

type frame struct {
	scope int
	next  int // index of the next child to enter
}

// Allocator walks a finished scope tree in code generation order and
// issues temporary register names. A name is handed out again only once
// it has been released, so two live temporaries never share a name.
//
// With reuse enabled, released names go to the current scope's pool and
// move to the global pool when that scope is left. NextTemp takes from
// the current pool, then the global pool, then the nearest enclosing
// scope's pool, and only then mints a new name.
type Allocator struct {
	t     *Table
	reuse bool
	tr    tlog.Span

	stack  []frame
	local  map[int][]string
	global []string
	live   map[string]int // temporary -> scope it was issued in
	known  map[string]bool
	minted []string
	peak   int

	prepared bool
	zero     string
	first    int // index of the first temporary
	next     int // index of the next temporary to mint
}

// NewAllocator creates an allocator positioned at the global scope of t.
// Without reuse, t resolves strictly from then on.
func NewAllocator(ctx context.Context, t *Table, reuse bool) *Allocator {
	t.strict = !reuse
	return &Allocator{
		t:     t,
		reuse: reuse,
		tr:    tlog.SpanFromContext(ctx),
		stack: []frame{{scope: GlobalID}},
		local: make(map[int][]string),
		live:  make(map[string]int),
		known: make(map[string]bool),
	}
}

// Prepare assigns register ids. Global registers keep their own name;
// every other declared variable gets x<k> in depth-first declaration
// order, k starting after the highest register index used in the
// program. The next index is the zero register and temporaries follow.
func (a *Allocator) Prepare() error {
	if a.prepared {
		return nil
	}

	counter := 1
	for _, r := range a.t.Registers() {
		if i := registerIndex(r); i+1 > counter {
			counter = i + 1
		}
	}

	a.t.Walk(func(s *Scope, _ int) {
		for _, v := range s.Vars() {
			if v.Decl && !v.Global && !v.Temp && v.ID == "" {
				v.ID = fmt.Sprintf("x%d", counter)
				counter++
			}
		}
	})

	a.zero = fmt.Sprintf("x%d", counter)
	a.first = counter + 1
	a.next = a.first
	a.prepared = true

	a.tr.V("alloc").Printw("ids prepared", "zero", a.zero, "first_temp", a.first)
	return nil
}

// Zero returns the register reserved for the constant 0.
func (a *Allocator) Zero() (string, error) {
	if !a.prepared {
		return "", ErrNotPrepared
	}
	return a.zero, nil
}

// Current returns the id of the scope the allocator is in.
func (a *Allocator) Current() int {
	return a.stack[len(a.stack)-1].scope
}

// Depth is the current nesting depth; the global scope is 0.
func (a *Allocator) Depth() int { return len(a.stack) - 1 }

// Enter moves into the next not yet visited child of the current scope.
func (a *Allocator) Enter() error {
	top := &a.stack[len(a.stack)-1]
	s := a.t.Scope(top.scope)
	if top.next >= len(s.Children) {
		return errors.Wrap(ErrNoScope, "scope %d has no more children", s.ID)
	}
	child := s.Children[top.next].ID
	top.next++
	a.stack = append(a.stack, frame{scope: child})

	a.tr.V("scope").Printw("enter scope", "scope", child, "parent", s.ID, "depth", a.Depth())
	return nil
}

// Exit returns to the parent scope. With reuse enabled the scope's pool
// is drained into the global pool.
func (a *Allocator) Exit() error {
	if len(a.stack) == 1 {
		return errors.Wrap(ErrNoScope, "already at the global scope")
	}
	cur := a.Current()
	if a.reuse && len(a.local[cur]) != 0 {
		a.global = append(a.global, a.local[cur]...)
		delete(a.local, cur)
	}
	a.stack = a.stack[:len(a.stack)-1]

	a.tr.V("scope").Printw("exit scope", "scope", cur, "global_pool", len(a.global))
	return nil
}

// NextTemp issues a temporary register in the current scope.
func (a *Allocator) NextTemp() (string, error) {
	if !a.prepared {
		return "", ErrNotPrepared
	}
	cur := a.Current()

	name, src := "", ""
	if a.reuse {
		name, src = a.fromPools(cur)
	} else {
		name, src = a.scan(cur), "scan"
	}
	if name == "" {
		name, src = a.mint(), "new"
	}

	a.t.declareTemp(cur, name)
	a.markLive(name, cur)

	a.tr.V("alloc").Printw("temp issued", "name", name, "from", src, "scope", cur, "live", len(a.live), "caller", loc.Caller(1))
	return name, nil
}

// mint creates the next temporary name, skipping names already
// introduced through Declare.
func (a *Allocator) mint() string {
	for {
		name := fmt.Sprintf("x%d", a.next)
		a.next++
		if !a.known[name] {
			a.remember(name)
			return name
		}
	}
}

func (a *Allocator) remember(name string) {
	a.known[name] = true
	a.minted = append(a.minted, name)
}

func (a *Allocator) fromPools(cur int) (string, string) {
	if name, ok := a.pop(cur); ok {
		return name, "local"
	}
	if len(a.global) != 0 {
		name := a.global[0]
		a.global = a.global[1:]
		return name, "global"
	}
	for i := len(a.stack) - 2; i >= 0; i-- {
		if name, ok := a.pop(a.stack[i].scope); ok {
			return name, "outer"
		}
	}
	return "", ""
}

func (a *Allocator) pop(scope int) (string, bool) {
	pool := a.local[scope]
	if len(pool) == 0 {
		return "", false
	}
	a.local[scope] = pool[1:]
	return pool[0], true
}

// scan looks for an already minted name that is dead, not visible from
// cur and never issued in cur.
func (a *Allocator) scan(cur int) string {
	s := a.t.Scope(cur)
	for _, name := range a.minted {
		if _, ok := a.live[name]; ok || s.temps[name] {
			continue
		}
		if _, _, ok := a.t.Resolve(cur, name); ok {
			continue
		}
		return name
	}
	return ""
}

func (a *Allocator) markLive(name string, scope int) {
	a.live[name] = scope
	if len(a.live) > a.peak {
		a.peak = len(a.live)
	}
}

// Release marks temporaries dead. The zero register is ignored.
func (a *Allocator) Release(names ...string) error {
	if !a.prepared {
		return ErrNotPrepared
	}
	cur := a.Current()
	for _, name := range names {
		if name == a.zero {
			continue
		}
		sid, ok := a.live[name]
		if !ok {
			return errors.Wrap(ErrNotLive, "%s", name)
		}
		delete(a.live, name)
		if v, ok := a.t.Scope(sid).vars[name]; ok {
			v.Recycled = true
		}
		if a.reuse {
			a.local[cur] = append(a.local[cur], name)
		}

		a.tr.V("alloc").Printw("temp released", "name", name, "scope", cur, "caller", loc.Caller(1))
	}
	return nil
}

// Declare declares name in the current scope. A temporary may be declared
// again once every earlier issue of it has been released. Temporaries
// must be register names past the zero register; NextTemp never mints a
// name declared this way.
func (a *Allocator) Declare(name string, temp bool) error {
	cur := a.Current()
	if !temp {
		_, err := a.t.Declare(cur, name)
		return err
	}
	if !a.prepared {
		return ErrNotPrepared
	}
	if !lexer.IsRegister(name) || registerIndex(name) < a.first {
		return errors.Wrap(ErrReserved, "%s", name)
	}
	if _, ok := a.live[name]; ok {
		return errors.Wrap(ErrRedeclared, "temporary %s is live", name)
	}
	if _, v, ok := a.t.Resolve(cur, name); ok && !v.Recycled && !v.Temp {
		return errors.Wrap(ErrRedeclared, "%s", name)
	}
	if !a.known[name] {
		a.remember(name)
	}
	a.unpool(name)
	a.t.declareTemp(cur, name)
	a.markLive(name, cur)
	return nil
}

func (a *Allocator) unpool(name string) {
	drop := func(pool []string) []string {
		out := pool[:0]
		for _, n := range pool {
			if n != name {
				out = append(out, n)
			}
		}
		return out
	}
	a.global = drop(a.global)
	for id, pool := range a.local {
		a.local[id] = drop(pool)
	}
}

// Resolve returns the register a name used in the current scope stands
// for.
func (a *Allocator) Resolve(name string) (string, error) {
	_, v, ok := a.t.Resolve(a.Current(), name)
	switch {
	case !ok && lexer.IsRegister(name):
		return name, nil
	case !ok:
		return "", errors.Wrap(ErrUndeclared, "%s", name)
	case v.Temp:
		return v.Name, nil
	case v.ID == "":
		return "", errors.Wrap(ErrNotPrepared, "%s", name)
	}
	return v.ID, nil
}

// Live is the number of temporaries issued and not yet released.
func (a *Allocator) Live() int { return len(a.live) }

// Peak is the highest number of simultaneously live temporaries seen.
func (a *Allocator) Peak() int { return a.peak }

// Minted lists every distinct temporary name created, in order.
func (a *Allocator) Minted() []string {
	return append([]string(nil), a.minted...)
}

func registerIndex(name string) int {
	i, err := strconv.Atoi(name[1:])
	if err != nil {
		return -1
	}
	return i
}
