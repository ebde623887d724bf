package scope

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareAssignsIDs(t *testing.T) {
	tab := NewTable()
	_, _ = tab.Declare(GlobalID, "a")
	_, _ = tab.Use(GlobalID, "x3", false)
	child, _ := tab.NewChild(GlobalID)
	_, _ = tab.Declare(child, "b")
	_, _ = tab.Declare(GlobalID, "c")

	a := NewAllocator(context.Background(), tab, true)
	_, err := a.Zero()
	assert.ErrorIs(t, err, ErrNotPrepared)

	require.NoError(t, a.Prepare())

	ids := map[string]string{}
	tab.Walk(func(s *Scope, _ int) {
		for _, v := range s.Vars() {
			ids[v.Name] = v.ID
		}
	})
	assert.Equal(t, map[string]string{"a": "x4", "x3": "x3", "c": "x5", "b": "x6"}, ids)

	zero, err := a.Zero()
	require.NoError(t, err)
	assert.Equal(t, "x7", zero)

	tmp, err := a.NextTemp()
	require.NoError(t, err)
	assert.Equal(t, "x8", tmp)

	require.NoError(t, a.Enter())
	id, err := a.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "x4", id)
	id, err = a.Resolve("b")
	require.NoError(t, err)
	assert.Equal(t, "x6", id)
	id, err = a.Resolve("x11")
	require.NoError(t, err)
	assert.Equal(t, "x11", id)
	_, err = a.Resolve("nope")
	assert.ErrorIs(t, err, ErrUndeclared)
}

func TestPrepareWithoutRegisters(t *testing.T) {
	a := NewAllocator(context.Background(), NewTable(), true)
	require.NoError(t, a.Prepare())
	zero, _ := a.Zero()
	assert.Equal(t, "x1", zero)
	tmp, _ := a.NextTemp()
	assert.Equal(t, "x2", tmp)
}

func TestMisuseBeforePrepare(t *testing.T) {
	a := NewAllocator(context.Background(), NewTable(), true)

	_, err := a.NextTemp()
	assert.ErrorIs(t, err, ErrNotPrepared)
	assert.ErrorIs(t, a.Release("x2"), ErrNotPrepared)
	assert.ErrorIs(t, a.Declare("x2", true), ErrNotPrepared)
}

func TestScopeNavigation(t *testing.T) {
	tab := NewTable()
	c1, _ := tab.NewChild(GlobalID)
	c2, _ := tab.NewChild(GlobalID)

	a := NewAllocator(context.Background(), tab, true)
	assert.ErrorIs(t, a.Exit(), ErrNoScope)

	require.NoError(t, a.Enter())
	assert.Equal(t, c1, a.Current())
	assert.ErrorIs(t, a.Enter(), ErrNoScope, "c1 has no children")
	require.NoError(t, a.Exit())

	require.NoError(t, a.Enter())
	assert.Equal(t, c2, a.Current())
	assert.Equal(t, 1, a.Depth())
	require.NoError(t, a.Exit())

	assert.ErrorIs(t, a.Enter(), ErrNoScope)
	assert.Equal(t, GlobalID, a.Current())
}

func TestRedeclareAndReuseAcrossScopes(t *testing.T) {
	tab := NewTable()
	_, _ = tab.NewChild(GlobalID)
	_, _ = tab.NewChild(GlobalID)

	a := NewAllocator(context.Background(), tab, true)
	require.NoError(t, a.Prepare())

	require.NoError(t, a.Enter())
	tmp, err := a.NextTemp()
	require.NoError(t, err)

	err = a.Declare(tmp, true)
	assert.ErrorIs(t, err, ErrRedeclared)

	require.NoError(t, a.Release(tmp))
	require.NoError(t, a.Exit())

	require.NoError(t, a.Enter())
	again, err := a.NextTemp()
	require.NoError(t, err)
	assert.Equal(t, tmp, again, "released name is reused in the sibling scope")
	assert.Equal(t, []string{tmp}, a.Minted())

	require.NoError(t, a.Release(again))
	require.NoError(t, a.Declare(again, true), "explicit declaration after release")
	assert.Equal(t, 1, a.Live())
}

func TestDeclaredTempIsNotMinted(t *testing.T) {
	for _, reuse := range []bool{true, false} {
		a := NewAllocator(context.Background(), NewTable(), reuse)
		require.NoError(t, a.Prepare())
		zero, _ := a.Zero()
		assert.Equal(t, "x1", zero)

		require.NoError(t, a.Declare("x2", true))
		tmp, err := a.NextTemp()
		require.NoError(t, err)
		assert.Equal(t, "x3", tmp, "reuse=%v", reuse)
		assert.Equal(t, 2, a.Live())
		assert.Equal(t, 2, a.Peak())

		require.NoError(t, a.Declare("x5", true))
		tmp, err = a.NextTemp()
		require.NoError(t, err)
		assert.Equal(t, "x4", tmp, "reuse=%v", reuse)
		tmp, err = a.NextTemp()
		require.NoError(t, err)
		assert.Equal(t, "x6", tmp, "reuse=%v", reuse)
		assert.Equal(t, []string{"x2", "x3", "x5", "x4", "x6"}, a.Minted())
	}
}

func TestDeclareReservedNames(t *testing.T) {
	tab := NewTable()
	_, _ = tab.Declare(GlobalID, "a")
	a := NewAllocator(context.Background(), tab, true)
	require.NoError(t, a.Prepare())

	zero, _ := a.Zero()
	assert.ErrorIs(t, a.Declare(zero, true), ErrReserved)
	assert.ErrorIs(t, a.Declare("x1", true), ErrReserved, "id of a")
	assert.ErrorIs(t, a.Declare("x0", true), ErrReserved)
	assert.ErrorIs(t, a.Declare("tmp", true), ErrReserved)
	assert.Equal(t, 0, a.Live())
}

func TestReleaseErrors(t *testing.T) {
	a := NewAllocator(context.Background(), NewTable(), true)
	require.NoError(t, a.Prepare())

	tmp, _ := a.NextTemp()
	require.NoError(t, a.Release(tmp))
	assert.ErrorIs(t, a.Release(tmp), ErrNotLive)

	zero, _ := a.Zero()
	assert.NoError(t, a.Release(zero), "zero register is skipped")
}

func TestPoolOrder(t *testing.T) {
	tab := NewTable()
	child, _ := tab.NewChild(GlobalID)
	_, _ = tab.NewChild(child)

	a := NewAllocator(context.Background(), tab, true)
	require.NoError(t, a.Prepare())

	// x2..x5 minted in the global scope, two of them released there
	var names []string
	for i := 0; i < 4; i++ {
		n, err := a.NextTemp()
		require.NoError(t, err)
		names = append(names, n)
	}
	assert.Equal(t, []string{"x2", "x3", "x4", "x5"}, names)
	require.NoError(t, a.Release("x4", "x2"))

	// the child finds nothing locally or globally and takes from the
	// enclosing scope's pool, oldest first
	require.NoError(t, a.Enter())
	n, _ := a.NextTemp()
	assert.Equal(t, "x4", n)

	require.NoError(t, a.Enter())
	m, _ := a.NextTemp()
	assert.Equal(t, "x2", m)
	require.NoError(t, a.Release(m))
	require.NoError(t, a.Exit())

	// x2 now sits in the global pool
	k, _ := a.NextTemp()
	assert.Equal(t, "x2", k)

	l, _ := a.NextTemp()
	assert.Equal(t, "x6", l, "everything else is live")
}

func TestNoReuseMode(t *testing.T) {
	tab := NewTable()
	_, _ = tab.NewChild(GlobalID)
	_, _ = tab.NewChild(GlobalID)

	a := NewAllocator(context.Background(), tab, false)
	require.NoError(t, a.Prepare())

	require.NoError(t, a.Enter())
	t1, _ := a.NextTemp()
	require.NoError(t, a.Release(t1))
	t2, _ := a.NextTemp()
	assert.NotEqual(t, t1, t2, "never reused in the scope that issued it")
	require.NoError(t, a.Release(t2))
	require.NoError(t, a.Exit())

	require.NoError(t, a.Enter())
	t3, _ := a.NextTemp()
	assert.Equal(t, t1, t3, "disjoint scope may reuse")
}

func randomTree(r *rand.Rand, tab *Table, parent, depth int) {
	if depth == 0 {
		return
	}
	for n := r.Intn(4); n > 0; n-- {
		c, _ := tab.NewChild(parent)
		randomTree(r, tab, c, depth-1)
	}
}

type model struct {
	r       *rand.Rand
	a       *Allocator
	tab     *Table
	live    map[string]bool
	declare bool
}

func (m *model) step(t *testing.T) {
	top := m.a.stack[len(m.a.stack)-1]
	canEnter := top.next < len(m.tab.Scope(top.scope).Children)

	ops := 10
	if m.declare {
		ops = 12
	}

	switch op := m.r.Intn(ops); {
	case op >= 10:
		m.declareTemp(t)
	case op < 4:
		name, err := m.a.NextTemp()
		require.NoError(t, err)
		require.False(t, m.live[name], "%s issued while live", name)
		m.live[name] = true
	case op < 7 && len(m.live) > 0:
		for name := range m.live {
			require.NoError(t, m.a.Release(name))
			delete(m.live, name)
			break
		}
	case op < 9 && canEnter:
		require.NoError(t, m.a.Enter())
	default:
		if m.a.Depth() > 0 {
			require.NoError(t, m.a.Exit())
		}
	}
}

func (m *model) declareTemp(t *testing.T) {
	var name string
	switch minted := m.a.Minted(); {
	case m.r.Intn(2) == 0 || len(minted) == 0:
		name = fmt.Sprintf("x%d", m.a.next+m.r.Intn(3))
	default:
		name = minted[m.r.Intn(len(minted))]
	}

	err := m.a.Declare(name, true)
	if m.live[name] {
		require.ErrorIs(t, err, ErrRedeclared)
		return
	}
	require.NoError(t, err)
	m.live[name] = true
}

func TestAllocatorSafety(t *testing.T) {
	for _, reuse := range []bool{true, false} {
		for seed := int64(0); seed < 50; seed++ {
			t.Run(fmt.Sprintf("reuse=%v/seed=%d", reuse, seed), func(t *testing.T) {
				r := rand.New(rand.NewSource(seed))
				tab := NewTable()
				randomTree(r, tab, GlobalID, 4)

				a := NewAllocator(context.Background(), tab, reuse)
				require.NoError(t, a.Prepare())

				m := &model{r: r, a: a, tab: tab, live: map[string]bool{}, declare: true}
				for i := 0; i < 400; i++ {
					m.step(t)
				}
				assert.Equal(t, len(m.live), a.Live())
			})
		}
	}
}

func TestAllocatorBoundedness(t *testing.T) {
	for seed := int64(0); seed < 100; seed++ {
		r := rand.New(rand.NewSource(seed))
		tab := NewTable()
		randomTree(r, tab, GlobalID, 4)

		a := NewAllocator(context.Background(), tab, true)
		require.NoError(t, a.Prepare())

		m := &model{r: r, a: a, tab: tab, live: map[string]bool{}}
		for i := 0; i < 400; i++ {
			m.step(t)
		}
		assert.LessOrEqual(t, len(a.Minted()), a.Peak(), "seed %d", seed)
	}
}
