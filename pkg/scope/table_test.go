package scope

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveClimbsToParent(t *testing.T) {
	tab := NewTable()
	_, err := tab.Declare(GlobalID, "a")
	require.NoError(t, err)
	child, err := tab.NewChild(GlobalID)
	require.NoError(t, err)
	grandchild, err := tab.NewChild(child)
	require.NoError(t, err)

	s, v, ok := tab.Resolve(grandchild, "a")
	require.True(t, ok)
	assert.Equal(t, GlobalID, s.ID)
	assert.Equal(t, "a", v.Name)

	_, err = tab.Use(grandchild, "a", true)
	require.NoError(t, err)
	assert.True(t, v.Assigned)
	assert.False(t, v.Used)
}

func TestUndeclaredIdentifier(t *testing.T) {
	tab := NewTable()
	child, err := tab.NewChild(GlobalID)
	require.NoError(t, err)

	_, err = tab.Use(child, "counter", false)
	assert.ErrorIs(t, err, ErrUndeclared)

	// registers are always valid and live in the global scope
	v, err := tab.Use(child, "x7", false)
	require.NoError(t, err)
	assert.True(t, v.Global)
	_, ok := tab.Global().Lookup("x7")
	assert.True(t, ok)
}

func TestRedeclaration(t *testing.T) {
	tab := NewTable()
	_, err := tab.Declare(GlobalID, "a")
	require.NoError(t, err)

	_, err = tab.Declare(GlobalID, "a")
	assert.ErrorIs(t, err, ErrRedeclared)

	child, _ := tab.NewChild(GlobalID)
	_, err = tab.Declare(child, "a")
	assert.ErrorIs(t, err, ErrRedeclared, "visible from the parent")

	// siblings do not see each other
	left, _ := tab.NewChild(child)
	right, _ := tab.NewChild(child)
	_, err = tab.Declare(left, "b")
	require.NoError(t, err)
	_, err = tab.Declare(right, "b")
	assert.NoError(t, err)

	// register names may be declared repeatedly
	_, err = tab.Declare(left, "x3")
	require.NoError(t, err)
	_, err = tab.Declare(right, "x3")
	assert.NoError(t, err)
}

func TestRecycledVisibilityFollowsCreationOrder(t *testing.T) {
	tab := NewTable()
	before := tab.declareTemp(GlobalID, "x9")
	child, _ := tab.NewChild(GlobalID)
	after := tab.declareTemp(GlobalID, "x10")

	before.Recycled = true
	after.Recycled = true

	_, _, ok := tab.Resolve(GlobalID, "x9")
	assert.False(t, ok, "recycled at the leaf")

	_, v, ok := tab.Resolve(child, "x9")
	require.True(t, ok, "declared before the child was created")
	assert.Same(t, before, v)

	_, _, ok = tab.Resolve(child, "x10")
	assert.False(t, ok, "declared after the child was created")

	after.Recycled = false
	_, _, ok = tab.Resolve(child, "x10")
	assert.True(t, ok, "live records are always visible")
}

func TestResolveByID(t *testing.T) {
	tab := NewTable()
	v, err := tab.Declare(GlobalID, "total")
	require.NoError(t, err)
	v.ID = "x4"

	child, _ := tab.NewChild(GlobalID)
	_, got, ok := tab.Resolve(child, "x4")
	require.True(t, ok)
	assert.Same(t, v, got)
}

func TestNewChildOrder(t *testing.T) {
	tab := NewTable()
	_, _ = tab.Declare(GlobalID, "a")
	c1, _ := tab.NewChild(GlobalID)
	_, _ = tab.Declare(GlobalID, "b")
	c2, _ := tab.NewChild(GlobalID)

	assert.Equal(t, []Child{{ID: c1, Order: 1}, {ID: c2, Order: 3}}, tab.Global().Children)
	assert.Equal(t, 3, tab.Len())

	_, err := tab.NewChild(42)
	assert.ErrorIs(t, err, ErrNoScope)
}

func TestDump(t *testing.T) {
	tab := NewTable()
	_, _ = tab.Declare(GlobalID, "a")
	_, _ = tab.Use(GlobalID, "x2", true)
	child, _ := tab.NewChild(GlobalID)
	_, _ = tab.Declare(child, "b")

	var buf bytes.Buffer
	tab.Dump(&buf)

	expected := `scope 0 (global)
  a [order=0]
  x2 [global assigned order=1]
  scope 1 @2
    b [order=0]
`
	assert.Equal(t, expected, buf.String())
}

func TestStrictResolveUsesCreationOrder(t *testing.T) {
	tab := NewTable()
	child, err := tab.NewChild(GlobalID)
	require.NoError(t, err)
	_, err = tab.Declare(GlobalID, "b")
	require.NoError(t, err)

	_, _, ok := tab.Resolve(child, "b")
	assert.True(t, ok)

	tab.strict = true
	_, _, ok = tab.Resolve(child, "b")
	assert.False(t, ok, "declared after the child was created")

	_, _, ok = tab.Resolve(GlobalID, "b")
	assert.True(t, ok, "the starting scope is always searched")

	// registers are found by ID from anywhere
	_, err = tab.Use(child, "x3", false)
	require.NoError(t, err)
	s, v, ok := tab.Resolve(child, "x3")
	require.True(t, ok)
	assert.Equal(t, GlobalID, s.ID)
	assert.True(t, v.Global)
}
