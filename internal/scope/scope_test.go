package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moduleScope() *Scope {
	root := New(nil, "module")

	db := NewModule("db")
	db.Members.Declare("artists", &Decl{Kind: DeclTable})
	root.Declare("db", db)

	std := NewModule("std")
	std.Members.Declare("count", &Decl{Kind: DeclBuiltin})
	root.Declare("std", std)

	root.Declare("foo", &Decl{Kind: DeclLet, Value: 123})
	return root
}

func TestDeclareAndLookup(t *testing.T) {
	root := moduleScope()

	d, where, ok := root.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, DeclLet, d.Kind)
	assert.Equal(t, "foo", d.Name)
	assert.Same(t, root, where)

	_, _, ok = root.Lookup("bar")
	assert.False(t, ok)
}

func TestShadowing(t *testing.T) {
	root := moduleScope()
	inner := New(root, "lambda f")
	inner.Declare("foo", &Decl{Kind: DeclParam})

	d, where, ok := inner.Lookup("foo")
	require.True(t, ok)
	assert.Equal(t, DeclParam, d.Kind)
	assert.Same(t, inner, where)

	// the outer binding is untouched
	outer, _, _ := root.Lookup("foo")
	assert.Equal(t, DeclLet, outer.Kind)

	// redeclaring in the same scope shadows without error
	root.Declare("foo", &Decl{Kind: DeclLet, Value: 456})
	again, _, _ := root.Lookup("foo")
	assert.Equal(t, 456, again.Value)
}

func TestResolveQualifiedPath(t *testing.T) {
	root := moduleScope()
	inner := New(root, "pipeline")

	res, ok := inner.Resolve([]string{"db", "artists"})
	require.True(t, ok)
	assert.Equal(t, DeclTable, res.Decl.Kind)
	assert.Equal(t, "db", res.Module)
	assert.Empty(t, res.Rest)
	assert.Equal(t, "db.artists", res.Decl.FullName(res.Module))

	res, ok = inner.Resolve([]string{"std", "count"})
	require.True(t, ok)
	assert.Equal(t, DeclBuiltin, res.Decl.Kind)
}

func TestResolveMissingMember(t *testing.T) {
	root := moduleScope()

	res, ok := root.Resolve([]string{"db", "albums"})
	assert.False(t, ok)
	assert.Equal(t, "db", res.Module)
	assert.Equal(t, []string{"albums"}, res.Rest)

	_, ok = root.Resolve([]string{"nope"})
	assert.False(t, ok)

	_, ok = root.Resolve(nil)
	assert.False(t, ok)
}

func TestResolveRestThroughValue(t *testing.T) {
	root := moduleScope()

	res, ok := root.Resolve([]string{"foo", "a", "b"})
	require.True(t, ok)
	assert.Equal(t, "foo", res.Decl.Name)
	assert.Equal(t, []string{"a", "b"}, res.Rest)
}

func TestNames(t *testing.T) {
	root := moduleScope()
	inner := New(root, "lambda")
	inner.Declare("x", &Decl{Kind: DeclParam})
	inner.Declare("foo", &Decl{Kind: DeclParam})

	assert.Equal(t, []string{"foo", "x", "db", "std"}, inner.Names())
}
