package std

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/types"
)

func TestDefaultLibrary(t *testing.T) {
	lib, err := Default()
	require.NoError(t, err)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, lib, again)

	for _, name := range []string{"from", "select", "filter", "derive", "aggregate", "sort", "take", "join", "group", "window", "append"} {
		fn, ok := lib.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, KindTransform, fn.Kind, name)
		assert.True(t, fn.Return.IsRelation(), name)
	}
}

func TestGroupSignature(t *testing.T) {
	fn, ok := MustDefault().Lookup("group")
	require.True(t, ok)
	assert.Equal(t, "std.group", fn.FullName())

	pos := fn.Positional()
	require.Len(t, pos, 3)
	assert.Equal(t, "by", pos[0].Name)
	assert.Equal(t, "pipeline", pos[1].Name)
	assert.Equal(t, "rel", pos[2].Name)
	assert.Equal(t, "func anytype transform relation -> relation", fn.Type().String())
}

func TestJoinNamedSide(t *testing.T) {
	fn, _ := MustDefault().Lookup("join")
	side, ok := fn.NamedParam("side")
	require.True(t, ok)
	assert.Equal(t, []string{"inner", "left", "right", "full"}, side.OneOf)
	assert.Equal(t, "inner", side.Default)

	_, ok = fn.NamedParam("with")
	assert.False(t, ok)
	assert.Len(t, fn.Positional(), 3)
}

func TestOperatorTypes(t *testing.T) {
	lib := MustDefault()

	and, ok := lib.Lookup("and")
	require.True(t, ok)
	assert.Equal(t, KindOperator, and.Kind)
	assert.Equal(t, "right", and.Params[1].Name)
	assert.Same(t, types.Bool, and.Params[1].Type)

	add, _ := lib.Lookup("add")
	assert.Equal(t, "left", add.SameAs)
	assert.True(t, add.Return.IsUnknown())

	lag, _ := lib.Lookup("lag")
	assert.True(t, lag.Window)
	assert.Equal(t, "func int anytype -> anytype", lag.Type().String())

	count, _ := lib.Lookup("count")
	assert.True(t, count.Aggregate)
	assert.Same(t, types.Int, count.Return)
}

func TestNamesSorted(t *testing.T) {
	names := MustDefault().Names()
	assert.Contains(t, names, "in")
	assert.IsIncreasing(t, names)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name: "minimal",
			src: `
#Function: {kind: string, params: [...{name: string, type: string | *"anytype", named: bool | *false}], return: string | *"anytype"}
functions: [string]: #Function
functions: double: {kind: "function", params: [{name: "x", type: "int"}], return: "int"}
`,
		},
		{
			name:    "missing functions",
			src:     `x: 1`,
			wantErr: "functions is required",
		},
		{
			name:    "bad type",
			src:     `functions: broken: {kind: "function", params: [{name: "x", type: "integer"}], return: "int"}`,
			wantErr: `unknown type name "integer"`,
		},
		{
			name:    "duplicate param",
			src:     `functions: d: {kind: "function", params: [{name: "x"}, {name: "x"}]}`,
			wantErr: `duplicate param "x"`,
		},
		{
			name:    "same_as unknown",
			src:     `functions: d: {kind: "function", params: [{name: "x"}], same_as: "y"}`,
			wantErr: `same_as names unknown param "y"`,
		},
		{
			name:    "non-concrete",
			src:     `functions: d: {kind: string, params: []}`,
			wantErr: "cue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib, err := Parse([]byte(tt.src))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			fn, ok := lib.Lookup("double")
			require.True(t, ok)
			assert.Equal(t, "func int -> int", fn.Type().String())
		})
	}
}
