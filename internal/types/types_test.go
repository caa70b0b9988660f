package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringRendering(t *testing.T) {
	tests := []struct {
		name string
		typ  *Type
		want string
	}{
		{"primitive", Int, "int"},
		{"relation", Relation, "relation"},
		{"transform top level", Transform, "func relation -> relation"},
		{"partial group", Func(Transform, Relation, Relation), "func transform relation -> relation"},
		{"array of tuple", Array(AnyTuple), "[tuple]"},
		{"tuple", Tuple(Field{Name: "a", Type: Int}, Field{Type: Text}), "{a = int, text}"},
		{"open tuple", OpenTuple(Field{Name: "a", Type: Int}), "{a = int, ..}"},
		{"union", Union(Int, Float), "int || float"},
		{"unknown", Unknown, "anytype"},
		{"nil", nil, "anytype"},
		{"scalar", Scalar, "scalar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestCompatible(t *testing.T) {
	ab := Tuple(Field{Name: "a", Type: Int}, Field{Name: "b", Type: Text})
	ba := Tuple(Field{Name: "b", Type: Text}, Field{Name: "a", Type: Int})

	tests := []struct {
		name     string
		expected *Type
		actual   *Type
		want     bool
	}{
		{"same primitive", Int, Int, true},
		{"different primitive", Bool, Int, false},
		{"null fits primitive", Int, Null, true},
		{"unknown expected", Unknown, Text, true},
		{"unknown actual", Text, Unknown, true},
		{"union expected", Union(Int, Float), Float, true},
		{"union expected miss", Union(Int, Float), Text, false},
		{"union actual must fit entirely", Int, Union(Int, Text), false},
		{"relation vs array of tuple", Relation, Array(AnyTuple), true},
		{"array of tuple vs relation", Array(AnyTuple), Relation, true},
		{"relation vs concrete rows", Relation, Array(ab), true},
		{"concrete rows vs relation", Array(ab), Relation, true},
		{"relation vs int array", Relation, Array(Int), false},
		{"relation vs int", Relation, Int, false},
		{"tuple by name", ab, ba, true},
		{"rows positional", Array(ab), Array(ba), false},
		{"tuple missing field", ab, Tuple(Field{Name: "a", Type: Int}), false},
		{"open actual covers missing", ab, OpenTuple(Field{Name: "a", Type: Int}), true},
		{"field type mismatch", ab, Tuple(Field{Name: "a", Type: Text}, Field{Name: "b", Type: Text}), false},
		{"any tuple", AnyTuple, ab, true},
		{"function same", Transform, Func(Relation, Relation), true},
		{"function arity", Transform, Func(Relation, Relation, Relation), false},
		{"function covariant return", Func(Int, Scalar), Func(Int, Int), true},
		{"function covariant return miss", Func(Int, Int), Func(Int, Scalar), false},
		{"function contravariant param", Func(Int, Bool), Func(Scalar, Bool), true},
		{"function contravariant param miss", Func(Scalar, Bool), Func(Int, Bool), false},
		{"function vs relation", Relation, Func(Transform, Relation, Relation), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compatible(tt.expected, tt.actual))
		})
	}
}

func TestUnify(t *testing.T) {
	got, err := Unify(Unknown, Int)
	require.NoError(t, err)
	assert.Equal(t, Int, got)

	got, err = Unify(Text, Unknown)
	require.NoError(t, err)
	assert.Equal(t, Text, got)

	got, err = Unify(Int, Union(Int, Float))
	require.NoError(t, err)
	assert.Equal(t, "int || float", got.String())

	_, err = Unify(Bool, Int)
	require.Error(t, err)
	var mm *MismatchError
	require.ErrorAs(t, err, &mm)
	assert.Equal(t, "expected type `bool`, but found type `int`", err.Error())
}

func TestPartialApplicationTypesAreEqual(t *testing.T) {
	// Two partial applications with the same bound argument share a type.
	a := Func(Transform, Relation, Relation)
	b := Func(Transform, Relation, Relation)
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, Transform))
}

func TestMentionsRelation(t *testing.T) {
	assert.True(t, MentionsRelation(Relation))
	assert.True(t, MentionsRelation(Func(Transform, Relation, Relation)))
	assert.True(t, MentionsRelation(Union(Int, Relation)))
	assert.False(t, MentionsRelation(Int))
	assert.False(t, MentionsRelation(Array(AnyTuple)))
}

func TestParse(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"int", "int"},
		{"int || float", "int || float"},
		{"[int]", "[int]"},
		{"relation", "relation"},
		{"func transform relation -> relation", "func transform relation -> relation"},
		{"{a = int, text}", "{a = int, text}"},
		{"{a = int, ..}", "{a = int, ..}"},
		{"{}", "tuple"},
		{"(int || text)", "int || text"},
		{"[func int -> bool]", "[func int -> bool]"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "integer", "[int", "func int", "int ||", "{a = int"} {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			assert.Error(t, err)
		})
	}
}
