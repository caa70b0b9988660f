package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/ast"
	"github.com/roach88/pql/internal/frame"
	"github.com/roach88/pql/internal/types"
)

// from db.t | filter a > 1 | select {a}
func sampleModule(span ast.Span) *Module {
	table := &Expr{ID: 1, Kind: TableRef{Name: "db.t"}, Type: types.Relation, Span: span,
		Lineage: frame.Wildcard(frame.Input{Name: "t", Table: "db.t", ID: 1})}
	a := &Expr{ID: 2, Kind: ColumnRef{Input: "t", Name: "a", Target: 1, Inferred: true}, Type: types.Unknown, Span: span}
	one := &Expr{ID: 3, Kind: Literal{Value: Int(1)}, Type: types.Int, Span: span}
	cond := &Expr{ID: 4, Kind: Call{Func: "std.gt", Args: []*Expr{a, one}}, Type: types.Bool, Span: span}
	filter := &Expr{ID: 5, Kind: Transform{Kind: TransformFilter, Input: table, Args: []*Expr{cond}},
		Type: types.Relation, Span: span, Lineage: table.Lineage}
	a2 := &Expr{ID: 6, Kind: ColumnRef{Input: "t", Name: "a", Target: 1, Inferred: true}, Type: types.Unknown, Span: span}
	sel := &Expr{ID: 7, Kind: Transform{Kind: TransformSelect, Input: filter, Args: []*Expr{a2}},
		Type: types.Relation, Span: span,
		Lineage: table.Lineage.Project([]frame.Column{{Name: "a", Input: "t", Target: 1}})}
	return &Module{Main: sel}
}

func TestWalkOrder(t *testing.T) {
	m := sampleModule(ast.Span{})
	var ids []int
	Walk(m.Main, func(e *Expr) bool {
		ids = append(ids, e.ID)
		return true
	})
	assert.Equal(t, []int{7, 5, 1, 4, 2, 3, 6}, ids)

	var pruned []int
	Walk(m.Main, func(e *Expr) bool {
		pruned = append(pruned, e.ID)
		_, isFilter := e.Kind.(Transform)
		return !isFilter || e.ID != 5
	})
	assert.Equal(t, []int{7, 5, 6}, pruned)
}

func TestTransformByName(t *testing.T) {
	k, ok := TransformByName("group")
	require.True(t, ok)
	assert.Equal(t, TransformGroup, k)
	assert.Equal(t, "group", k.String())

	_, ok = TransformByName("lower")
	assert.False(t, ok)
}

func TestFingerprintIgnoresSpans(t *testing.T) {
	a, err := Fingerprint(sampleModule(ast.Span{}))
	require.NoError(t, err)
	moved := ast.Span{Start: ast.Position{Line: 4, Column: 2}, End: ast.Position{Line: 4, Column: 9}}
	b, err := Fingerprint(sampleModule(moved))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	other := sampleModule(ast.Span{})
	other.Target = "sql.postgres"
	c, err := Fingerprint(other)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestDocShape(t *testing.T) {
	doc := sampleModule(ast.Span{}).Main.Doc()
	assert.Equal(t, "transform", doc["kind"])
	assert.Equal(t, "select", doc["transform"])
	assert.Equal(t, []any{"t.a"}, doc["lineage"])

	input := doc["input"].(map[string]any)
	assert.Equal(t, "filter", input["transform"])
}
