package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const letAndMainYAML = `
stmts:
  - kind: let
    name: foo
    span: "2:5-2:18"
    value: {kind: literal, type: int, value: 123, span: "2:15-2:18"}
  - kind: main
    span: "3:5-4:25"
    value:
      kind: pipeline
      exprs:
        - kind: call
          func: {kind: ident, name: from}
          args:
            - {kind: ident, path: [db, t], alias: src}
        - kind: call
          func: {kind: ident, name: select}
          args:
            - kind: binary
              op: "&&"
              left: {kind: literal, type: bool, value: "true"}
              right: {kind: ident, name: foo, span: "4:21-4:24"}
`

func TestDecodeYAML(t *testing.T) {
	mod, err := DecodeYAML([]byte(letAndMainYAML))
	require.NoError(t, err)
	require.Len(t, mod.Stmts, 2)

	let, ok := mod.Stmts[0].(*Let)
	require.True(t, ok)
	assert.Equal(t, "foo", let.Name)
	lit, ok := let.Value.(*Literal)
	require.True(t, ok)
	assert.Equal(t, LitInt, lit.Kind)
	assert.Equal(t, "123", lit.Value)
	assert.Equal(t, "2:15-2:18", lit.Span().String())

	main, ok := mod.Stmts[1].(*Main)
	require.True(t, ok)
	pipe, ok := main.Value.(*Pipeline)
	require.True(t, ok)
	require.Len(t, pipe.Exprs, 2)

	from := pipe.Exprs[0].(*Call)
	src := from.Args[0].(*Ident)
	assert.Equal(t, "db.t", src.Name())
	assert.Equal(t, "src", src.AliasName())

	sel := pipe.Exprs[1].(*Call)
	bin := sel.Args[0].(*Binary)
	assert.Equal(t, "&&", bin.Op)
	assert.Equal(t, "4:21-4:24", bin.Right.Span().String())
}

func TestDecodeJSON(t *testing.T) {
	doc := `{"stmts":[{"kind":"main","value":{"kind":"fstring","items":[
		{"text":"a "},
		{"hole":true,"span":{"start":{"offset":13,"line":1,"column":14},"end":{"offset":14,"line":1,"column":15}}},
		{"expr":{"kind":"ident","name":"x"}}
	]}}]}`
	mod, err := DecodeJSON([]byte(doc))
	require.NoError(t, err)

	fs := mod.Stmts[0].(*Main).Value.(*FString)
	require.Len(t, fs.Items, 3)
	assert.False(t, fs.Items[0].Hole)
	assert.True(t, fs.Items[1].Hole)
	assert.Nil(t, fs.Items[1].Expr)
	assert.Equal(t, 13, fs.Items[1].Loc.Start.Offset)
	assert.True(t, fs.Items[2].Hole)
	assert.NotNil(t, fs.Items[2].Expr)
}

func TestDecodeNormalisesIdentifiers(t *testing.T) {
	// "é" written as e + combining acute accent
	doc := "{\"stmts\":[{\"kind\":\"let\",\"name\":\"cafe\u0301\",\"value\":{\"kind\":\"literal\",\"type\":\"int\",\"value\":\"1\"}}]}"
	mod, err := DecodeJSON([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9", mod.Stmts[0].(*Let).Name)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"root not object", `[]`, "document root"},
		{"unknown stmt", `{"stmts":[{"kind":"nope"}]}`, `unknown statement kind "nope"`},
		{"unknown expr", `{"stmts":[{"kind":"main","value":{"kind":"zzz"}}]}`, `stmts[0].value: unknown expression kind "zzz"`},
		{"bad op", `{"stmts":[{"kind":"main","value":{"kind":"binary","op":"<>","left":{"kind":"param","name":"1"},"right":{"kind":"param","name":"2"}}}]}`, "unknown binary operator"},
		{"let without value", `{"stmts":[{"kind":"let","name":"x"}]}`, `missing "value"`},
		{"empty pipeline", `{"stmts":[{"kind":"main","value":{"kind":"pipeline","exprs":[]}}]}`, "at least one step"},
		{"bad span", `{"stmts":[{"kind":"main","span":"x","value":{"kind":"param","name":"1"}}]}`, "expected L:C-L:C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
