package diagnostic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/ast"
)

func span(l1, c1, l2, c2 int) ast.Span {
	return ast.Span{Start: ast.Position{Line: l1, Column: c1}, End: ast.Position{Line: l2, Column: c2}}
}

func TestKindCodes(t *testing.T) {
	assert.Equal(t, "E201", UnknownName.Code())
	assert.Equal(t, "E299", InternalCompilerError.Code())
	assert.Equal(t, "E200", Kind("Bogus").Code())

	kinds := Kinds()
	require.Len(t, kinds, 10)
	assert.Equal(t, UnknownName, kinds[0])
	assert.Equal(t, InternalCompilerError, kinds[len(kinds)-1])
}

func TestBuilder(t *testing.T) {
	d := New(TypeMismatch, span(2, 15, 2, 18), "function %s, param `%s` expected type `%s`, but found type `%s`", "std.and", "right", "bool", "int").
		WithLabel(span(4, 21, 4, 24), "`foo` is used here").
		WithHelp("check the type of `%s`", "foo").
		WithNote("a note")

	assert.Equal(t, "E203", d.Code)
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, "function std.and, param `right` expected type `bool`, but found type `int`", d.Message)
	require.Len(t, d.Secondary, 1)
	assert.Equal(t, "check the type of `foo`", d.Help)
	assert.Equal(t, "E203 TypeMismatch at 2:15-2:18: function std.and, param `right` expected type `bool`, but found type `int`", d.Error())
}

func TestInternal(t *testing.T) {
	d := Internal(span(2, 5, 13, 6), "https://github.com/PRQL/prql/issues/3870")
	assert.Equal(t, InternalCompilerError, d.Kind)
	assert.Equal(t, "internal compiler error; tracked at https://github.com/PRQL/prql/issues/3870", d.Message)
}

func TestFormat(t *testing.T) {
	d := New(UnknownName, span(5, 14, 5, 22), "Unknown name `%s`", "location").
		WithLabel(span(5, 12, 5, 13), "while applying `f`").
		WithHelp("did you mean `locale`?")

	var b strings.Builder
	d.Format(&b)
	want := "error[E201] UnknownName: Unknown name `location`\n" +
		"  --> 5:14-5:22\n" +
		"  --> 5:12-5:13: while applying `f`\n" +
		"  help: did you mean `locale`?\n"
	assert.Equal(t, want, b.String())
}

func TestJSONShape(t *testing.T) {
	d := New(NotAPipeline, span(3, 5, 3, 15), "expected a pipeline that resolves to a table, but found `internal std.sub`").
		WithHelp("are you missing a `from` statement?")

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "NotAPipeline", raw["kind"])
	assert.Equal(t, "E205", raw["code"])
	assert.Equal(t, "error", raw["severity"])
	assert.Equal(t, "are you missing a `from` statement?", raw["help"])
	assert.NotContains(t, raw, "note")
	assert.NotContains(t, raw, "secondary")

	var back Diagnostic
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *d, back)
}

func TestListError(t *testing.T) {
	var l List
	assert.Equal(t, "no diagnostics", l.Error())

	l.Add(New(UnknownName, span(1, 1, 1, 2), "Unknown name `a`"))
	assert.Equal(t, "E201 UnknownName at 1:1-1:2: Unknown name `a`", l.Error())

	l.Add(New(UnknownName, span(1, 5, 1, 6), "Unknown name `b`"))
	assert.Contains(t, l.Error(), "(and 1 more)")
	assert.True(t, l.HasErrors())
	assert.Equal(t, []Kind{UnknownName, UnknownName}, l.Kinds())
}

func TestListSorted(t *testing.T) {
	l := List{
		New(UnknownName, span(3, 1, 3, 2), "c"),
		New(NotAPipeline, ast.Span{}, "no span"),
		New(UnknownName, span(1, 4, 1, 5), "a"),
		New(UnknownName, span(1, 9, 1, 10), "b"),
	}
	sorted := l.Sorted()
	var msgs []string
	for _, d := range sorted {
		msgs = append(msgs, d.Message)
	}
	assert.Equal(t, []string{"a", "b", "c", "no span"}, msgs)
	assert.Equal(t, "c", l[0].Message, "Sorted must not reorder the receiver")
}

func TestFrom(t *testing.T) {
	d := New(UnknownName, span(1, 1, 1, 2), "x")

	got, ok := From(d)
	require.True(t, ok)
	assert.Len(t, got, 1)

	got, ok = From(fmt.Errorf("wrapped: %w", List{d, d}))
	require.True(t, ok)
	assert.Len(t, got, 2)

	_, ok = From(errors.New("plain"))
	assert.False(t, ok)
	_, ok = From(nil)
	assert.False(t, ok)
}
