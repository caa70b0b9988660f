package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpanString(t *testing.T) {
	s := Span{Start: Position{Line: 3, Column: 5}, End: Position{Line: 3, Column: 10}}
	assert.Equal(t, "3:5-3:10", s.String())
	assert.Equal(t, "-", Span{}.String())
}

func TestParseSpan(t *testing.T) {
	s, err := ParseSpan("2:15-2:18")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Start.Line)
	assert.Equal(t, 15, s.Start.Column)
	assert.Equal(t, 18, s.End.Column)

	_, err = ParseSpan("2:15")
	assert.Error(t, err)
	_, err = ParseSpan("a:1-2:2")
	assert.Error(t, err)
}

func TestSpanJoin(t *testing.T) {
	a := Span{Start: Position{Line: 1, Column: 1}, End: Position{Line: 1, Column: 4}}
	b := Span{Start: Position{Line: 2, Column: 3}, End: Position{Line: 2, Column: 9}}

	joined := a.Join(b)
	assert.Equal(t, "1:1-2:9", joined.String())
	assert.Equal(t, joined, b.Join(a))
	assert.Equal(t, a, a.Join(Span{}))
	assert.Equal(t, a, Span{}.Join(a))

	assert.True(t, joined.Contains(a))
	assert.True(t, joined.Contains(b))
	assert.False(t, a.Contains(b))
}
