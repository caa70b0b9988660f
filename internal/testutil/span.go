package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/ast"
)

// FindSpan is the span of the first occurrence of text in src.
func FindSpan(src, text string) (ast.Span, bool) {
	i := strings.Index(src, text)
	if i < 0 || text == "" {
		return ast.Span{}, false
	}
	return ast.Span{Start: Position(src, i), End: Position(src, i+len(text))}, true
}

// SpanOf is FindSpan for tests: it fails t when text is not in src.
func SpanOf(t testing.TB, src, text string) ast.Span {
	t.Helper()
	span, ok := FindSpan(src, text)
	require.True(t, ok, "%q not in %q", text, src)
	return span
}

// SpanOfLast is the span of the last occurrence of text in src.
func SpanOfLast(t testing.TB, src, text string) ast.Span {
	t.Helper()
	i := strings.LastIndex(src, text)
	require.GreaterOrEqual(t, i, 0, "%q not in %q", text, src)
	return ast.Span{Start: Position(src, i), End: Position(src, i+len(text))}
}

// Position converts a byte offset of src into a 1-based line and column.
// Columns count characters, not bytes.
func Position(src string, off int) ast.Position {
	line, col := 1, 1
	for _, r := range src[:off] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return ast.Position{Offset: off, Line: line, Column: col}
}
