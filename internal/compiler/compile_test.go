package compiler

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/catalog"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/syntax"
)

func testOptions() Options {
	return Options{
		Catalog: catalog.MustNew(&catalog.Table{Name: "artists", Columns: []catalog.Column{
			{Name: "id", TypeName: "int"},
			{Name: "name", TypeName: "text"},
		}}),
	}
}

func TestCompileSource(t *testing.T) {
	res, err := CompileSource("from db.artists\nselect {name}", testOptions())
	require.NoError(t, err)
	assert.Len(t, res.ID, 64)
	assert.Equal(t, "[artists.name]", res.Frame.String())
	assert.Equal(t, "sql.generic", res.Dialect.Name)
	assert.True(t, res.Portability.IsPortable)

	doc := res.Doc()
	assert.Equal(t, res.ID, doc["id"])
	assert.Equal(t, []any{"artists.name"}, doc["frame"])
}

func TestCompileIsDeterministic(t *testing.T) {
	src := "from a = db.artists\nderive {n = id + 1}\nsort {-n}\ntake 5"
	first, err := CompileSource(src, testOptions())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := CompileSource(src, testOptions())
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	}
}

func TestTargetSelection(t *testing.T) {
	opts := testOptions()
	opts.Target = "sql.mysql"

	res, err := CompileSource("from db.artists", opts)
	require.NoError(t, err)
	assert.Equal(t, "sql.mysql", res.Dialect.Name)

	// the query header wins over the option
	res, err = CompileSource("prql target:sql.duckdb\n\nfrom db.artists", opts)
	require.NoError(t, err)
	assert.Equal(t, "sql.duckdb", res.Dialect.Name)
}

func TestUnknownTarget(t *testing.T) {
	_, err := CompileSource("prql target:sql.nope\n\nfrom db.artists", testOptions())
	diags := Diagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.InvalidArgument, diags[0].Kind)
	assert.Equal(t, 1, diags[0].Span.Start.Line)
}

func TestCompileDiagnostics(t *testing.T) {
	_, err := CompileSource("from db.film\ngroup", testOptions())
	require.Error(t, err)
	diags := Diagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.TypeMismatch, diags[0].Kind)
}

func TestSyntaxErrorDiagnostics(t *testing.T) {
	_, err := CompileSource("from db.x\nselect f\"{a\"", testOptions())
	require.Error(t, err)
	var se *syntax.Error
	require.ErrorAs(t, err, &se)

	diags := Diagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.InterpolationSyntaxError, diags[0].Kind)
	assert.Equal(t, "unexpected end of input while parsing interpolated string", diags[0].Message)

	_, err = CompileSource("from db.x;", testOptions())
	diags = Diagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.InvalidArgument, diags[0].Kind)
}

func TestCompileLogs(t *testing.T) {
	var buf bytes.Buffer
	opts := testOptions()
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := CompileSource("from db.artists", opts)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=compiled")
}

func TestStrictCatalogOption(t *testing.T) {
	opts := testOptions()
	opts.StrictCatalog = true
	_, err := CompileSource("from db.tracks", opts)
	diags := Diagnostics(err)
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.UnknownName, diags[0].Kind)
}
