package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "sql.generic", cfg.Target)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
target: postgres
catalog: [a.yaml, /abs/b.db]
strict_catalog: true
issue_tracker: https://example.com/issues
workers: 3
store: log.db
`))
	require.NoError(t, err)
	assert.Equal(t, Config{
		Target:        "postgres",
		Catalog:       []string{"a.yaml", "/abs/b.db"},
		StrictCatalog: true,
		IssueTracker:  "https://example.com/issues",
		Workers:       3,
		Store:         "log.db",
	}, cfg)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "targets: sql.generic", "field targets not found"},
		{"unknown target", "target: sql.oracle", `unknown target "sql.oracle"`},
		{"negative workers", "workers: -1", "workers must not be negative"},
		{"wrong type", "workers: many", "cannot unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, "catalog: [schema/a.yaml, /abs/b.yaml]\nstore: .pql/log.db\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "schema/a.yaml"), "/abs/b.yaml"}, cfg.Catalog)
	assert.Equal(t, filepath.Join(dir, ".pql/log.db"), cfg.Store)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "target: sql.duckdb\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, ok := Find(nested)
	require.True(t, ok)
	want, err := filepath.EvalSymlinks(filepath.Join(root, FileName))
	require.NoError(t, err)
	gotReal, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, want, gotReal)
}

func TestCompileOptions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schema.yaml"), "tables:\n  artists:\n    - {name: id, type: int}\n")
	writeFile(t, filepath.Join(dir, FileName), "target: sql.sqlite\ncatalog: [schema.yaml]\nstrict_catalog: true\n")

	cfg, err := Load(filepath.Join(dir, FileName))
	require.NoError(t, err)
	opts, err := cfg.CompileOptions(nil)
	require.NoError(t, err)

	assert.Equal(t, "sql.sqlite", opts.Target)
	assert.True(t, opts.StrictCatalog)
	require.NotNil(t, opts.Std)
	_, ok := opts.Catalog.Lookup("artists")
	assert.True(t, ok)
}

func TestCompileOptionsBadCatalog(t *testing.T) {
	cfg := Default()
	cfg.Catalog = []string{filepath.Join(t.TempDir(), "missing.yaml")}
	_, err := cfg.CompileOptions(nil)
	assert.ErrorContains(t, err, "load catalog")
}
