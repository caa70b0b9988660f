package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenarioResolvesFiles(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/group_aggregate.yaml")
	require.NoError(t, err)

	assert.Equal(t, "from db.employees\ngroup {country} (aggregate {n = count id})\n", s.Query)
	assert.Equal(t, []string{filepath.Join("testdata", "catalogs", "hr.yaml")}, s.CatalogFiles)
	require.NotNil(t, s.Expect.Warnings)
	assert.Empty(t, *s.Expect.Warnings)
	assert.True(t, s.WantsGolden())
}

func TestLoadScenarioGoldenOptOut(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/nested_groups_internal_error.yaml")
	require.NoError(t, err)
	assert.False(t, s.WantsGolden())
}

func TestLoadScenarioRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "name: a\ndescription: b\nquery: x\nexpected: {}\n", "field expected not found"},
		{"no name", "description: b\nquery: x\nexpect: {columns: [a]}\n", "name is required"},
		{"no description", "name: a\nquery: x\nexpect: {columns: [a]}\n", "description is required"},
		{"no query", "name: a\ndescription: b\nexpect: {columns: [a]}\n", "query or query_file is required"},
		{"no expectation", "name: a\ndescription: b\nquery: x\nexpect: {}\n", "one of diagnostics or columns is required"},
		{
			"both expectations",
			"name: a\ndescription: b\nquery: x\nexpect: {columns: [a], diagnostics: [{kind: UnknownName}]}\n",
			"mutually exclusive",
		},
		{
			"warnings on failure",
			"name: a\ndescription: b\nquery: x\nexpect: {warnings: [], diagnostics: [{kind: UnknownName}]}\n",
			"only apply to successful compilations",
		},
		{"missing kind", "name: a\ndescription: b\nquery: x\nexpect: {diagnostics: [{message: m}]}\n", "kind is required"},
		{
			"at not in query",
			"name: a\ndescription: b\nquery: x\nexpect: {diagnostics: [{kind: UnknownName, at: y}]}\n",
			`"y" does not occur in the query`,
		},
		{
			"bad span",
			"name: a\ndescription: b\nquery: x\nexpect: {diagnostics: [{kind: UnknownName, span: nope}]}\n",
			"expected L:C-L:C",
		},
		{
			"missing query file",
			"name: a\ndescription: b\nquery_file: missing.prql\nexpect: {columns: [a]}\n",
			"failed to read query file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), "s.yaml", tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDirRejectsDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	body := "name: same\ndescription: d\nquery: from db.a\nexpect: {columns: [a.x]}\n"
	writeScenario(t, dir, "a.yaml", body)
	writeScenario(t, dir, "b.yaml", body)

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario "same" already defined`)
}
