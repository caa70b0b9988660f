package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveText(t *testing.T) {
	out, _, err := execute(t, "--config", projectConfig, "resolve", project("queries", "names.prql"))
	require.NoError(t, err)

	assert.Contains(t, out, "target: sql.generic")
	assert.Contains(t, out, "frame: [artists.name]")
	assert.Contains(t, out, "warnings: none")
	assert.NotContains(t, out, `"main"`)
}

func TestResolveIR(t *testing.T) {
	out, _, err := execute(t, "--config", projectConfig, "resolve", "--ir", project("queries", "names.prql"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	last := lines[len(lines)-1]
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(last), &doc))
	assert.Contains(t, doc, "main")
}

func TestResolveJSON(t *testing.T) {
	out, _, err := execute(t, "--config", projectConfig, "--format", "json", "resolve", project("queries", "names.prql"))
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "sql.generic", data["target"])
	assert.Equal(t, []any{"artists.name"}, data["frame"])
	assert.Len(t, data["id"], 64)
}

func TestResolveTargetOverride(t *testing.T) {
	out, _, err := execute(t, "--config", projectConfig, "resolve", "-t", "sql.sqlite", project("extra", "full_join.prql"))
	require.NoError(t, err)

	assert.Contains(t, out, "target: sql.sqlite")
	assert.Contains(t, out, "  - sql.sqlite does not support full joins")
}

func TestResolveDiagnostics(t *testing.T) {
	path := project("queries", "broken.prql")
	out, _, err := execute(t, "--config", projectConfig, "resolve", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, path+":")
	assert.Contains(t, out, "error[E203] TypeMismatch")
	assert.Contains(t, out, "help: Have you forgotten an argument to function std.group?")
}

func TestResolveDiagnosticsJSON(t *testing.T) {
	out, _, err := execute(t, "--config", projectConfig, "--format", "json", "resolve", project("queries", "broken.prql"))
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCompile, resp.Error.Code)

	details := resp.Error.Details.([]any)
	require.Len(t, details, 1)
	assert.Equal(t, "E203", details[0].(map[string]any)["code"])
}

func TestResolveAST(t *testing.T) {
	out, _, err := execute(t, "--config", projectConfig, "resolve", project("ast", "artists.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "frame: [artists.id, artists.name]")
}

func TestResolveStdin(t *testing.T) {
	var stdout strings.Builder
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetIn(strings.NewReader("from db.artists\r\nselect {id}\r\n"))
	cmd.SetArgs([]string{"--config", projectConfig, "resolve", "-"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "frame: [artists.id]")
}

func TestResolveMissingFile(t *testing.T) {
	out, _, err := execute(t, "--config", projectConfig, "resolve", "nope.prql")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestResolveBadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "pql.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("target: sql.oracle\n"), 0o644))

	out, _, err := execute(t, "--config", cfg, "resolve", project("queries", "names.prql"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeConfig+"]")
	assert.Contains(t, out, `unknown target "sql.oracle"`)
}

func TestResolveStrictFlag(t *testing.T) {
	out, _, err := execute(t, "--config", projectConfig, "resolve", "--strict", project("queries", "broken.prql"))
	require.Error(t, err)
	assert.Contains(t, out, "UnknownName")
	assert.Contains(t, out, "db.film")
}
