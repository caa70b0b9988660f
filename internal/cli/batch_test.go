package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/engine"
	"github.com/roach88/pql/internal/store"
)

// runBatchDirect runs check (or batch when db is set) over paths with fixed
// session ids.
func runBatchDirect(t *testing.T, format, db string, paths ...string) (string, error) {
	t.Helper()
	opts := &BatchOptions{
		RootOptions: &RootOptions{Format: format, Config: projectConfig},
		Database:    db,
		Sessions:    engine.NewFixedGenerator("s-1", "s-2"),
	}
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	err := runBatch(opts, paths, cmd, db != "")
	return buf.String(), err
}

func TestCheckDirectory(t *testing.T) {
	out, err := runBatchDirect(t, "text", "", project("queries"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✓ "+project("queries", "names.prql")+" [artists.name]")
	assert.Contains(t, out, "✗ "+project("queries", "broken.prql")+":")
	assert.Contains(t, out, "E203")
	assert.Contains(t, out, "Summary: 1 passed, 1 failed, 2 total")
	assert.NotContains(t, out, "logged to")
}

func TestCheckJSON(t *testing.T) {
	out, err := runBatchDirect(t, "json", "", project("queries", "names.prql"), project("extra"))
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   BatchResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "s-1", resp.Data.Session)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 0, resp.Data.Failed)

	jobs := resp.Data.Jobs
	require.Len(t, jobs, 2)
	assert.Equal(t, project("queries", "names.prql"), jobs[0].Job)
	assert.Equal(t, []string{"artists.name"}, jobs[0].Frame)
	assert.Equal(t, "sql.generic", jobs[1].Target)
	assert.Empty(t, jobs[1].Warnings)
	assert.Less(t, jobs[0].Seq, jobs[1].Seq)
}

func TestBatchRequiresStore(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	opts := &BatchOptions{RootOptions: &RootOptions{Format: "text", Config: projectConfig}}

	err := runBatch(opts, []string{project("queries")}, cmd, true)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "no compile log")
}

func TestBatchLogsAndLogReadsBack(t *testing.T) {
	db := filepath.Join(t.TempDir(), "log.db")

	out, err := runBatchDirect(t, "text", db, project("queries"))
	require.Error(t, err)
	assert.Contains(t, out, "Session s-1 logged to "+db)

	st, err := store.Open(db)
	require.NoError(t, err)
	sess, err := st.LatestSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "s-1", sess.ID)
	assert.Equal(t, 2, sess.Jobs)
	require.NoError(t, st.Close())

	logOut, _, err := execute(t, "--config", projectConfig, "log", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, logOut, "Session s-1")
	assert.Contains(t, logOut, "failed "+project("queries", "broken.prql")+" E203")
	assert.Contains(t, logOut, "ok     "+project("queries", "names.prql"))

	logJSON, _, err := execute(t, "--config", projectConfig, "--format", "json", "log", "--db", db, "s-1")
	require.NoError(t, err)
	var resp struct {
		Data    LogResult `json:"data"`
		TraceID string    `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(logJSON), &resp))
	assert.Equal(t, "s-1", resp.TraceID)
	require.Len(t, resp.Data.Outcomes, 2)

	var fingerprint string
	for _, o := range resp.Data.Outcomes {
		if o.Status == store.StatusOK {
			fingerprint = o.Fingerprint
		}
	}
	require.NotEmpty(t, fingerprint)

	byID, _, err := execute(t, "--config", projectConfig, "log", "--db", db, "--fingerprint", fingerprint)
	require.NoError(t, err)
	assert.Contains(t, byID, fingerprint[:12])
}

func TestLogErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	out, _, err := execute(t, "--config", projectConfig, "log", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "compile log is empty")

	out, _, err = execute(t, "--config", projectConfig, "log", "--db", db, "missing")
	require.Error(t, err)
	assert.Contains(t, out, "session not found: missing")

	_, _, err = execute(t, "--config", projectConfig, "log", "--db", db, "--fingerprint", "x", "s-1")
	require.Error(t, err)

	out, _, err = execute(t, "--config", projectConfig, "log")
	require.Error(t, err)
	assert.Contains(t, out, "no compile log")
}

func TestCollectJobs(t *testing.T) {
	jobs, err := collectJobs([]string{project("queries"), "-"}, strings.NewReader("from db.x\r\n"))
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, project("queries", "broken.prql"), jobs[0].Name)
	assert.Equal(t, project("queries", "names.prql"), jobs[1].Name)
	assert.Equal(t, stdinName, jobs[2].Name)
	assert.Equal(t, "from db.x\n", jobs[2].Source)

	_, err = collectJobs([]string{"does-not-exist"}, nil)
	require.Error(t, err)
}
