package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pql/internal/catalog"
	"github.com/roach88/pql/internal/compiler"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/store"
)

func testOptions() compiler.Options {
	return compiler.Options{
		Catalog: catalog.MustNew(&catalog.Table{Name: "artists", Columns: []catalog.Column{
			{Name: "id", TypeName: "int"},
			{Name: "name", TypeName: "text"},
		}}),
	}
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testJobs() []Job {
	return []Job{
		{Name: "names.prql", Source: "from db.artists\nselect {name}"},
		{Name: "broken.prql", Source: "from db.film\ngroup"},
		{Name: "ids.prql", Source: "from db.artists\nderive {next = id + 1}"},
	}
}

func TestRunPreservesOrder(t *testing.T) {
	e := New(testOptions(), WithWorkers(4), WithSessionGenerator(NewFixedGenerator("s-1")))

	batch, err := e.Run(context.Background(), testJobs())
	require.NoError(t, err)
	assert.Equal(t, "s-1", batch.Session)
	assert.Equal(t, int64(1), batch.Seq)
	require.Len(t, batch.Outcomes, 3)

	for i, o := range batch.Outcomes {
		assert.Equal(t, testJobs()[i].Name, o.Job.Name)
		assert.Equal(t, int64(i+2), o.Seq)
		assert.Equal(t, "s-1", o.Session)
		assert.NoError(t, o.Err)
	}

	assert.True(t, batch.Outcomes[0].OK())
	assert.Equal(t, "[artists.name]", batch.Outcomes[0].Result.Frame.String())

	broken := batch.Outcomes[1]
	assert.False(t, broken.OK())
	require.Len(t, broken.Diagnostics, 1)
	assert.Equal(t, diagnostic.TypeMismatch, broken.Diagnostics[0].Kind)

	assert.True(t, batch.Outcomes[2].OK())
	assert.Equal(t, 1, batch.Failed())
	assert.Equal(t, 0, batch.Skipped())
}

func TestRunMatchesSequentialCompilation(t *testing.T) {
	var jobs []Job
	for i := 0; i < 40; i++ {
		jobs = append(jobs, Job{
			Name:   fmt.Sprintf("q%02d.prql", i),
			Source: fmt.Sprintf("from db.artists\ntake %d", i+1),
		})
	}

	parallel, err := New(testOptions(), WithWorkers(8)).Run(context.Background(), jobs)
	require.NoError(t, err)
	serial, err := New(testOptions(), WithWorkers(1)).Run(context.Background(), jobs)
	require.NoError(t, err)

	for i := range jobs {
		require.True(t, parallel.Outcomes[i].OK())
		assert.Equal(t, serial.Outcomes[i].Result.ID, parallel.Outcomes[i].Result.ID, jobs[i].Name)
	}
}

func TestRunSeqContinuesAcrossBatches(t *testing.T) {
	e := New(testOptions(), WithClock(NewClockAt(100)), WithSessionGenerator(NewFixedGenerator("a", "b")))

	first, err := e.Run(context.Background(), testJobs()[:1])
	require.NoError(t, err)
	second, err := e.Run(context.Background(), testJobs()[:1])
	require.NoError(t, err)

	assert.Equal(t, int64(101), first.Seq)
	assert.Equal(t, int64(102), first.Outcomes[0].Seq)
	assert.Equal(t, int64(103), second.Seq)
	assert.Equal(t, "b", second.Session)
}

func TestRunEmptyBatch(t *testing.T) {
	batch, err := New(testOptions()).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, batch.Outcomes)
	assert.NotEmpty(t, batch.Session)
}

func TestRunCanceledBeforeStart(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(testOptions(), WithStore(s), WithSessionGenerator(NewFixedGenerator("s-1")))
	batch, err := e.Run(ctx, testJobs())
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, batch)

	assert.Equal(t, 3, batch.Skipped())
	assert.Equal(t, 0, batch.Failed())
	for _, o := range batch.Outcomes {
		assert.ErrorIs(t, o.Err, context.Canceled)
		assert.Nil(t, o.Result)
	}

	logged, err := s.ReadOutcomes(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Empty(t, logged)
	_, err = s.ReadSession(context.Background(), "s-1")
	assert.NoError(t, err)
}

func TestRunLimits(t *testing.T) {
	e := New(testOptions(), WithMaxJobs(2))

	_, err := e.Run(context.Background(), testJobs())
	require.Error(t, err)
	assert.True(t, IsLimitError(err))
	assert.EqualError(t, err, "batch of 3 jobs exceeds the limit of 2")
}

func TestRunRejectsDuplicateNames(t *testing.T) {
	jobs := []Job{{Name: "a", Source: "from db.artists"}, {Name: "a", Source: "from db.artists"}}
	_, err := New(testOptions()).Run(context.Background(), jobs)

	var dup *DuplicateJobError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "a", dup.Name)
}

func TestRunRecordsToStore(t *testing.T) {
	s := setupTestStore(t)
	opts := testOptions()
	opts.Target = "sql.sqlite"
	e := New(opts, WithStore(s), WithWorkers(2), WithSessionGenerator(NewFixedGenerator("s-1")))

	batch, err := e.Run(context.Background(), testJobs())
	require.NoError(t, err)

	ctx := context.Background()
	sess, err := s.ReadSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, store.Session{ID: "s-1", StartedSeq: 1, Jobs: 3, Workers: 2, Target: "sql.sqlite"}, sess)

	logged, err := s.ReadOutcomes(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, logged, 3)

	assert.Equal(t, store.StatusOK, logged[0].Status)
	assert.Equal(t, batch.Outcomes[0].Result.ID, logged[0].Fingerprint)
	assert.Equal(t, "sql.sqlite", logged[0].Target)
	assert.Equal(t, []string{"artists.name"}, logged[0].Frame)

	assert.Equal(t, store.StatusFailed, logged[1].Status)
	assert.Equal(t, "broken.prql", logged[1].Job)
	require.Len(t, logged[1].Diagnostics, 1)
	assert.Equal(t, diagnostic.TypeMismatch, logged[1].Diagnostics[0].Kind)

	found, err := s.FindByFingerprint(ctx, batch.Outcomes[2].Result.ID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ids.prql", found[0].Job)
}

func TestRunLogs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := New(testOptions(), WithLogger(log), WithSessionGenerator(NewFixedGenerator("s-1"))).
		Run(context.Background(), testJobs())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `msg="batch started" session=s-1 jobs=3`)
	assert.Contains(t, out, `msg="job failed" job=broken.prql`)
	assert.Contains(t, out, `msg="batch finished" session=s-1 jobs=3 failed=1`)
}

func TestNewClampsWorkers(t *testing.T) {
	assert.Equal(t, 1, New(testOptions(), WithWorkers(0)).workers)
	assert.Equal(t, 1, New(testOptions(), WithWorkers(-3)).workers)
}
