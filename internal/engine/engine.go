package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/roach88/pql/internal/compiler"
	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/store"
	"github.com/roach88/pql/internal/target"
)

// DefaultMaxJobs bounds the size of one batch.
const DefaultMaxJobs = 10000

// Job is one query to compile.
type Job struct {
	// Name identifies the job in outcomes and the log, usually a file path.
	Name   string
	Source string
}

// Outcome is the result of one job.
type Outcome struct {
	Job     Job
	Seq     int64
	Session string

	// Exactly one of Result and Diagnostics is set for a job that ran.
	Result      *compiler.Result
	Diagnostics diagnostic.List

	// Err is set when the job never ran because the batch was canceled.
	Err error
}

// OK reports whether the job compiled.
func (o Outcome) OK() bool {
	return o.Result != nil
}

// Batch is a completed run.
type Batch struct {
	Session  string
	Seq      int64
	Outcomes []Outcome
}

// Failed counts the jobs that ran and did not compile.
func (b *Batch) Failed() int {
	n := 0
	for _, o := range b.Outcomes {
		if !o.OK() && o.Err == nil {
			n++
		}
	}
	return n
}

// Skipped counts the jobs that never ran.
func (b *Batch) Skipped() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Engine runs batches. An Engine may run several batches, one at a time or
// concurrently; seq numbers stay unique across them.
type Engine struct {
	opts     compiler.Options
	clock    Sequencer
	sessions SessionGenerator
	store    *store.Store
	workers  int
	maxJobs  int
	log      *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithWorkers sets the size of the compile pool. Values below one mean
// one worker.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithMaxJobs sets the largest batch Run accepts.
func WithMaxJobs(n int) EngineOption {
	return func(e *Engine) {
		e.maxJobs = n
	}
}

// WithStore logs every batch to s.
func WithStore(s *store.Store) EngineOption {
	return func(e *Engine) {
		e.store = s
	}
}

// WithClock replaces the logical clock, for example to continue numbering
// after the last logged session.
func WithClock(c Sequencer) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithSessionGenerator replaces the UUIDv7 session ids.
func WithSessionGenerator(g SessionGenerator) EngineOption {
	return func(e *Engine) {
		e.sessions = g
	}
}

// WithLogger sets the engine logger. The compiler logs through the logger
// of the compile options.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// New creates an Engine that compiles every job with opts.
func New(opts compiler.Options, options ...EngineOption) *Engine {
	e := &Engine{
		opts:     opts,
		clock:    NewClock(),
		sessions: UUIDv7Generator{},
		workers:  runtime.GOMAXPROCS(0),
		maxJobs:  DefaultMaxJobs,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range options {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// Run compiles jobs and returns their outcomes in submission order.
//
// When ctx is canceled, jobs not yet handed to a worker are skipped: their
// outcomes carry ctx.Err() and Run returns the batch along with that error.
// Jobs already running finish. Skipped jobs are not logged.
func (e *Engine) Run(ctx context.Context, jobs []Job) (*Batch, error) {
	if len(jobs) > e.maxJobs {
		return nil, &LimitError{Jobs: len(jobs), Limit: e.maxJobs}
	}
	seen := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		if seen[j.Name] {
			return nil, &DuplicateJobError{Name: j.Name}
		}
		seen[j.Name] = true
	}

	batch := &Batch{
		Session:  e.sessions.Generate(),
		Seq:      e.clock.Next(),
		Outcomes: make([]Outcome, len(jobs)),
	}
	for i, j := range jobs {
		batch.Outcomes[i] = Outcome{Job: j, Seq: e.clock.Next(), Session: batch.Session}
	}

	workers := min(e.workers, len(jobs))
	e.log.Info("batch started", "session", batch.Session, "jobs", len(jobs), "workers", workers)

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				e.compile(&batch.Outcomes[i])
			}
		}()
	}

	canceled := -1
dispatch:
	for i := range jobs {
		if ctx.Err() != nil {
			canceled = i
			break
		}
		select {
		case <-ctx.Done():
			canceled = i
			break dispatch
		case work <- i:
		}
	}
	close(work)
	wg.Wait()

	if canceled >= 0 {
		for i := canceled; i < len(jobs); i++ {
			batch.Outcomes[i].Err = ctx.Err()
		}
		e.log.Warn("batch canceled", "session", batch.Session, "skipped", len(jobs)-canceled)
	}

	if e.store != nil {
		if err := e.record(context.WithoutCancel(ctx), batch, len(jobs)); err != nil {
			return batch, err
		}
	}

	e.log.Info("batch finished", "session", batch.Session, "jobs", len(jobs), "failed", batch.Failed())
	if canceled >= 0 {
		return batch, ctx.Err()
	}
	return batch, nil
}

func (e *Engine) compile(o *Outcome) {
	res, err := compiler.CompileSource(o.Job.Source, e.opts)
	if err != nil {
		o.Diagnostics = compiler.Diagnostics(err)
		e.log.Debug("job failed", "job", o.Job.Name, "seq", o.Seq, "diagnostics", len(o.Diagnostics))
		return
	}
	o.Result = res
	e.log.Debug("job compiled", "job", o.Job.Name, "seq", o.Seq, "id", res.ID)
}

// record writes the session and the outcomes of every job that ran.
func (e *Engine) record(ctx context.Context, b *Batch, jobs int) error {
	name := e.opts.Target
	if name == "" {
		name = target.Default
	}
	err := e.store.WriteSession(ctx, store.Session{
		ID:         b.Session,
		StartedSeq: b.Seq,
		Jobs:       jobs,
		Workers:    e.workers,
		Target:     name,
	})
	if err != nil {
		return fmt.Errorf("record batch: %w", err)
	}
	for _, o := range b.Outcomes {
		if o.Err != nil {
			continue
		}
		if err := e.store.WriteOutcome(ctx, Record(o)); err != nil {
			return fmt.Errorf("record batch: %w", err)
		}
	}
	return nil
}

// Record converts an outcome into its log record.
func Record(o Outcome) store.Record {
	rec := store.Record{
		SessionID:   o.Session,
		Seq:         o.Seq,
		Job:         o.Job.Name,
		Status:      store.StatusFailed,
		Diagnostics: o.Diagnostics,
	}
	if o.Result != nil {
		rec.Status = store.StatusOK
		rec.Fingerprint = o.Result.ID
		rec.Target = o.Result.Dialect.Name
		for _, c := range o.Result.Frame.Columns {
			rec.Frame = append(rec.Frame, c.Qualified())
		}
	}
	return rec
}
