package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/pql/internal/diagnostic"
	"github.com/roach88/pql/internal/engine"
	"github.com/roach88/pql/internal/store"
)

// BatchOptions holds flags for the check and batch commands.
type BatchOptions struct {
	*RootOptions
	compileFlags

	// Database is the compile log. It overrides the store entry of
	// pql.yaml and is only used by batch.
	Database string

	// Sessions allows overriding the session id generator (for testing).
	// If nil, batch uses UUIDv7 ids.
	Sessions engine.SessionGenerator
}

// statusSkipped marks a query that never ran because the batch was
// interrupted.
const statusSkipped = "skipped"

// JobResult is the outcome of one query in command output.
type JobResult struct {
	Job         string          `json:"job"`
	Seq         int64           `json:"seq"`
	Status      string          `json:"status"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	Target      string          `json:"target,omitempty"`
	Frame       []string        `json:"frame,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
	Diagnostics diagnostic.List `json:"diagnostics,omitempty"`
}

// BatchResult is the JSON payload of check and batch.
type BatchResult struct {
	Session string      `json:"session"`
	Jobs    []JobResult `json:"jobs"`
	Failed  int         `json:"failed"`
	Total   int         `json:"total"`

	// Store is set when the batch was logged.
	Store string `json:"store,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <path>...",
		Short: "Resolve queries and report diagnostics",
		Long: `Resolve every query under the given paths in parallel and report
the diagnostics of those that fail. Directories contribute their *.prql
files; - reads one query from standard input.

Exit codes:
  0 - Every query resolved
  1 - One or more queries have diagnostics
  2 - Command error (missing path, bad config, bad catalog)

Examples:
  pql check queries/
  pql check --strict --target sql.mysql a.prql b.prql
  cat q.prql | pql check -`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args, cmd, false)
		},
	}

	opts.compileFlags.register(cmd, true)

	return cmd
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "batch <path>...",
		Short: "Resolve queries and log the outcomes",
		Long: `Resolve every query under the given paths as one session and record
each outcome in the SQLite compile log. The session id is printed and,
with --format json, returned as trace_id.

The log is taken from --db or the store entry of pql.yaml. Use
"pql log" to read it back.

Exit codes:
  0 - Every query resolved
  1 - One or more queries have diagnostics
  2 - Command error (no store configured, missing path, bad config)

Examples:
  pql batch --db .pql/log.db queries/
  pql batch --format json -j 8 queries/`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(opts, args, cmd, true)
		},
	}

	opts.compileFlags.register(cmd, true)
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite compile log (overrides pql.yaml)")

	return cmd
}

func runBatch(opts *BatchOptions, paths []string, cmd *cobra.Command, logged bool) error {
	e, err := newEnv(opts.RootOptions, &opts.compileFlags, cmd)
	if err != nil {
		return err
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = e.cfg.Store
	}
	if logged && dbPath == "" {
		return e.out.Fail(ExitCommandError, ErrCodeStore, "no compile log: pass --db or set store in pql.yaml", nil)
	}

	copts, err := e.compileOptions()
	if err != nil {
		return err
	}

	jobs, err := collectJobs(paths, cmd.InOrStdin())
	if err != nil {
		return e.readFailure(err)
	}
	e.out.VerboseLog("Found %d quer(y/ies)", len(jobs))

	engineOpts := []engine.EngineOption{engine.WithLogger(e.log)}
	if e.cfg.Workers > 0 {
		engineOpts = append(engineOpts, engine.WithWorkers(e.cfg.Workers))
	}
	if opts.Sessions != nil {
		engineOpts = append(engineOpts, engine.WithSessionGenerator(opts.Sessions))
	}

	if logged {
		st, err := store.Open(dbPath)
		if err != nil {
			return e.out.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open compile log: %v", err), nil)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				e.log.Error("error closing compile log", "error", closeErr)
			}
		}()
		seq, err := st.MaxSeq(commandContext(cmd))
		if err != nil {
			return e.out.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		e.out.VerboseLog("Logging to %s from seq %d", dbPath, seq)
		engineOpts = append(engineOpts, engine.WithStore(st), engine.WithClock(engine.NewClockAt(seq)))
	}

	ctx, stop := signalContext(commandContext(cmd), e)
	defer stop()

	batch, err := engine.New(copts, engineOpts...).Run(ctx, jobs)
	if err != nil && batch == nil {
		// Limit and duplicate job errors happen before any work.
		return e.out.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}
	if logged {
		e.out.TraceID = batch.Session
	}

	result := batchResult(batch)
	if logged {
		result.Store = dbPath
	}
	switch {
	case errors.Is(err, context.Canceled):
		return e.out.Fail(ExitFailure, ErrCodeGeneric,
			fmt.Sprintf("batch %s interrupted: %d of %d queries skipped", batch.Session, batch.Skipped(), len(jobs)), result)
	case err != nil:
		return e.out.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	return outputBatch(e.out, result, logged)
}

// signalContext cancels the batch on SIGINT or SIGTERM. Queries already
// compiling finish; the rest are skipped.
func signalContext(parent context.Context, e *env) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			e.log.Warn("received signal, stopping batch", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan) // Prevent signal handler leak
		cancel()
	}
}

func batchResult(batch *engine.Batch) BatchResult {
	result := BatchResult{
		Session: batch.Session,
		Jobs:    make([]JobResult, 0, len(batch.Outcomes)),
		Failed:  batch.Failed(),
		Total:   len(batch.Outcomes),
	}
	for _, o := range batch.Outcomes {
		result.Jobs = append(result.Jobs, jobResult(o))
	}
	return result
}

func jobResult(o engine.Outcome) JobResult {
	rec := engine.Record(o)
	jr := JobResult{
		Job:         rec.Job,
		Seq:         rec.Seq,
		Status:      rec.Status,
		Fingerprint: rec.Fingerprint,
		Target:      rec.Target,
		Frame:       rec.Frame,
		Diagnostics: rec.Diagnostics,
	}
	switch {
	case o.Err != nil:
		jr.Status = statusSkipped
	case o.Result != nil:
		jr.Warnings = o.Result.Portability.Warnings
	}
	return jr
}

func outputBatch(out *OutputFormatter, result BatchResult, logged bool) error {
	summary := fmt.Sprintf("%d of %d quer(y/ies) failed", result.Failed, result.Total)

	if out.JSON() {
		if result.Failed > 0 {
			return out.Fail(ExitFailure, ErrCodeCompile, summary, result)
		}
		return out.Success(result)
	}

	w := out.Writer
	for _, jr := range result.Jobs {
		if jr.Status == store.StatusOK {
			fmt.Fprintf(w, "✓ %s %v\n", jr.Job, jr.Frame)
			for _, msg := range jr.Warnings {
				fmt.Fprintf(w, "  warning: %s\n", msg)
			}
			continue
		}
		fmt.Fprint(w, "✗ ")
		writeDiagnostics(w, jr.Job, jr.Diagnostics)
	}

	fmt.Fprintln(w)
	if logged {
		fmt.Fprintf(w, "Session %s logged to %s\n", result.Session, result.Store)
	}
	fmt.Fprintf(w, "Summary: %d passed, %d failed, %d total\n", result.Total-result.Failed, result.Failed, result.Total)
	if result.Failed > 0 {
		return reportedError(ExitFailure, summary)
	}
	return nil
}
