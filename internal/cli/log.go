package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pql/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database    string
	Fingerprint string
}

// SessionInfo is a logged session in command output.
type SessionInfo struct {
	ID         string `json:"id"`
	StartedSeq int64  `json:"started_seq"`
	Jobs       int    `json:"jobs"`
	Workers    int    `json:"workers"`
	Target     string `json:"target"`
}

// LogResult is the JSON payload of the log command.
type LogResult struct {
	Session  *SessionInfo `json:"session,omitempty"`
	Outcomes []JobResult  `json:"outcomes"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log [session-id]",
		Short: "Read the compile log",
		Long: `Print the outcomes recorded by "pql batch", in sequence order.

Without a session id the most recent session is shown. With
--fingerprint, every successful compilation with that id is listed
across all sessions.

Examples:
  pql log --db .pql/log.db
  pql log --db .pql/log.db 0192b7c4-5a1e-7c3d-9f00-1d2e3f4a5b6c
  pql log --fingerprint 3f9a... --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := ""
			if len(args) == 1 {
				session = args[0]
			}
			return runLog(opts, session, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite compile log (overrides pql.yaml)")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "list compilations with this id")

	return cmd
}

func runLog(opts *LogOptions, sessionID string, cmd *cobra.Command) error {
	e, err := newEnv(opts.RootOptions, nil, cmd)
	if err != nil {
		return err
	}
	if sessionID != "" && opts.Fingerprint != "" {
		return e.out.Fail(ExitCommandError, ErrCodeGeneric, "a session id and --fingerprint are mutually exclusive", nil)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = e.cfg.Store
	}
	if dbPath == "" {
		return e.out.Fail(ExitCommandError, ErrCodeStore, "no compile log: pass --db or set store in pql.yaml", nil)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return e.out.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("failed to open compile log: %v", err), nil)
	}
	defer st.Close()

	ctx := commandContext(cmd)

	if opts.Fingerprint != "" {
		records, err := st.FindByFingerprint(ctx, opts.Fingerprint)
		if err != nil {
			return e.out.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		return outputLog(e.out, LogResult{Outcomes: jobResults(records)})
	}

	var sess store.Session
	if sessionID == "" {
		sess, err = st.LatestSession(ctx)
	} else {
		sess, err = st.ReadSession(ctx, sessionID)
	}
	switch {
	case errors.Is(err, store.ErrNotFound) && sessionID == "":
		return e.out.Fail(ExitCommandError, ErrCodeNotFound, "compile log is empty", nil)
	case errors.Is(err, store.ErrNotFound):
		return e.out.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("session not found: %s", sessionID), nil)
	case err != nil:
		return e.out.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	records, err := st.ReadOutcomes(ctx, sess.ID)
	if err != nil {
		return e.out.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	e.out.TraceID = sess.ID

	info := SessionInfo(sess)
	return outputLog(e.out, LogResult{Session: &info, Outcomes: jobResults(records)})
}

func jobResults(records []store.Record) []JobResult {
	out := make([]JobResult, 0, len(records))
	for _, rec := range records {
		out = append(out, JobResult{
			Job:         rec.Job,
			Seq:         rec.Seq,
			Status:      rec.Status,
			Fingerprint: rec.Fingerprint,
			Target:      rec.Target,
			Frame:       rec.Frame,
			Diagnostics: rec.Diagnostics,
		})
	}
	return out
}

func outputLog(out *OutputFormatter, result LogResult) error {
	if out.JSON() {
		return out.Success(result)
	}

	w := out.Writer
	if s := result.Session; s != nil {
		fmt.Fprintf(w, "Session %s (seq %d, %d job(s), %d worker(s), %s)\n", s.ID, s.StartedSeq, s.Jobs, s.Workers, s.Target)
	}
	if len(result.Outcomes) == 0 {
		fmt.Fprintln(w, "No outcomes found.")
		return nil
	}
	for _, jr := range result.Outcomes {
		if jr.Status == store.StatusOK {
			fmt.Fprintf(w, "%6d ok     %s %s %v\n", jr.Seq, jr.Job, shortID(jr.Fingerprint), jr.Frame)
			continue
		}
		fmt.Fprintf(w, "%6d failed %s", jr.Seq, jr.Job)
		for _, d := range jr.Diagnostics {
			fmt.Fprintf(w, " %s", d.Code)
		}
		fmt.Fprintln(w)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
