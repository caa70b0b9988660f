package store

import (
	"context"
	"fmt"

	"github.com/roach88/pql/internal/diagnostic"
)

// Outcome statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Session is one batch run.
type Session struct {
	ID         string
	StartedSeq int64
	Jobs       int
	Workers    int
	Target     string
}

// Record is the logged outcome of one query in a session.
type Record struct {
	SessionID   string
	Seq         int64
	Job         string
	Status      string
	Fingerprint string
	Target      string
	Frame       []string
	Diagnostics diagnostic.List
}

// WriteSession inserts a session record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_seq, jobs, workers, target)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.StartedSeq, sess.Jobs, sess.Workers, sess.Target)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteOutcome inserts an outcome record. A second write for the same
// (session, seq) pair is silently ignored. The session must exist.
func (s *Store) WriteOutcome(ctx context.Context, rec Record) error {
	if rec.Status != StatusOK && rec.Status != StatusFailed {
		return fmt.Errorf("write outcome: invalid status %q", rec.Status)
	}
	frameJSON, err := marshalFrame(rec.Frame)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	diagJSON, err := marshalDiagnostics(rec.Diagnostics)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcomes
		(session_id, seq, job, status, fingerprint, target, frame, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		rec.SessionID,
		rec.Seq,
		rec.Job,
		rec.Status,
		rec.Fingerprint,
		rec.Target,
		frameJSON,
		diagJSON,
	)
	if err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}
