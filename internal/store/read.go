package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("not found")

// ReadSession returns a session record.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_seq, jobs, workers, target
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.StartedSeq, &sess.Jobs, &sess.Workers, &sess.Target)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("read session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session: %w", err)
	}
	return sess, nil
}

// ReadOutcomes returns the outcomes of a session ordered by seq.
//
// Returns an empty slice (not nil) if the session logged nothing.
func (s *Store) ReadOutcomes(ctx context.Context, sessionID string) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT session_id, seq, job, status, fingerprint, target, frame, diagnostics
		FROM outcomes
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
}

// FindByFingerprint returns every successful outcome with the given
// fingerprint across sessions.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) ([]Record, error) {
	return s.queryRecords(ctx, `
		SELECT session_id, seq, job, status, fingerprint, target, frame, diagnostics
		FROM outcomes
		WHERE fingerprint = ? AND status = 'ok'
		ORDER BY session_id COLLATE BINARY ASC, seq ASC
	`, fingerprint)
}

// LatestSession returns the session with the highest starting seq.
func (s *Store) LatestSession(ctx context.Context) (Session, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM sessions
		ORDER BY started_seq DESC, id COLLATE BINARY DESC
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("latest session: %w", ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("latest session: %w", err)
	}
	return s.ReadSession(ctx, id)
}

// MaxSeq returns the highest sequence number in the log, or 0 when it is
// empty. A new batch continues from it so seq stays monotonic across
// sessions.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT COALESCE(MAX(started_seq), 0) AS seq FROM sessions
			UNION ALL
			SELECT COALESCE(MAX(seq), 0) FROM outcomes
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var frameJSON, diagJSON string
	if err := rows.Scan(
		&rec.SessionID,
		&rec.Seq,
		&rec.Job,
		&rec.Status,
		&rec.Fingerprint,
		&rec.Target,
		&frameJSON,
		&diagJSON,
	); err != nil {
		return Record{}, fmt.Errorf("scan outcome: %w", err)
	}

	var err error
	if rec.Frame, err = unmarshalFrame(frameJSON); err != nil {
		return Record{}, err
	}
	if rec.Diagnostics, err = unmarshalDiagnostics(diagJSON); err != nil {
		return Record{}, err
	}
	return rec, nil
}
