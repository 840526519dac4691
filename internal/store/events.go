package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/procmigrate/internal/migrate"
)

// EventRecord is a stored transition.
type EventRecord struct {
	Seq        int64
	RecordedAt time.Time
	migrate.Event
}

// Record appends ev to the ledger. It implements migrate.Recorder.
func (s *Store) Record(ctx context.Context, ev migrate.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, stage, subject, outcome, attempt, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		ev.RunID,
		string(ev.Stage),
		ev.Subject,
		ev.Outcome,
		ev.Attempt,
		ev.Detail,
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// Events returns the events of one run in recording order.
func (s *Store) Events(ctx context.Context, runID string) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run_id, stage, subject, outcome, attempt, detail, recorded_at
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return scanEvents(rows)
}

// SubjectEvents returns every event for one procedure or artifact file
// across all runs, oldest first.
func (s *Store) SubjectEvents(ctx context.Context, subject string) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, run_id, stage, subject, outcome, attempt, detail, recorded_at
		FROM events
		WHERE subject = ?
		ORDER BY seq ASC
	`, subject)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]EventRecord, error) {
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var rec EventRecord
		var stage, recorded string
		if err := rows.Scan(&rec.Seq, &rec.RunID, &stage, &rec.Subject, &rec.Outcome,
			&rec.Attempt, &rec.Detail, &recorded); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		rec.Stage = migrate.Stage(stage)

		t, err := parseTime(recorded)
		if err != nil {
			return nil, err
		}
		rec.RecordedAt = t
		events = append(events, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
