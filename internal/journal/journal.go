// Package journal keeps a local SQLite audit trail of proctoring ticks:
// what was captured, when, whether the upload landed, and what the backend
// made of it. The backend remains the system of record; the journal exists
// so the agent can show and export what it did even when offline.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite
)

// Outcome records how one tick ended.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Entry is one journaled tick.
type Entry struct {
	TickID          string
	Kind            string
	UserID          int
	ExamID          int
	CapturedAt      time.Time
	Outcome         Outcome
	SuspiciousCount int
	MovementType    string
}

// Journal is the SQLite-backed tick log.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal at path, creating parent directories
// as needed.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Journal{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS ticks(
	  tick_id          TEXT PRIMARY KEY,
	  kind             TEXT    NOT NULL CHECK (kind IN ('frame','screen')),
	  user_id          INTEGER NOT NULL,
	  exam_id          INTEGER NOT NULL,
	  captured_at      INTEGER NOT NULL,
	  outcome          TEXT    NOT NULL CHECK (outcome IN ('ok','failed','skipped')),
	  suspicious_count INTEGER NOT NULL DEFAULT 0,
	  movement_type    TEXT    NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_ticks_exam ON ticks(exam_id, captured_at);
	CREATE INDEX IF NOT EXISTS idx_ticks_kind ON ticks(kind);
	`)
	if err != nil {
		return fmt.Errorf("create journal tables: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one tick entry.
func (j *Journal) Record(e Entry) error {
	_, err := j.db.Exec(
		`INSERT INTO ticks (tick_id, kind, user_id, exam_id, captured_at, outcome, suspicious_count, movement_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.TickID, e.Kind, e.UserID, e.ExamID, e.CapturedAt.Unix(),
		string(e.Outcome), e.SuspiciousCount, e.MovementType,
	)
	if err != nil {
		return fmt.Errorf("record tick: %w", err)
	}
	return nil
}

// Recent returns the newest entries for an exam, most recent first.
func (j *Journal) Recent(examID, limit int) ([]Entry, error) {
	rows, err := j.db.Query(
		`SELECT tick_id, kind, user_id, exam_id, captured_at, outcome, suspicious_count, movement_type
		 FROM ticks WHERE exam_id = ? ORDER BY captured_at DESC LIMIT ?`,
		examID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var capturedAt int64
		var outcome string
		if err := rows.Scan(&e.TickID, &e.Kind, &e.UserID, &e.ExamID, &capturedAt,
			&outcome, &e.SuspiciousCount, &e.MovementType); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		e.CapturedAt = time.Unix(capturedAt, 0)
		e.Outcome = Outcome(outcome)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Summary aggregates an exam's ticks for reporting.
type Summary struct {
	Total      int
	Failed     int
	Suspicious int
}

// Summarize counts an exam's ticks by outcome and suspicion.
func (j *Journal) Summarize(examID int) (Summary, error) {
	var s Summary
	err := j.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN suspicious_count > 0 THEN 1 ELSE 0 END), 0)
		 FROM ticks WHERE exam_id = ?`,
		examID,
	).Scan(&s.Total, &s.Failed, &s.Suspicious)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize ticks: %w", err)
	}
	return s, nil
}
