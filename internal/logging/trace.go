package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS decision_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id  TEXT NOT NULL,
    user_text   TEXT NOT NULL,
    intent      TEXT,
    confidence  REAL NOT NULL DEFAULT 0,
    terminal    TEXT NOT NULL,
    source      TEXT NOT NULL,
    record_json TEXT,
    reply_len   INTEGER NOT NULL DEFAULT 0,
    elapsed_ms  INTEGER NOT NULL DEFAULT 0,
    created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decision_request ON decision_log(request_id);
CREATE INDEX IF NOT EXISTS idx_decision_terminal ON decision_log(terminal);
`

// #endregion schema

// #region store
// TraceStore manages the decision_log table.
type TraceStore struct {
	db *sql.DB
}

// NewTraceStore creates tables and returns a TraceStore.
func NewTraceStore(db *sql.DB) (*TraceStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("decision log schema: %w", err)
	}
	return &TraceStore{db: db}, nil
}

// #endregion store

// #region log
// Log writes a trace entry to the decision_log table.
func (s *TraceStore) Log(entry TraceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO decision_log (request_id, user_text, intent, confidence, terminal, source, record_json, reply_len, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.UserText,
		nullIfEmpty(entry.Intent),
		entry.Confidence,
		entry.Terminal,
		entry.Source,
		nullIfEmpty(entry.RecordJSON),
		entry.ReplyLen,
		entry.ElapsedMs,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log

// #region queries
// Recent returns the latest entries, newest first.
func (s *TraceStore) Recent(limit int) ([]TraceEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT request_id, user_text, intent, confidence, terminal, source, record_json, reply_len, elapsed_ms, created_at
		 FROM decision_log
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Get returns all entries for a request ID, oldest first.
func (s *TraceStore) Get(requestID string) ([]TraceEntry, error) {
	rows, err := s.db.Query(
		`SELECT request_id, user_text, intent, confidence, terminal, source, record_json, reply_len, elapsed_ms, created_at
		 FROM decision_log
		 WHERE request_id = ?
		 ORDER BY id ASC`,
		requestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// TerminalCounts returns how many requests ended in each terminal outcome.
func (s *TraceStore) TerminalCounts() (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT terminal, COUNT(*) FROM decision_log GROUP BY terminal`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var terminal string
		var n int
		if err := rows.Scan(&terminal, &n); err != nil {
			return nil, err
		}
		counts[terminal] = n
	}
	return counts, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]TraceEntry, error) {
	var entries []TraceEntry
	for rows.Next() {
		var e TraceEntry
		var intent, recordJSON sql.NullString
		var createdAt string
		if err := rows.Scan(&e.RequestID, &e.UserText, &intent, &e.Confidence, &e.Terminal, &e.Source, &recordJSON, &e.ReplyLen, &e.ElapsedMs, &createdAt); err != nil {
			return nil, err
		}
		e.Intent = intent.String
		e.RecordJSON = recordJSON.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion queries

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
