// Package journal records wizard sessions in SQLite: one row per session
// and one row per controller event, with the step result serialized as JSON
// on completion events. The journal is append-only; workflow state is never
// restored from it.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"breathplat/internal/logging"
	"breathplat/internal/workflow"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Journal is an open run journal.
type Journal struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// Session is one journaled wizard or headless run.
type Session struct {
	ID        string
	Mode      string // wizard, run
	Steps     int
	StartedAt time.Time
	Events    int
}

// Entry is one journaled controller event.
type Entry struct {
	Seq        int64
	SessionID  string
	Kind       workflow.EventKind
	Step       int
	StepKey    workflow.StepKey
	From       int
	To         int
	ResultKind string
	Payload    json.RawMessage
	At         time.Time
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// a single connection keeps writes serialized
	db.SetMaxOpenConns(1)

	j := &Journal{db: db, dbPath: path}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		steps INTEGER NOT NULL,
		started_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		kind TEXT NOT NULL,
		step INTEGER NOT NULL,
		step_key TEXT NOT NULL,
		from_step INTEGER NOT NULL,
		to_step INTEGER NOT NULL,
		result_kind TEXT,
		payload TEXT,
		at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create journal tables: %w", err)
	}
	return nil
}

// Path returns the database file.
func (j *Journal) Path() string { return j.dbPath }

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// StartSession registers a session.
func (j *Journal) StartSession(id, mode string, steps int, at time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.db.Exec(`INSERT INTO sessions (id, mode, steps, started_at) VALUES (?, ?, ?, ?)`,
		id, mode, steps, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

// Record appends one controller event to a session.
func (j *Journal) Record(sessionID string, ev workflow.Event) error {
	var payload sql.NullString
	if ev.Result != nil {
		raw, err := json.Marshal(ev.Result)
		if err != nil {
			return fmt.Errorf("failed to encode %s result: %w", ev.StepKey, err)
		}
		payload = sql.NullString{String: string(raw), Valid: true}
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	_, err := j.db.Exec(`INSERT INTO events (session_id, kind, step, step_key, from_step, to_step, result_kind, payload, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, string(ev.Kind), ev.Step, string(ev.StepKey), ev.From, ev.To, ev.ResultKind, payload, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// Observer returns a controller observer that journals every event of a
// session. Write failures are logged and do not affect the workflow.
func (j *Journal) Observer(sessionID string) workflow.Observer {
	return func(ev workflow.Event) {
		if err := j.Record(sessionID, ev); err != nil {
			logging.Get(logging.CategoryJournal).Warn("journal write failed",
				zap.String("session", sessionID), zap.String("kind", string(ev.Kind)), zap.Error(err))
		}
	}
}

// Sessions lists sessions, newest first.
func (j *Journal) Sessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(`
		SELECT s.id, s.mode, s.steps, s.started_at, COUNT(e.seq)
		FROM sessions s LEFT JOIN events e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC, s.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Mode, &s.Steps, &s.StartedAt, &s.Events); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Events returns the events of one session in order.
func (j *Journal) Events(sessionID string) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT seq, session_id, kind, step, step_key, from_step, to_step, result_kind, payload, at
		FROM events WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			kind, key  string
			resultKind sql.NullString
			payload    sql.NullString
		)
		if err := rows.Scan(&e.Seq, &e.SessionID, &kind, &e.Step, &key, &e.From, &e.To, &resultKind, &payload, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = workflow.EventKind(kind)
		e.StepKey = workflow.StepKey(key)
		e.ResultKind = resultKind.String
		if payload.Valid {
			e.Payload = json.RawMessage(payload.String)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
