// Package audit persists a record of every tool invocation to a local sqlite
// database. The log is an accountability trail: audit failures are logged and
// swallowed, they never fail the tool that triggered them.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS tool_invocations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	tool        TEXT NOT NULL,
	args        TEXT NOT NULL,
	success     INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tool_invocations_session
	ON tool_invocations(session_id, created_at);
`

// Entry is one recorded tool invocation.
type Entry struct {
	SessionID string
	Tool      string
	Args      string
	Success   bool
	Error     string
	Duration  time.Duration
}

// Log stores tool invocations in sqlite. A nil *Log is valid and records
// nothing, so callers never branch on whether auditing is enabled.
type Log struct {
	db *sql.DB
}

// Open creates or opens the audit database at path, creating parent
// directories as needed.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// The driver serializes access through a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply audit schema: %w", err)
	}
	return &Log{db: db}, nil
}

// Record appends one invocation. Failures are logged, never returned.
func (l *Log) Record(e Entry) {
	if l == nil {
		return
	}
	_, err := l.db.Exec(
		`INSERT INTO tool_invocations (session_id, created_at, tool, args, success, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID,
		time.Now().UTC().Format(time.RFC3339Nano),
		e.Tool,
		e.Args,
		boolToInt(e.Success),
		e.Error,
		e.Duration.Milliseconds(),
	)
	if err != nil {
		logging.Warn("audit write failed", "tool", e.Tool, "error", err)
	}
}

// Count returns the number of recorded invocations for a session.
func (l *Log) Count(sessionID string) (int, error) {
	if l == nil {
		return 0, nil
	}
	var n int
	err := l.db.QueryRow(
		`SELECT COUNT(*) FROM tool_invocations WHERE session_id = ?`, sessionID,
	).Scan(&n)
	return n, err
}

// Close releases the database handle.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
