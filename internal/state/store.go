// Package state persists the developer's work sessions so the CLI and the
// MCP server agree on which ticket is active across processes.
package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Session is one work session on an Asana ticket.
type Session struct {
	ID          string  `json:"id"`
	TaskGID     string  `json:"task_gid"`
	TaskName    string  `json:"task_name"`
	FeatureCode string  `json:"feature_code,omitempty"`
	ProjectPath string  `json:"project_path"`
	StartedAt   string  `json:"started_at"`
	EndedAt     *string `json:"ended_at,omitempty"`
}

// Store persists work sessions in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the state database in the given data directory.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("state: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "state.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("state: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("state: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("state: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS work_sessions (
			id           TEXT PRIMARY KEY,
			task_gid     TEXT NOT NULL,
			task_name    TEXT NOT NULL,
			feature_code TEXT,
			project_path TEXT NOT NULL,
			started_at   TEXT NOT NULL DEFAULT (datetime('now')),
			ended_at     TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_ws_open    ON work_sessions(ended_at);
		CREATE INDEX IF NOT EXISTS idx_ws_started ON work_sessions(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Start opens a session on a task. Any session still open is closed first
// so at most one session is active at a time.
func (s *Store) Start(taskGID, taskName, featureCode, projectPath string) (*Session, error) {
	if taskGID == "" {
		return nil, fmt.Errorf("state: task gid required")
	}

	if _, err := s.db.Exec(
		`UPDATE work_sessions SET ended_at = datetime('now') WHERE ended_at IS NULL`,
	); err != nil {
		return nil, fmt.Errorf("state: closing open sessions: %w", err)
	}

	id := uuid.NewString()
	if _, err := s.db.Exec(
		`INSERT INTO work_sessions (id, task_gid, task_name, feature_code, project_path)
		 VALUES (?, ?, ?, ?, ?)`,
		id, taskGID, taskName, nullableString(featureCode), projectPath,
	); err != nil {
		return nil, fmt.Errorf("state: insert session: %w", err)
	}

	return s.get(id)
}

// Current returns the open session, or nil when none is active.
func (s *Store) Current() (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, task_gid, task_name, ifnull(feature_code, ''), project_path, started_at, ended_at
		 FROM work_sessions
		 WHERE ended_at IS NULL
		 ORDER BY datetime(started_at) DESC
		 LIMIT 1`,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sess, err
}

// End closes the open session and returns it. Returns nil when no session
// is active.
func (s *Store) End() (*Session, error) {
	current, err := s.Current()
	if err != nil || current == nil {
		return current, err
	}

	if _, err := s.db.Exec(
		`UPDATE work_sessions SET ended_at = datetime('now') WHERE id = ?`, current.ID,
	); err != nil {
		return nil, fmt.Errorf("state: closing session: %w", err)
	}
	return s.get(current.ID)
}

// Recent returns the latest sessions, newest first.
func (s *Store) Recent(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, task_gid, task_name, ifnull(feature_code, ''), project_path, started_at, ended_at
		 FROM work_sessions
		 ORDER BY datetime(started_at) DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(
			&sess.ID, &sess.TaskGID, &sess.TaskName, &sess.FeatureCode,
			&sess.ProjectPath, &sess.StartedAt, &sess.EndedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Store) get(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, task_gid, task_name, ifnull(feature_code, ''), project_path, started_at, ended_at
		 FROM work_sessions WHERE id = ?`, id,
	)
	return scanSession(row)
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	if err := row.Scan(
		&sess.ID, &sess.TaskGID, &sess.TaskName, &sess.FeatureCode,
		&sess.ProjectPath, &sess.StartedAt, &sess.EndedAt,
	); err != nil {
		return nil, err
	}
	return &sess, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
