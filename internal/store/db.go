// Package store persists sessions, messages, tool-call audit records,
// Telegram pairings, pairing codes, and the filesystem allow-list in an
// embedded SQLite database.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the shared database handle. One Store is opened per process
// and closed once at shutdown.
type Store struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		client_type TEXT NOT NULL,
		client_id TEXT,
		created_at INTEGER NOT NULL,
		last_active_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS tool_calls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		input TEXT NOT NULL,
		output TEXT,
		error TEXT,
		duration_ms INTEGER,
		created_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS telegram_users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id INTEGER NOT NULL UNIQUE,
		username TEXT,
		paired_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS pairing_codes (
		code_hash TEXT PRIMARY KEY,
		expires_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS allowed_paths (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		permissions TEXT NOT NULL DEFAULT 'read',
		added_at INTEGER NOT NULL,
		added_by TEXT NOT NULL DEFAULT 'cli'
	);`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at, id);`,
	`CREATE INDEX IF NOT EXISTS idx_tool_calls_session ON tool_calls(session_id, created_at);`,
}

// Open opens (creating if necessary) the database at path and applies the
// schema. WAL mode keeps concurrent adapter reads from blocking writes.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
