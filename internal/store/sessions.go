package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertSession creates a new session row.
func (s *Store) InsertSession(sess *Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, client_type, client_id, created_at, last_active_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.ClientType, nullString(sess.ClientID), sess.CreatedAt, sess.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// FindSession returns the session with the given id, or nil if absent.
func (s *Store) FindSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		"SELECT id, client_type, client_id, created_at, last_active_at FROM sessions WHERE id = ?", id)
	var sess Session
	var clientID sql.NullString
	err := row.Scan(&sess.ID, &sess.ClientType, &clientID, &sess.CreatedAt, &sess.LastActiveAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	sess.ClientID = clientID.String
	return &sess, nil
}

// TouchSession updates the session's last-active timestamp.
func (s *Store) TouchSession(id string, at int64) error {
	_, err := s.db.Exec("UPDATE sessions SET last_active_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// EnsureSession creates the session on first contact, otherwise bumps its
// last-active timestamp.
func (s *Store) EnsureSession(id, clientType, clientID string) error {
	existing, err := s.FindSession(id)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	if existing == nil {
		return s.InsertSession(&Session{
			ID:           id,
			ClientType:   clientType,
			ClientID:     clientID,
			CreatedAt:    now,
			LastActiveAt: now,
		})
	}
	return s.TouchSession(id, now)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
