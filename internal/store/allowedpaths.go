package store

import (
	"fmt"
	"strings"
	"time"
)

// InsertAllowedPath allow-lists a directory. Fails on duplicates (UNIQUE).
func (s *Store) InsertAllowedPath(path, permissions string) error {
	_, err := s.db.Exec(
		"INSERT INTO allowed_paths (path, permissions, added_at, added_by) VALUES (?, ?, ?, ?)",
		path, permissions, time.Now().UnixMilli(), "cli",
	)
	if err != nil {
		return fmt.Errorf("insert allowed path: %w", err)
	}
	return nil
}

// AllowedPaths returns all allow-listed roots in insertion order.
func (s *Store) AllowedPaths() ([]AllowedPath, error) {
	rows, err := s.db.Query(
		"SELECT id, path, permissions, added_at, added_by FROM allowed_paths ORDER BY added_at, id")
	if err != nil {
		return nil, fmt.Errorf("query allowed paths: %w", err)
	}
	defer rows.Close()

	var paths []AllowedPath
	for rows.Next() {
		var p AllowedPath
		if err := rows.Scan(&p.ID, &p.Path, &p.Permissions, &p.AddedAt, &p.AddedBy); err != nil {
			return nil, fmt.Errorf("scan allowed path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteAllowedPath removes a root. Reports whether a row was deleted.
func (s *Store) DeleteAllowedPath(path string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM allowed_paths WHERE path = ?", path)
	if err != nil {
		return false, fmt.Errorf("delete allowed path: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// IsDuplicatePathErr reports whether err is the UNIQUE violation raised when
// a path is allow-listed twice.
func IsDuplicatePathErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
