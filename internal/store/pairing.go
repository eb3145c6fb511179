package store

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertPairingCode stores a hashed pairing code, purging expired codes
// first so the table never accumulates garbage.
func (s *Store) InsertPairingCode(codeHash string, expiresAt int64) error {
	if _, err := s.DeleteExpiredPairingCodes(); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"INSERT INTO pairing_codes (code_hash, expires_at) VALUES (?, ?)",
		codeHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert pairing code: %w", err)
	}
	return nil
}

// ValidateAndConsumePairingCode reports whether the hash matches a live code
// and removes it so a code can only ever be used once. Expired codes are
// purged up front and never validate.
func (s *Store) ValidateAndConsumePairingCode(codeHash string) (bool, error) {
	if _, err := s.DeleteExpiredPairingCodes(); err != nil {
		return false, err
	}
	var found string
	err := s.db.QueryRow(
		"SELECT code_hash FROM pairing_codes WHERE code_hash = ?", codeHash,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up pairing code: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM pairing_codes WHERE code_hash = ?", codeHash); err != nil {
		return false, fmt.Errorf("consume pairing code: %w", err)
	}
	return true, nil
}

// DeleteExpiredPairingCodes removes codes past their expiry. Returns rows deleted.
func (s *Store) DeleteExpiredPairingCodes() (int64, error) {
	res, err := s.db.Exec(
		"DELETE FROM pairing_codes WHERE expires_at < ?", time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete expired pairing codes: %w", err)
	}
	return res.RowsAffected()
}
