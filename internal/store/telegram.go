package store

import (
	"database/sql"
	"fmt"
)

// InsertTelegramUser records a paired Telegram account.
func (s *Store) InsertTelegramUser(u *TelegramUser) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO telegram_users (telegram_id, username, paired_at) VALUES (?, ?, ?)",
		u.TelegramID, nullString(u.Username), u.PairedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert telegram user: %w", err)
	}
	return res.LastInsertId()
}

// FindTelegramUser returns the pairing for a Telegram id, or nil.
func (s *Store) FindTelegramUser(telegramID int64) (*TelegramUser, error) {
	row := s.db.QueryRow(
		"SELECT id, telegram_id, username, paired_at FROM telegram_users WHERE telegram_id = ?",
		telegramID,
	)
	var u TelegramUser
	var username sql.NullString
	err := row.Scan(&u.ID, &u.TelegramID, &username, &u.PairedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find telegram user: %w", err)
	}
	u.Username = username.String
	return &u, nil
}

// TelegramUserAuthorized reports whether the Telegram id has completed pairing.
func (s *Store) TelegramUserAuthorized(telegramID int64) (bool, error) {
	u, err := s.FindTelegramUser(telegramID)
	if err != nil {
		return false, err
	}
	return u != nil, nil
}

// DeleteTelegramUser removes a pairing. Reports whether a row was deleted.
func (s *Store) DeleteTelegramUser(telegramID int64) (bool, error) {
	res, err := s.db.Exec("DELETE FROM telegram_users WHERE telegram_id = ?", telegramID)
	if err != nil {
		return false, fmt.Errorf("delete telegram user: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
