package store

import (
	"database/sql"
	"fmt"
)

// InsertToolCall appends one audit record. Nil Output/Error/DurationMS are
// stored as NULL (a not-found tool has no duration, a failed one no output).
func (s *Store) InsertToolCall(tc *ToolCall) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO tool_calls (session_id, tool_name, input, output, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tc.SessionID, tc.ToolName, tc.Input,
		nullStringPtr(tc.Output), nullStringPtr(tc.Error), nullInt64Ptr(tc.DurationMS),
		tc.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert tool call: %w", err)
	}
	return res.LastInsertId()
}

// ToolCallsBySession returns the session's audit trail in insertion order.
func (s *Store) ToolCallsBySession(sessionID string) ([]ToolCall, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, tool_name, input, output, error, duration_ms, created_at
		 FROM tool_calls WHERE session_id = ? ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query tool calls: %w", err)
	}
	defer rows.Close()

	var calls []ToolCall
	for rows.Next() {
		var tc ToolCall
		var output, errStr sql.NullString
		var duration sql.NullInt64
		if err := rows.Scan(&tc.ID, &tc.SessionID, &tc.ToolName, &tc.Input,
			&output, &errStr, &duration, &tc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}
		if output.Valid {
			tc.Output = &output.String
		}
		if errStr.Valid {
			tc.Error = &errStr.String
		}
		if duration.Valid {
			tc.DurationMS = &duration.Int64
		}
		calls = append(calls, tc)
	}
	return calls, rows.Err()
}

func nullStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
