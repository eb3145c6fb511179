// Package history exposes the bounded conversational window the agents use
// as LLM context.
package history

import (
	"time"

	"github.com/user/valet/internal/store"
)

// DefaultLimit bounds the history window when callers pass no limit.
const DefaultLimit = 10

// Turn is one prior user or assistant message.
type Turn struct {
	Role    string
	Content string
}

// Service reads and writes session history. It holds no cache: every call
// reflects the store's state at call time.
type Service struct {
	store *store.Store
}

// NewService creates a history Service over st.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// Recent returns up to limit of the most recent user/assistant turns for the
// session, oldest first. limit <= 0 selects DefaultLimit.
func (s *Service) Recent(sessionID string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	msgs, err := s.store.RecentMessages(sessionID, limit)
	if err != nil {
		return nil, err
	}
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{Role: m.Role, Content: m.Content})
	}
	return turns, nil
}

// Append inserts a new history entry at the given timestamp (Unix millis).
// at <= 0 uses the current time.
func (s *Service) Append(sessionID, role, content string, at int64) error {
	if at <= 0 {
		at = time.Now().UnixMilli()
	}
	_, err := s.store.InsertMessage(&store.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: at,
	})
	return err
}
