package store

import (
	"context"
	"database/sql"
	"fmt"

	"clearity/internal/types"
)

// AddMessage appends one dialogue turn to the session.
func (s *LocalStore) AddMessage(ctx context.Context, sessionID, role, content, metadata string) (*types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &types.Message{
		ID:        newID(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: nowUTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, session_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.ID, msg.SessionID, msg.Role, msg.Content, nullable(msg.Metadata), msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	return msg, nil
}

// RecentMessages returns up to limit messages for the session in
// chronological order.
func (s *LocalStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Newest-first window, then reversed so prompts read oldest-first.
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, metadata, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []types.Message
	for rows.Next() {
		var msg types.Message
		var metadata sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &metadata, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Metadata = metadata.String
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
