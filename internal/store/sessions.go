package store

import (
	"context"
	"database/sql"
	"fmt"

	"clearity/internal/logging"
	"clearity/internal/types"
)

// EnsureUser inserts the user row if it does not exist.
func (s *LocalStore) EnsureUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO users (id, created_at) VALUES (?, ?)",
		userID, nowUTC())
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// CreateSession opens a new conversation thread for the user.
func (s *LocalStore) CreateSession(ctx context.Context, userID string) (*types.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowUTC()
	sess := &types.Session{
		ID:        newID(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)",
		sess.ID, sess.UserID, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	logging.Store("Created session %s for user %s", sess.ID, userID)
	return sess, nil
}

// GetSession loads one session by id.
func (s *LocalStore) GetSession(ctx context.Context, sessionID string) (*types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sess types.Session
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, created_at, updated_at FROM sessions WHERE id = ?",
		sessionID).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &sess, nil
}

// TouchSession bumps the session's updated_at to now.
func (s *LocalStore) TouchSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?",
		nowUTC(), sessionID)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// ListSessions returns the user's sessions, most recently active first.
func (s *LocalStore) ListSessions(ctx context.Context, userID string) ([]types.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, created_at, updated_at FROM sessions WHERE user_id = ? ORDER BY updated_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []types.Session
	for rows.Next() {
		var sess types.Session
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
