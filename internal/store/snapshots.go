package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"clearity/internal/logging"
	"clearity/internal/types"
)

// AddSnapshot appends a point-in-time compression of the session state.
func (s *LocalStore) AddSnapshot(ctx context.Context, snap types.Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snap.Data)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot data: %w", err)
	}
	id := newID()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, session_id, mind_map_id, snapshot_data, progress_notes, unresolved_issues, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, snap.SessionID, nullable(snap.MindMapID), string(data),
		snap.ProgressNotes, marshalList(snap.UnresolvedIssues), nowUTC())
	if err != nil {
		return "", fmt.Errorf("failed to add snapshot: %w", err)
	}
	logging.Memory("Stored snapshot %s for session %s", id, snap.SessionID)
	return id, nil
}

// LatestSnapshot returns the session's newest snapshot, or nil when the
// session has none.
func (s *LocalStore) LatestSnapshot(ctx context.Context, sessionID string) (*types.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.session_id, s.mind_map_id, s.snapshot_data, s.progress_notes, s.unresolved_issues, s.created_at,
		       COALESCE(m.map_name, '')
		FROM snapshots s
		LEFT JOIN mind_maps m ON m.id = s.mind_map_id
		WHERE s.session_id = ?
		ORDER BY s.created_at DESC, s.rowid DESC
		LIMIT 1`,
		sessionID)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return snap, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*types.Snapshot, error) {
	var snap types.Snapshot
	var mapID, data, notes, unresolved sql.NullString
	err := row.Scan(&snap.ID, &snap.SessionID, &mapID, &data, &notes, &unresolved, &snap.CreatedAt, &snap.MapName)
	if err != nil {
		return nil, err
	}
	snap.MindMapID = mapID.String
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &snap.Data); err != nil {
			logging.MemoryDebug("Failed to parse snapshot data for %s: %v", snap.ID, err)
		}
	}
	if notes.Valid {
		snap.ProgressNotes = &notes.String
	}
	snap.UnresolvedIssues = unmarshalList(unresolved)
	return &snap, nil
}

// SnapshotCandidates returns the newest snapshot per distinct mind map across
// all of the user's sessions, most recently updated first. These seed the
// resumption prompt.
func (s *LocalStore) SnapshotCandidates(ctx context.Context, userID string) ([]types.SnapshotCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.mind_map_id, COALESCE(m.map_name, ''), s.created_at, s.snapshot_data, COALESCE(s.progress_notes, ''), s.unresolved_issues
		FROM snapshots s
		JOIN sessions sess ON sess.id = s.session_id
		LEFT JOIN mind_maps m ON m.id = s.mind_map_id
		WHERE sess.user_id = ? AND s.mind_map_id IS NOT NULL
		ORDER BY s.created_at DESC, s.rowid DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot candidates: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var candidates []types.SnapshotCandidate
	for rows.Next() {
		var c types.SnapshotCandidate
		var data, unresolved sql.NullString
		var notes string
		if err := rows.Scan(&c.MindMapID, &c.MapName, &c.LastUpdated, &data, &notes, &unresolved); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot candidate: %w", err)
		}
		if seen[c.MindMapID] {
			continue
		}
		seen[c.MindMapID] = true
		c.Summary = candidateSummary(data, notes)
		c.UnresolvedIssues = unmarshalList(unresolved)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// candidateSummary prefers the snapshot's central theme; progress notes only
// stand in when the serialized data carries no theme.
func candidateSummary(data sql.NullString, notes string) string {
	if data.Valid && data.String != "" {
		var sd types.SnapshotData
		if err := json.Unmarshal([]byte(data.String), &sd); err != nil {
			logging.MemoryDebug("Failed to parse snapshot data for candidate summary: %v", err)
		} else if sd.CentralTheme != "" {
			return sd.CentralTheme
		}
	}
	return notes
}
