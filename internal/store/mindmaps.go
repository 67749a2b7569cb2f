package store

import (
	"context"
	"database/sql"
	"fmt"

	"clearity/internal/logging"
	"clearity/internal/types"
)

// Read-path caps. The graph the caller sees is always the ranked top slice,
// never the full table.
const (
	maxVisibleProjects = 5
	maxNodesPerProject = 3
	maxConnections     = 7
)

// CreateMindMap creates the session's graph container. The name is fixed for
// the life of the map.
func (s *LocalStore) CreateMindMap(ctx context.Context, sessionID, mapName, centralTheme string) (*types.MindMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowUTC()
	m := &types.MindMap{
		ID:           newID(),
		SessionID:    sessionID,
		MapName:      mapName,
		CentralTheme: centralTheme,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO mind_maps (id, session_id, map_name, central_theme, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		m.ID, m.SessionID, m.MapName, m.CentralTheme, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create mind map: %w", err)
	}
	logging.MindMap("Created mind map %s (%q) for session %s", m.ID, mapName, sessionID)
	return m, nil
}

// GetMindMap loads one map by id.
func (s *LocalStore) GetMindMap(ctx context.Context, mapID string) (*types.MindMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanMindMap(s.db.QueryRowContext(ctx,
		"SELECT id, session_id, map_name, central_theme, created_at, updated_at FROM mind_maps WHERE id = ?",
		mapID))
}

// SessionMindMap returns the session's map, or nil when none exists yet.
func (s *LocalStore) SessionMindMap(ctx context.Context, sessionID string) (*types.MindMap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, err := s.scanMindMap(s.db.QueryRowContext(ctx, `
		SELECT id, session_id, map_name, central_theme, created_at, updated_at
		FROM mind_maps
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`,
		sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *LocalStore) scanMindMap(row *sql.Row) (*types.MindMap, error) {
	var m types.MindMap
	var theme sql.NullString
	err := row.Scan(&m.ID, &m.SessionID, &m.MapName, &theme, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan mind map: %w", err)
	}
	m.CentralTheme = theme.String
	return &m, nil
}

// UpdateMindMapTheme rewrites the central theme. The map name never changes
// after creation, so it is deliberately absent here.
func (s *LocalStore) UpdateMindMapTheme(ctx context.Context, mapID, centralTheme string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE mind_maps SET central_theme = ?, updated_at = ? WHERE id = ?",
		centralTheme, nowUTC(), mapID)
	if err != nil {
		return fmt.Errorf("failed to update mind map theme: %w", err)
	}
	return nil
}

// AddProject inserts a project (parentID nil) or child node (parentID set)
// and returns its persisted id.
func (s *LocalStore) AddProject(ctx context.Context, p types.Project) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, mind_map_id, parent_id, label, fields, emotion, clarity, issue_severity, status, importance_score, is_core_issue, is_visible, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.MindMapID, p.ParentID, p.Label, marshalList(p.Fields),
		p.Emotion, p.Clarity, p.IssueSeverity, p.Status,
		p.ImportanceScore, p.IsCoreIssue, p.IsVisible, nowUTC())
	if err != nil {
		return "", fmt.Errorf("failed to add project: %w", err)
	}
	return id, nil
}

// VisibleProjects returns the map's top-level projects ranked by importance,
// capped at the display limit.
func (s *LocalStore) VisibleProjects(ctx context.Context, mapID string) ([]types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mind_map_id, parent_id, label, fields, emotion, clarity, issue_severity, status, importance_score, is_core_issue, is_visible, created_at
		FROM projects
		WHERE mind_map_id = ? AND parent_id IS NULL AND is_visible = TRUE
		ORDER BY importance_score DESC, created_at DESC, rowid DESC
		LIMIT ?`,
		mapID, maxVisibleProjects)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

// ProjectNodes returns a project's child nodes, core issues first, capped at
// the display limit.
func (s *LocalStore) ProjectNodes(ctx context.Context, projectID string) ([]types.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mind_map_id, parent_id, label, fields, emotion, clarity, issue_severity, status, importance_score, is_core_issue, is_visible, created_at
		FROM projects
		WHERE parent_id = ?
		ORDER BY is_core_issue DESC, importance_score DESC, created_at DESC, rowid DESC
		LIMIT ?`,
		projectID, maxNodesPerProject)
	if err != nil {
		return nil, fmt.Errorf("failed to query project nodes: %w", err)
	}
	defer rows.Close()
	return scanProjects(rows)
}

func scanProjects(rows *sql.Rows) ([]types.Project, error) {
	var projects []types.Project
	for rows.Next() {
		var p types.Project
		var parentID, fields, emotion, clarity, severity, status sql.NullString
		if err := rows.Scan(&p.ID, &p.MindMapID, &parentID, &p.Label, &fields,
			&emotion, &clarity, &severity, &status,
			&p.ImportanceScore, &p.IsCoreIssue, &p.IsVisible, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if parentID.Valid {
			p.ParentID = &parentID.String
		}
		p.Fields = unmarshalList(fields)
		p.Emotion = emotion.String
		p.Clarity = clarity.String
		p.IssueSeverity = severity.String
		p.Status = status.String
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// AddConnection persists a typed relation between two stored entities.
func (s *LocalStore) AddConnection(ctx context.Context, c types.Connection) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO connections (id, mind_map_id, connection_type, from_id, to_id, strength, root_cause_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.MindMapID, c.Type, c.FromID, c.ToID, c.Strength, c.RootCauseID, nowUTC())
	if err != nil {
		return "", fmt.Errorf("failed to add connection: %w", err)
	}
	return id, nil
}

// Connections returns the map's newest connections, capped at the display
// limit.
func (s *LocalStore) Connections(ctx context.Context, mapID string) ([]types.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mind_map_id, connection_type, from_id, to_id, strength, root_cause_id, created_at
		FROM connections
		WHERE mind_map_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		mapID, maxConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []types.Connection
	for rows.Next() {
		var c types.Connection
		var strength, rootCauseID sql.NullString
		if err := rows.Scan(&c.ID, &c.MindMapID, &c.Type, &c.FromID, &c.ToID, &strength, &rootCauseID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		c.Strength = strength.String
		if rootCauseID.Valid {
			c.RootCauseID = &rootCauseID.String
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}
