package store

import (
	"context"
	"database/sql"
	"fmt"

	"clearity/internal/logging"
	"clearity/internal/types"
)

// Read-path caps for derived entities.
const (
	maxIssues     = 10
	maxRootCauses = 5
	maxPlans      = 5
	maxTasks      = 5
)

// AddIssue persists one derived issue and returns its row id.
func (s *LocalStore) AddIssue(ctx context.Context, i types.Issue) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO issues (id, mind_map_id, issue_type, description, severity, project_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, i.MindMapID, i.IssueType, i.Description, i.Severity, marshalList(i.ProjectIDs), nowUTC())
	if err != nil {
		return "", fmt.Errorf("failed to add issue: %w", err)
	}
	return id, nil
}

// Issues returns the map's newest issues.
func (s *LocalStore) Issues(ctx context.Context, mapID string) ([]types.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mind_map_id, issue_type, description, severity, project_ids, created_at
		FROM issues
		WHERE mind_map_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		mapID, maxIssues)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	var issues []types.Issue
	for rows.Next() {
		var i types.Issue
		var description, severity, projectIDs sql.NullString
		if err := rows.Scan(&i.ID, &i.MindMapID, &i.IssueType, &description, &severity, &projectIDs, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		i.Description = description.String
		i.Severity = severity.String
		i.ProjectIDs = unmarshalList(projectIDs)
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// AddRootCause persists one derived root cause and returns its row id.
func (s *LocalStore) AddRootCause(ctx context.Context, rc types.RootCause) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO root_causes (id, mind_map_id, cause_id, short_explanation, linked_issue_ids, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, rc.MindMapID, rc.CauseID, rc.ShortExplanation, marshalList(rc.LinkedIssueIDs), nowUTC())
	if err != nil {
		return "", fmt.Errorf("failed to add root cause: %w", err)
	}
	return id, nil
}

// RootCauses returns the map's newest root causes.
func (s *LocalStore) RootCauses(ctx context.Context, mapID string) ([]types.RootCause, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mind_map_id, cause_id, short_explanation, linked_issue_ids, created_at
		FROM root_causes
		WHERE mind_map_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		mapID, maxRootCauses)
	if err != nil {
		return nil, fmt.Errorf("failed to query root causes: %w", err)
	}
	defer rows.Close()

	var causes []types.RootCause
	for rows.Next() {
		var rc types.RootCause
		var explanation, linked sql.NullString
		if err := rows.Scan(&rc.ID, &rc.MindMapID, &rc.CauseID, &explanation, &linked, &rc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan root cause: %w", err)
		}
		rc.ShortExplanation = explanation.String
		rc.LinkedIssueIDs = unmarshalList(linked)
		causes = append(causes, rc)
	}
	return causes, rows.Err()
}

// AddPlan persists one remediation plan and returns its row id. The issue id
// must reference a persisted issue row.
func (s *LocalStore) AddPlan(ctx context.Context, issueID string, steps []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := newID()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO plans (id, issue_id, steps, created_at) VALUES (?, ?, ?, ?)",
		id, issueID, marshalList(steps), nowUTC())
	if err != nil {
		return "", fmt.Errorf("failed to add plan: %w", err)
	}
	return id, nil
}

// Plans returns the newest plans for the map, each joined with its issue's
// type slug.
func (s *LocalStore) Plans(ctx context.Context, mapID string) ([]types.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.issue_id, i.issue_type, p.steps, p.created_at
		FROM plans p
		JOIN issues i ON i.id = p.issue_id
		WHERE i.mind_map_id = ?
		ORDER BY p.created_at DESC, p.rowid DESC
		LIMIT ?`,
		mapID, maxPlans)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []types.Plan
	for rows.Next() {
		var p types.Plan
		var steps sql.NullString
		if err := rows.Scan(&p.ID, &p.IssueID, &p.IssueType, &steps, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		p.Steps = unmarshalList(steps)
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// AddTask persists one derived task and returns its row id.
func (s *LocalStore) AddTask(ctx context.Context, t types.Task) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Status == "" {
		t.Status = types.TaskStatusPending
	}
	id := newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, mind_map_id, name, related_issue_id, related_project_ids, priority_score, kpi, subtasks, estimated_time_min, context_hint, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.MindMapID, t.Name, t.RelatedIssueID, marshalList(t.RelatedProjects),
		t.PriorityScore, t.KPI, marshalList(t.Subtasks),
		t.EstimatedTimeMin, t.ContextHint, t.Status, nowUTC())
	if err != nil {
		return "", fmt.Errorf("failed to add task: %w", err)
	}
	return id, nil
}

// PendingTasks returns the map's open tasks, highest priority first.
func (s *LocalStore) PendingTasks(ctx context.Context, mapID string) ([]types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, mind_map_id, name, related_issue_id, related_project_ids, priority_score, kpi, subtasks, estimated_time_min, context_hint, status, created_at
		FROM tasks
		WHERE mind_map_id = ? AND status = ?
		ORDER BY priority_score DESC, created_at DESC, rowid DESC
		LIMIT ?`,
		mapID, types.TaskStatusPending, maxTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		var t types.Task
		var issueID, relatedProjects, kpi, subtasks, contextHint sql.NullString
		var estMin sql.NullInt64
		if err := rows.Scan(&t.ID, &t.MindMapID, &t.Name, &issueID, &relatedProjects,
			&t.PriorityScore, &kpi, &subtasks, &estMin, &contextHint, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if issueID.Valid {
			t.RelatedIssueID = &issueID.String
		}
		t.RelatedProjects = unmarshalList(relatedProjects)
		t.KPI = kpi.String
		t.Subtasks = unmarshalList(subtasks)
		if estMin.Valid {
			v := int(estMin.Int64)
			t.EstimatedTimeMin = &v
		}
		if contextHint.Valid {
			t.ContextHint = &contextHint.String
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteTask marks a task done. Returns an error when the id is unknown.
func (s *LocalStore) CompleteTask(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET status = ? WHERE id = ?",
		types.TaskStatusCompleted, taskID)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task not found: %s", taskID)
	}
	logging.Store("Marked task %s completed", taskID)
	return nil
}
