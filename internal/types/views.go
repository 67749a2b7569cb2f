package types

import "time"

// Reply payload shapes. These are assembled from freshly-read persisted state
// at the end of each turn and are the authoritative contract with callers.

// ReplyPayload is the full per-turn result.
type ReplyPayload struct {
	SessionID      string          `json:"session_id"`
	Message        string          `json:"message"`
	MindMap        *MindMapView    `json:"mind_map"`
	SuggestedTasks []TaskView      `json:"suggested_tasks"`
	Metadata       ReplyMetadata   `json:"metadata"`
	Issues         []IssueView     `json:"issues"`
	RootCauses     []RootCauseView `json:"root_causes"`
	Plans          []PlanView      `json:"plans"`
	LatestSnapshot *SnapshotView   `json:"latest_snapshot"`
}

// ReplyMetadata surfaces the turn's emotional read and suggested focus.
type ReplyMetadata struct {
	Emotion          string `json:"emotion"`
	EmotionIntensity string `json:"emotion_intensity"`
	SuggestedFocus   string `json:"suggested_focus"`
}

// MindMapView holds at most 5 visible projects, each with at most 3 nodes.
type MindMapView struct {
	MapName      string           `json:"map_name"`
	CentralTheme string           `json:"central_theme"`
	Fields       []Field          `json:"fields"`
	Projects     []ProjectView    `json:"projects"`
	Connections  []ConnectionView `json:"connections"`
}

// ProjectView is a visible top-level project with its ranked nodes.
type ProjectView struct {
	ID            string     `json:"id"`
	Label         string     `json:"label"`
	Fields        []string   `json:"fields"`
	Emotion       string     `json:"emotion"`
	Clarity       string     `json:"clarity"`
	IssueSeverity string     `json:"issue_severity"`
	Status        string     `json:"status"`
	Nodes         []NodeView `json:"nodes"`
}

// NodeView is a visible child node.
type NodeView struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Emotion         string   `json:"emotion"`
	ImportanceScore float64  `json:"importance_score"`
	IsCoreIssue     bool     `json:"is_core_issue"`
	ParentID        *string  `json:"parent_id"`
	Fields          []string `json:"fields"`
}

// ConnectionView carries persisted ids only.
type ConnectionView struct {
	Type        string  `json:"type"`
	FromID      string  `json:"from_id"`
	ToID        string  `json:"to_id"`
	Strength    string  `json:"strength"`
	RootCauseID *string `json:"root_cause_id"`
}

// TaskView is the full task shape.
type TaskView struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	RelatedIssue     *string  `json:"related_issue"`
	RelatedProjects  []string `json:"related_projects"`
	PriorityScore    float64  `json:"priority_score"`
	KPI              string   `json:"kpi"`
	Subtasks         []string `json:"subtasks"`
	EstimatedTimeMin *int     `json:"estimated_time_min"`
	ContextHint      *string  `json:"context_hint"`
	Status           string   `json:"status"`
}

// IssueView uses the issue-type slug as its id, matching the generator's
// reference vocabulary rather than the storage row id.
type IssueView struct {
	ID              string   `json:"id"`
	Description     string   `json:"description"`
	Severity        string   `json:"severity"`
	RelatedProjects []string `json:"related_projects"`
}

// RootCauseView links issues by persisted row id.
type RootCauseView struct {
	ID            string   `json:"id"`
	Explanation   string   `json:"explanation"`
	RelatedIssues []string `json:"related_issues"`
}

// PlanView carries its resolved issue's type slug and a derived goal.
type PlanView struct {
	ID      string   `json:"id"`
	IssueID string   `json:"issue_id"`
	Goal    string   `json:"goal"`
	Steps   []string `json:"steps"`
}

// SnapshotView summarizes the latest snapshot for continuation.
type SnapshotView struct {
	MapName          string    `json:"map_name"`
	LastUpdated      time.Time `json:"last_updated"`
	Summary          *string   `json:"summary"`
	UnresolvedIssues []string  `json:"unresolved_issues"`
}
