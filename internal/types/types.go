// Package types defines the clearity domain model: persisted entities, the
// typed decode boundary for generator output, and the reply payload shapes
// consumed by callers.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// FIELD TAXONOMY
// =============================================================================

// Field is a member of the closed vocabulary of life domains.
type Field struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// FieldVocabulary is the fixed taxonomy shown to the generator. Membership is
// advisory: out-of-vocabulary ids survive ingest unchanged.
var FieldVocabulary = []Field{
	{ID: "startups", Label: "Startups"},
	{ID: "career", Label: "Career"},
	{ID: "education", Label: "Education"},
	{ID: "health", Label: "Health"},
	{ID: "mental_health", Label: "Mental Health"},
	{ID: "relationships", Label: "Relationships"},
	{ID: "money", Label: "Money"},
	{ID: "family", Label: "Family"},
	{ID: "personal_growth", Label: "Personal Growth"},
}

// FieldLabel derives a display label from a field id. Known ids use the
// vocabulary label; unknown ids are prettified ("side_quests" -> "Side Quests").
func FieldLabel(id string) string {
	for _, f := range FieldVocabulary {
		if f.ID == id {
			return f.Label
		}
	}
	words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// =============================================================================
// PERSISTED ENTITIES
// =============================================================================

// Session is one conversation thread.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn of dialogue, append-only.
type Message struct {
	ID        string
	SessionID string
	Role      string // "user" or "assistant"
	Content   string
	Metadata  string // optional JSON blob
	CreatedAt time.Time
}

// MindMap is the living graph for a session. MapName is set once and never
// altered; only the central theme moves between turns.
type MindMap struct {
	ID           string
	SessionID    string
	MapName      string
	CentralTheme string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Project is a graph entity. Top-level entries have a nil ParentID; child
// nodes reference their project.
type Project struct {
	ID              string
	MindMapID       string
	ParentID        *string
	Label           string
	Fields          []string
	Emotion         string
	Clarity         string
	IssueSeverity   string
	Status          string
	ImportanceScore float64
	IsCoreIssue     bool
	IsVisible       bool
	CreatedAt       time.Time
}

// Connection is a typed relation between two persisted projects/nodes. Both
// endpoints are guaranteed to exist: unresolvable candidates are never stored.
type Connection struct {
	ID          string
	MindMapID   string
	Type        string // dependency | conflict | shared_root_cause
	FromID      string
	ToID        string
	Strength    string
	RootCauseID *string
	CreatedAt   time.Time
}

// Issue is a named obstacle derived from the graph.
type Issue struct {
	ID          string
	MindMapID   string
	IssueType   string
	Description string
	Severity    string
	ProjectIDs  []string
	CreatedAt   time.Time
}

// RootCause is an underlying driver of one or more issues.
type RootCause struct {
	ID               string
	MindMapID        string
	CauseID          string
	ShortExplanation string
	LinkedIssueIDs   []string
	CreatedAt        time.Time
}

// Plan holds ordered remediation steps for one issue.
type Plan struct {
	ID        string
	IssueID   string
	IssueType string
	Steps     []string
	CreatedAt time.Time
}

// Task is a concrete actionable unit. Status mutates independently of the
// otherwise append-only turn entities.
type Task struct {
	ID               string
	MindMapID        string
	Name             string
	RelatedIssueID   *string
	RelatedProjects  []string
	PriorityScore    float64
	KPI              string
	Subtasks         []string
	EstimatedTimeMin *int
	ContextHint      *string
	Status           string
	CreatedAt        time.Time
}

// TaskStatus values.
const (
	TaskStatusPending   = "pending"
	TaskStatusCompleted = "completed"
)

// Snapshot is an append-only point-in-time compression of session state.
type Snapshot struct {
	ID               string
	SessionID        string
	MindMapID        string
	Data             SnapshotData
	ProgressNotes    *string
	UnresolvedIssues []string
	CreatedAt        time.Time
	MapName          string // joined from mind_maps on candidate reads
}

// SnapshotData is the serialized graph excerpt stored with each snapshot and
// replayed to the generator on the next turn.
type SnapshotData struct {
	MapName      string               `json:"map_name"`
	CentralTheme string               `json:"central_theme"`
	Projects     []CandidateProject   `json:"projects,omitempty"`
	Issues       []CandidateIssue     `json:"issues,omitempty"`
	RootCauses   []CandidateRootCause `json:"root_causes,omitempty"`
}

// SnapshotCandidate is a resumption prompt entry: the newest snapshot per
// distinct mind map across a user's sessions.
type SnapshotCandidate struct {
	MindMapID        string    `json:"map_id"`
	MapName          string    `json:"map_name"`
	LastUpdated      time.Time `json:"last_updated"`
	Summary          string    `json:"summary"`
	UnresolvedIssues []string  `json:"unresolved_issues"`
}
