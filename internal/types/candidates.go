package types

// Generator-facing types. These are the typed decode boundary for model
// output: every field the pipeline reads is declared here, optional fields
// default at decode time, and ids are ephemeral strings chosen by the
// generator, valid only within a single response.

// Context is the compact emotional/intent record extracted from a message
// plus recent history. Every downstream stage consumes it.
type Context struct {
	Emotion          string `json:"emotion"`
	EmotionIntensity string `json:"emotion_intensity"` // low | medium | high
	UserIntent       string `json:"user_intent"`       // venting | understanding | deciding | acting | exploring
	Summary          string `json:"summary"`
	SessionStage     string `json:"session_stage"` // early | middle | established
}

// DefaultContext is the degraded-but-safe context used when extraction fails.
// The pipeline proceeds on it rather than aborting the turn.
func DefaultContext(message string) Context {
	summary := message
	if runes := []rune(summary); len(runes) > 200 {
		summary = string(runes[:200])
	}
	return Context{
		Emotion:          "unknown",
		EmotionIntensity: "medium",
		UserIntent:       "understanding",
		Summary:          summary,
		SessionStage:     "early",
	}
}

// CandidateGraph is the synthesized mind map before identity reconciliation.
type CandidateGraph struct {
	MapName      string                `json:"map_name"`
	CentralTheme string                `json:"central_theme"`
	Fields       []Field               `json:"fields"`
	Projects     []CandidateProject    `json:"projects"`
	Connections  []CandidateConnection `json:"connections"`
}

// CandidateProject is a top-level graph entity with ephemeral identity.
type CandidateProject struct {
	ID              string          `json:"id"`
	Label           string          `json:"label"`
	Fields          []string        `json:"fields"`
	Emotion         string          `json:"emotion"`
	Clarity         string          `json:"clarity"`
	IssueSeverity   string          `json:"issue_severity"`
	Status          string          `json:"status"`
	ImportanceScore float64         `json:"importance_score"`
	IsCoreIssue     bool            `json:"is_core_issue"`
	Nodes           []CandidateNode `json:"nodes"`
}

// CandidateNode is a child detail entity under a project.
type CandidateNode struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Emotion         string   `json:"emotion"`
	ImportanceScore float64  `json:"importance_score"`
	IsCoreIssue     bool     `json:"is_core_issue"`
	Fields          []string `json:"fields"`
}

// CandidateConnection references projects/nodes by their ephemeral ids.
type CandidateConnection struct {
	Type        string `json:"type"` // dependency | shared_root_cause | conflict
	FromID      string `json:"from_id"`
	ToID        string `json:"to_id"`
	Strength    string `json:"strength"`
	RootCauseID string `json:"root_cause_id"`
}

// Analysis is the derived-reasoning bundle from a single deep-tier call.
type Analysis struct {
	Issues         []CandidateIssue     `json:"issues"`
	RootCauses     []CandidateRootCause `json:"root_causes"`
	Plans          []CandidatePlan      `json:"plans"`
	Tasks          []CandidateTask      `json:"tasks"`
	SuggestedIssue string               `json:"suggested_issue_to_focus_now"`
	SuggestedStep  string               `json:"suggested_step_now"`
}

// CandidateIssue names an obstacle; ID is an issue-type slug like
// "focus_conflict", reused as the reference key by root causes and plans.
type CandidateIssue struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Projects    []string `json:"projects"`
	Severity    string   `json:"severity"`
}

// CandidateRootCause links back to issues by their slug ids.
type CandidateRootCause struct {
	ID               string   `json:"id"`
	ShortExplanation string   `json:"short_explanation"`
	LinkedIssues     []string `json:"linked_issues"`
}

// CandidatePlan is dropped at persistence time when its issue id is unknown.
type CandidatePlan struct {
	IssueID string   `json:"issue_id"`
	Steps   []string `json:"steps"`
}

// CandidateTask carries the action contract: verb-led name, binary-checkable
// KPI, small subtasks, and a priority score in [0,1].
type CandidateTask struct {
	Name             string   `json:"name"`
	RelatedIssue     string   `json:"related_issue"`
	RelatedProjects  []string `json:"related_projects"`
	PriorityScore    float64  `json:"priority_score"`
	KPI              string   `json:"kpi"`
	Subtasks         []string `json:"subtasks"`
	EstimatedTimeMin int      `json:"estimated_time_min"`
	ContextHint      string   `json:"context_hint"`
}
