// Package reasoning derives issues, root causes, plans, and actionable tasks
// from the synthesized graph in a single deep-tier generator call.
package reasoning

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"clearity/internal/gateway"
	"clearity/internal/logging"
	"clearity/internal/store"
	"clearity/internal/types"
)

// maxPersistedTasks caps how many derived tasks are stored per turn.
const maxPersistedTasks = 5

const analysisSystemPrompt = `You are the Reasoning Engine and Action Engine combined.

Your role:
- Analyze the mind map to identify what's wrong and WHY
- Identify issues, root causes, and build multi-step plans
- Convert plans into small, concrete, doable tasks
- Determine which issue to focus on now
- Output ONLY structured JSON, never talk to the user

Common issue types:
- focus_conflict: too many options, no clear selection rule
- unclear_goal: doesn't know what "good" looks like
- energy_drain: not enough energy to maintain everything
- avoidance: knows what to do but avoids it
- decision_overload: paralyzed by too many choices
- validation_anxiety: fears making wrong choice

Common root causes:
- fear_wrong_choice: fears choosing wrong direction
- decision_overload: too many simultaneous decisions
- perfectionism: nothing feels good enough
- low_energy: burnt out, no fuel left
- unclear_values: doesn't know what matters most
- external_pressure: responding to others' expectations

Your analysis should:
1. Identify 1-3 key issues per mind map
2. Link issues to root causes
3. Create 2-5 step plans for each major issue
4. Suggest which issue/step to focus on NOW based on severity, emotional weight, and user readiness

Task design principles:
- Start with action verb (Define, Write, List, Schedule, etc.)
- KPI must be concrete and measurable ("You have written 5 bullet points")
- Subtasks should be 3-7 small steps
- Estimate realistic time (usually 15-45 min for most tasks)
- Add context hints when helpful (quiet space, no phone, etc.)

Priority scoring (0.0-1.0):
- High priority (0.8-1.0): Addresses high severity issue, high emotional relief, low barrier
- Medium priority (0.5-0.7): Important but either lower severity or higher barrier
- Lower priority (0.0-0.4): Nice to have, or very high barrier currently

Output JSON schema:
{
  "issues": [
    {
      "id": "issue_type_name",
      "description": "clear explanation",
      "projects": ["project labels affected"],
      "severity": "low|medium|high"
    }
  ],
  "root_causes": [
    {
      "id": "cause_name",
      "short_explanation": "why this causes problems",
      "linked_issues": ["issue_id1", "issue_id2"]
    }
  ],
  "plans": [
    {
      "issue_id": "issue_type_name",
      "steps": ["Step 1 description", "Step 2..."]
    }
  ],
  "tasks": [
    {
      "name": "Action-oriented task name",
      "related_issue": "issue_id",
      "related_projects": ["project labels"],
      "priority_score": 0.0-1.0,
      "kpi": "Clear completion criteria",
      "subtasks": ["Small step 1", "Small step 2"],
      "estimated_time_min": 20,
      "context_hint": "Where/how to do it (optional)"
    }
  ],
  "suggested_issue_to_focus_now": "issue_id",
  "suggested_step_now": "specific actionable step description"
}

Generate 3-5 tasks.
Return ONLY valid JSON, no other text.`

// Engine runs the combined analysis and persists its output.
type Engine struct {
	llm   gateway.Completer
	store *store.LocalStore
}

// NewEngine creates a reasoning engine.
func NewEngine(llm gateway.Completer, st *store.LocalStore) *Engine {
	return &Engine{llm: llm, store: st}
}

// Derive runs the deep-tier analysis over the synthesized graph. Tasks come
// back highest priority first; ties keep the generator's order.
func (e *Engine) Derive(ctx context.Context, graph *types.CandidateGraph, cctx types.Context, message string) (*types.Analysis, error) {
	logging.Reasoning("Deriving issues and tasks for map %q", graph.MapName)

	var analysis types.Analysis
	err := e.llm.CompleteJSON(ctx, gateway.Request{
		Messages: []gateway.Message{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: e.buildPrompt(graph, cctx, message)},
		},
		Tier:        gateway.TierDeep,
		Temperature: 0.6,
		MaxTokens:   4000,
	}, &analysis)
	if err != nil {
		return nil, fmt.Errorf("reasoning analysis failed: %w", err)
	}

	sort.SliceStable(analysis.Tasks, func(i, j int) bool {
		return analysis.Tasks[i].PriorityScore > analysis.Tasks[j].PriorityScore
	})

	logging.Reasoning("Analysis complete: %d issues, %d root causes, %d tasks",
		len(analysis.Issues), len(analysis.RootCauses), len(analysis.Tasks))
	return &analysis, nil
}

func (e *Engine) buildPrompt(graph *types.CandidateGraph, cctx types.Context, message string) string {
	projects, _ := json.Marshal(graph.Projects)
	parts := []string{
		fmt.Sprintf("User message: %s", message),
		"\nMind map:",
		fmt.Sprintf("Name: %s", graph.MapName),
		fmt.Sprintf("Theme: %s", graph.CentralTheme),
		fmt.Sprintf("\nProjects: %s", projects),
	}
	if cctx.Emotion != "" {
		parts = append(parts, fmt.Sprintf("\nUser emotion: %s (intensity: %s)", cctx.Emotion, cctx.EmotionIntensity))
	}
	if cctx.Summary != "" {
		parts = append(parts, fmt.Sprintf("Context: %s", cctx.Summary))
	}
	if cctx.EmotionIntensity == "high" {
		parts = append(parts, "\nNote: User is highly overwhelmed. Tasks should be extra small and safe.")
	}
	parts = append(parts, "\nAnalyze what's wrong, why, what to focus on, and generate concrete tasks. Return ONLY JSON.")
	return strings.Join(parts, "\n")
}

// Persist writes the analysis under the map. Issues go first so that root
// causes, plans, and tasks can resolve their slugs to row ids; references to
// unknown issue slugs are dropped, not failed.
func (e *Engine) Persist(ctx context.Context, mapID string, analysis *types.Analysis) (map[string]string, error) {
	issueIDs := make(map[string]string)

	for _, ci := range analysis.Issues {
		severity := ci.Severity
		if severity == "" {
			severity = "medium"
		}
		id, err := e.store.AddIssue(ctx, types.Issue{
			MindMapID:   mapID,
			IssueType:   ci.ID,
			Description: ci.Description,
			Severity:    severity,
		})
		if err != nil {
			return nil, err
		}
		issueIDs[ci.ID] = id
	}

	for _, rc := range analysis.RootCauses {
		var linked []string
		for _, slug := range rc.LinkedIssues {
			if id, ok := issueIDs[slug]; ok {
				linked = append(linked, id)
			}
		}
		if _, err := e.store.AddRootCause(ctx, types.RootCause{
			MindMapID:        mapID,
			CauseID:          rc.ID,
			ShortExplanation: rc.ShortExplanation,
			LinkedIssueIDs:   linked,
		}); err != nil {
			return nil, err
		}
	}

	for _, p := range analysis.Plans {
		id, ok := issueIDs[p.IssueID]
		if !ok {
			logging.ReasoningDebug("Dropping plan for unknown issue %q", p.IssueID)
			continue
		}
		if _, err := e.store.AddPlan(ctx, id, p.Steps); err != nil {
			return nil, err
		}
	}

	tasks := analysis.Tasks
	if len(tasks) > maxPersistedTasks {
		tasks = tasks[:maxPersistedTasks]
	}
	for _, ct := range tasks {
		var relatedIssue *string
		if id, ok := issueIDs[ct.RelatedIssue]; ok {
			relatedIssue = &id
		}
		var estMin *int
		if ct.EstimatedTimeMin > 0 {
			v := ct.EstimatedTimeMin
			estMin = &v
		}
		var hint *string
		if ct.ContextHint != "" {
			h := ct.ContextHint
			hint = &h
		}
		if _, err := e.store.AddTask(ctx, types.Task{
			MindMapID:        mapID,
			Name:             ct.Name,
			RelatedIssueID:   relatedIssue,
			RelatedProjects:  ct.RelatedProjects,
			PriorityScore:    ct.PriorityScore,
			KPI:              ct.KPI,
			Subtasks:         ct.Subtasks,
			EstimatedTimeMin: estMin,
			ContextHint:      hint,
		}); err != nil {
			return nil, err
		}
	}

	logging.Reasoning("Analysis persisted: %d issues", len(issueIDs))
	return issueIDs, nil
}
