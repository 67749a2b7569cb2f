package pipeline

import (
	"context"
	"fmt"

	"clearity/internal/types"
)

// suggestedTaskCount is how many of the pending tasks surface as suggestions.
const suggestedTaskCount = 2

// buildMindMapView assembles the capped graph view from persisted state.
func (o *Orchestrator) buildMindMapView(ctx context.Context, mapID string) (*types.MindMapView, error) {
	m, err := o.store.GetMindMap(ctx, mapID)
	if err != nil {
		return nil, err
	}

	projects, err := o.store.VisibleProjects(ctx, mapID)
	if err != nil {
		return nil, err
	}

	var projectViews []types.ProjectView
	var fields []types.Field
	seenFields := make(map[string]bool)

	for _, p := range projects {
		nodes, err := o.store.ProjectNodes(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		var nodeViews []types.NodeView
		for _, n := range nodes {
			nodeViews = append(nodeViews, types.NodeView{
				ID:              n.ID,
				Label:           n.Label,
				Emotion:         n.Emotion,
				ImportanceScore: n.ImportanceScore,
				IsCoreIssue:     n.IsCoreIssue,
				ParentID:        n.ParentID,
				Fields:          n.Fields,
			})
		}
		projectViews = append(projectViews, types.ProjectView{
			ID:            p.ID,
			Label:         p.Label,
			Fields:        p.Fields,
			Emotion:       p.Emotion,
			Clarity:       p.Clarity,
			IssueSeverity: p.IssueSeverity,
			Status:        p.Status,
			Nodes:         nodeViews,
		})
		for _, fid := range p.Fields {
			if !seenFields[fid] {
				seenFields[fid] = true
				fields = append(fields, types.Field{ID: fid, Label: types.FieldLabel(fid)})
			}
		}
	}

	conns, err := o.store.Connections(ctx, mapID)
	if err != nil {
		return nil, err
	}
	var connViews []types.ConnectionView
	for _, c := range conns {
		connViews = append(connViews, types.ConnectionView{
			Type:        c.Type,
			FromID:      c.FromID,
			ToID:        c.ToID,
			Strength:    c.Strength,
			RootCauseID: c.RootCauseID,
		})
	}

	return &types.MindMapView{
		MapName:      m.MapName,
		CentralTheme: m.CentralTheme,
		Fields:       fields,
		Projects:     projectViews,
		Connections:  connViews,
	}, nil
}

func (o *Orchestrator) buildTaskViews(ctx context.Context, mapID string) ([]types.TaskView, error) {
	tasks, err := o.store.PendingTasks(ctx, mapID)
	if err != nil {
		return nil, err
	}
	views := make([]types.TaskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, types.TaskView{
			ID:               t.ID,
			Name:             t.Name,
			RelatedIssue:     t.RelatedIssueID,
			RelatedProjects:  t.RelatedProjects,
			PriorityScore:    t.PriorityScore,
			KPI:              t.KPI,
			Subtasks:         t.Subtasks,
			EstimatedTimeMin: t.EstimatedTimeMin,
			ContextHint:      t.ContextHint,
			Status:           t.Status,
		})
	}
	return views, nil
}

func (o *Orchestrator) buildAnalysisViews(ctx context.Context, mapID string) ([]types.IssueView, []types.RootCauseView, []types.PlanView, error) {
	issues, err := o.store.Issues(ctx, mapID)
	if err != nil {
		return nil, nil, nil, err
	}
	issueViews := make([]types.IssueView, 0, len(issues))
	for _, i := range issues {
		issueViews = append(issueViews, types.IssueView{
			ID:              i.IssueType,
			Description:     i.Description,
			Severity:        i.Severity,
			RelatedProjects: i.ProjectIDs,
		})
	}

	causes, err := o.store.RootCauses(ctx, mapID)
	if err != nil {
		return nil, nil, nil, err
	}
	causeViews := make([]types.RootCauseView, 0, len(causes))
	for _, rc := range causes {
		causeViews = append(causeViews, types.RootCauseView{
			ID:            rc.CauseID,
			Explanation:   rc.ShortExplanation,
			RelatedIssues: rc.LinkedIssueIDs,
		})
	}

	plans, err := o.store.Plans(ctx, mapID)
	if err != nil {
		return nil, nil, nil, err
	}
	planViews := make([]types.PlanView, 0, len(plans))
	for _, p := range plans {
		planViews = append(planViews, types.PlanView{
			ID:      p.ID,
			IssueID: p.IssueType,
			Goal:    fmt.Sprintf("Resolve %s", p.IssueType),
			Steps:   p.Steps,
		})
	}
	return issueViews, causeViews, planViews, nil
}

func (o *Orchestrator) buildSnapshotView(ctx context.Context, sessionID string) (*types.SnapshotView, error) {
	snap, err := o.memory.Latest(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, nil
	}
	mapName := snap.MapName
	if mapName == "" {
		mapName = snap.Data.MapName
	}
	return &types.SnapshotView{
		MapName:          mapName,
		LastUpdated:      snap.CreatedAt,
		Summary:          snap.ProgressNotes,
		UnresolvedIssues: snap.UnresolvedIssues,
	}, nil
}
