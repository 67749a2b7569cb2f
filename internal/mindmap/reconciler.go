package mindmap

import (
	"context"
	"fmt"

	"clearity/internal/logging"
	"clearity/internal/store"
	"clearity/internal/types"
)

// Reconciler writes a candidate graph to the store, translating the
// generator's ephemeral ids into persisted row ids as it goes.
type Reconciler struct {
	store *store.LocalStore
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(st *store.LocalStore) *Reconciler {
	return &Reconciler{store: st}
}

// Persist writes the graph under the session. When existingMapID is set the
// map row is reused and only its theme updated; otherwise a new map is
// created. Returns the map id and the ephemeral-to-persisted id mapping built
// during the write.
func (r *Reconciler) Persist(ctx context.Context, sessionID string, graph *types.CandidateGraph, existingMapID string) (string, map[string]string, error) {
	var mapID string
	if existingMapID != "" {
		mapID = existingMapID
		if err := r.store.UpdateMindMapTheme(ctx, mapID, graph.CentralTheme); err != nil {
			return "", nil, err
		}
	} else {
		m, err := r.store.CreateMindMap(ctx, sessionID, graph.MapName, graph.CentralTheme)
		if err != nil {
			return "", nil, err
		}
		mapID = m.ID
	}

	idMap := make(map[string]string)

	for _, cp := range graph.Projects {
		projectID, err := r.store.AddProject(ctx, types.Project{
			MindMapID:       mapID,
			Label:           cp.Label,
			Fields:          cp.Fields,
			Emotion:         cp.Emotion,
			Clarity:         cp.Clarity,
			IssueSeverity:   cp.IssueSeverity,
			Status:          cp.Status,
			ImportanceScore: cp.ImportanceScore,
			IsCoreIssue:     cp.IsCoreIssue,
			IsVisible:       true,
		})
		if err != nil {
			return "", nil, fmt.Errorf("failed to persist project %q: %w", cp.Label, err)
		}
		if cp.ID != "" {
			idMap[cp.ID] = projectID
		}

		for _, cn := range cp.Nodes {
			fields := cn.Fields
			if len(fields) == 0 {
				fields = cp.Fields
			}
			nodeID, err := r.store.AddProject(ctx, types.Project{
				MindMapID:       mapID,
				ParentID:        &projectID,
				Label:           cn.Label,
				Fields:          fields,
				Emotion:         cn.Emotion,
				ImportanceScore: cn.ImportanceScore,
				IsCoreIssue:     cn.IsCoreIssue,
				IsVisible:       true,
			})
			if err != nil {
				return "", nil, fmt.Errorf("failed to persist node %q: %w", cn.Label, err)
			}
			if cn.ID != "" {
				idMap[cn.ID] = nodeID
			}
		}
	}

	for _, cc := range graph.Connections {
		fromID, fromOK := idMap[cc.FromID]
		toID, toOK := idMap[cc.ToID]
		// Connections may only reference entities persisted this turn.
		if !fromOK || !toOK {
			logging.Get(logging.CategoryMindMap).Warnf(
				"Skipping connection: from_id=%s or to_id=%s not resolved", cc.FromID, cc.ToID)
			continue
		}
		var rootCauseID *string
		if cc.RootCauseID != "" {
			if resolved, ok := idMap[cc.RootCauseID]; ok {
				rootCauseID = &resolved
			}
		}
		if _, err := r.store.AddConnection(ctx, types.Connection{
			MindMapID:   mapID,
			Type:        cc.Type,
			FromID:      fromID,
			ToID:        toID,
			Strength:    cc.Strength,
			RootCauseID: rootCauseID,
		}); err != nil {
			return "", nil, fmt.Errorf("failed to persist connection: %w", err)
		}
	}

	logging.MindMap("Mind map %s persisted: %d entities mapped", mapID, len(idMap))
	return mapID, idMap, nil
}
