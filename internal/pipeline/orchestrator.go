// Package pipeline runs the per-message processing flow: context extraction,
// graph synthesis, reasoning, reply composition, and snapshotting. One
// Orchestrator handles one turn at a time per session; stages after context
// extraction fail the whole turn.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"clearity/internal/gateway"
	"clearity/internal/logging"
	"clearity/internal/memory"
	"clearity/internal/mindmap"
	"clearity/internal/reasoning"
	"clearity/internal/store"
	"clearity/internal/types"
)

// Orchestrator wires the pipeline stages over a shared store and gateway.
type Orchestrator struct {
	llm    gateway.Completer
	store  *store.LocalStore
	synth  *mindmap.Synthesizer
	recon  *mindmap.Reconciler
	engine *reasoning.Engine
	memory *memory.Memory
}

// New creates an orchestrator with all stages wired.
func New(llm gateway.Completer, st *store.LocalStore) *Orchestrator {
	return &Orchestrator{
		llm:    llm,
		store:  st,
		synth:  mindmap.NewSynthesizer(llm),
		recon:  mindmap.NewReconciler(st),
		engine: reasoning.NewEngine(llm, st),
		memory: memory.New(st),
	}
}

// Memory exposes the snapshot service for session resumption.
func (o *Orchestrator) Memory() *memory.Memory {
	return o.memory
}

// ProcessMessage runs one full turn and returns the reply payload assembled
// from freshly-read persisted state.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, userID, message string) (*types.ReplyPayload, error) {
	logging.Pipeline("Processing message for session %s", sessionID)

	if _, err := o.store.AddMessage(ctx, sessionID, "user", message, ""); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}
	if err := o.store.TouchSession(ctx, sessionID); err != nil {
		return nil, err
	}

	// Context extraction and snapshot retrieval are independent.
	var cctx types.Context
	var snapshot *types.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cctx = o.extractContext(gctx, sessionID, message)
		return nil
	})
	g.Go(func() error {
		var err error
		snapshot, err = o.memory.Latest(gctx, sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logging.Pipeline("Context: emotion=%s intent=%s", cctx.Emotion, cctx.UserIntent)

	var prior *types.SnapshotData
	var existingMapID string
	if snapshot != nil {
		prior = &snapshot.Data
		existingMapID = snapshot.MindMapID
	}

	graph, err := o.synth.Synthesize(ctx, message, cctx, prior)
	if err != nil {
		return nil, err
	}

	mapID, _, err := o.recon.Persist(ctx, sessionID, graph, existingMapID)
	if err != nil {
		return nil, err
	}

	analysis, err := o.engine.Derive(ctx, graph, cctx, message)
	if err != nil {
		return nil, err
	}
	if _, err := o.engine.Persist(ctx, mapID, analysis); err != nil {
		return nil, err
	}

	reply, err := o.composeReply(ctx, message, cctx, graph, analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to compose reply: %w", err)
	}
	if _, err := o.store.AddMessage(ctx, sessionID, "assistant", reply, ""); err != nil {
		return nil, fmt.Errorf("failed to persist assistant message: %w", err)
	}

	unresolved := make([]string, 0, len(analysis.Issues))
	for _, issue := range analysis.Issues {
		unresolved = append(unresolved, issue.ID)
	}
	if _, err := o.memory.StoreSnapshot(ctx, types.Snapshot{
		SessionID: sessionID,
		MindMapID: mapID,
		Data: types.SnapshotData{
			MapName:      graph.MapName,
			CentralTheme: graph.CentralTheme,
			Projects:     graph.Projects,
			Issues:       analysis.Issues,
			RootCauses:   analysis.RootCauses,
		},
		UnresolvedIssues: unresolved,
	}); err != nil {
		return nil, err
	}

	payload, err := o.assembleReply(ctx, sessionID, mapID, reply, cctx, analysis)
	if err != nil {
		return nil, err
	}
	logging.Pipeline("Message processed for session %s", sessionID)
	return payload, nil
}

// assembleReply reads the turn's persisted state back and shapes the payload.
// Reading fresh rather than reusing in-memory values keeps the payload's ids
// consistent with storage.
func (o *Orchestrator) assembleReply(ctx context.Context, sessionID, mapID, reply string, cctx types.Context, analysis *types.Analysis) (*types.ReplyPayload, error) {
	mapView, err := o.buildMindMapView(ctx, mapID)
	if err != nil {
		return nil, err
	}
	taskViews, err := o.buildTaskViews(ctx, mapID)
	if err != nil {
		return nil, err
	}
	if len(taskViews) > suggestedTaskCount {
		taskViews = taskViews[:suggestedTaskCount]
	}
	issues, causes, plans, err := o.buildAnalysisViews(ctx, mapID)
	if err != nil {
		return nil, err
	}
	snapView, err := o.buildSnapshotView(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &types.ReplyPayload{
		SessionID:      sessionID,
		Message:        reply,
		MindMap:        mapView,
		SuggestedTasks: taskViews,
		Metadata: types.ReplyMetadata{
			Emotion:          cctx.Emotion,
			EmotionIntensity: cctx.EmotionIntensity,
			SuggestedFocus:   analysis.SuggestedIssue,
		},
		Issues:         issues,
		RootCauses:     causes,
		Plans:          plans,
		LatestSnapshot: snapView,
	}, nil
}
