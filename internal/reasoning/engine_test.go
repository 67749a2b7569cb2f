package reasoning

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"clearity/internal/decode"
	"clearity/internal/gateway"
	"clearity/internal/store"
	"clearity/internal/types"
)

type scriptedCompleter struct {
	responses []string
	calls     int
	lastReq   gateway.Request
}

func (f *scriptedCompleter) Complete(ctx context.Context, req gateway.Request) (string, error) {
	if f.calls >= len(f.responses) {
		return "", fmt.Errorf("unexpected completion call %d", f.calls)
	}
	f.lastReq = req
	resp := f.responses[f.calls]
	f.calls++
	return resp, nil
}

func (f *scriptedCompleter) CompleteJSON(ctx context.Context, req gateway.Request, out interface{}) error {
	text, err := f.Complete(ctx, req)
	if err != nil {
		return err
	}
	return decode.Unmarshal(text, req.MaxTokens, out)
}

func newTestStore(t *testing.T) *store.LocalStore {
	t.Helper()
	s, err := store.NewLocalStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedMap(t *testing.T, st *store.LocalStore) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.EnsureUser(ctx, "u1"))
	sess, err := st.CreateSession(ctx, "u1")
	require.NoError(t, err)
	m, err := st.CreateMindMap(ctx, sess.ID, "Map", "theme")
	require.NoError(t, err)
	return m.ID
}

func TestDeriveUsesDeepTier(t *testing.T) {
	fake := &scriptedCompleter{responses: []string{`{"issues": [], "tasks": []}`}}
	e := NewEngine(fake, nil)

	graph := &types.CandidateGraph{MapName: "Map"}
	_, err := e.Derive(context.Background(), graph, types.DefaultContext("m"), "m")
	require.NoError(t, err)
	require.Equal(t, gateway.TierDeep, fake.lastReq.Tier)
	require.Equal(t, 0.6, fake.lastReq.Temperature)
	require.Equal(t, 4000, fake.lastReq.MaxTokens)
}

func TestDeriveSortsTasksStable(t *testing.T) {
	fake := &scriptedCompleter{responses: []string{`{
		"issues": [],
		"tasks": [
			{"name": "low", "priority_score": 0.2},
			{"name": "tie-first", "priority_score": 0.8},
			{"name": "tie-second", "priority_score": 0.8},
			{"name": "top", "priority_score": 0.9}
		]
	}`}}
	e := NewEngine(fake, nil)

	analysis, err := e.Derive(context.Background(), &types.CandidateGraph{}, types.Context{}, "m")
	require.NoError(t, err)
	require.Equal(t, "top", analysis.Tasks[0].Name)
	// Equal scores keep generator order.
	require.Equal(t, "tie-first", analysis.Tasks[1].Name)
	require.Equal(t, "tie-second", analysis.Tasks[2].Name)
	require.Equal(t, "low", analysis.Tasks[3].Name)
}

func TestPersistDropsPlanForUnknownIssue(t *testing.T) {
	st := newTestStore(t)
	mapID := seedMap(t, st)
	ctx := context.Background()

	e := NewEngine(nil, st)
	analysis := &types.Analysis{
		Issues: []types.CandidateIssue{
			{ID: "focus_conflict", Description: "too many options", Severity: "high"},
		},
		Plans: []types.CandidatePlan{
			{IssueID: "focus_conflict", Steps: []string{"pick one"}},
			{IssueID: "nonexistent_issue", Steps: []string{"never stored"}},
		},
	}

	_, err := e.Persist(ctx, mapID, analysis)
	require.NoError(t, err)

	plans, err := st.Plans(ctx, mapID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, "focus_conflict", plans[0].IssueType)
}

func TestPersistFiltersRootCauseLinks(t *testing.T) {
	st := newTestStore(t)
	mapID := seedMap(t, st)
	ctx := context.Background()

	e := NewEngine(nil, st)
	analysis := &types.Analysis{
		Issues: []types.CandidateIssue{
			{ID: "avoidance", Description: "knows but avoids"},
		},
		RootCauses: []types.CandidateRootCause{
			{ID: "perfectionism", ShortExplanation: "nothing feels good enough", LinkedIssues: []string{"avoidance", "ghost_issue"}},
		},
	}

	issueIDs, err := e.Persist(ctx, mapID, analysis)
	require.NoError(t, err)

	causes, err := st.RootCauses(ctx, mapID)
	require.NoError(t, err)
	require.Len(t, causes, 1)
	require.Equal(t, []string{issueIDs["avoidance"]}, causes[0].LinkedIssueIDs)
}

func TestPersistCapsTasks(t *testing.T) {
	st := newTestStore(t)
	mapID := seedMap(t, st)
	ctx := context.Background()

	e := NewEngine(nil, st)
	analysis := &types.Analysis{
		Issues: []types.CandidateIssue{{ID: "energy_drain"}},
	}
	for i := 0; i < 8; i++ {
		analysis.Tasks = append(analysis.Tasks, types.CandidateTask{
			Name:          fmt.Sprintf("task %d", i),
			RelatedIssue:  "energy_drain",
			PriorityScore: 0.5,
		})
	}

	_, err := e.Persist(ctx, mapID, analysis)
	require.NoError(t, err)

	tasks, err := st.PendingTasks(ctx, mapID)
	require.NoError(t, err)
	require.Len(t, tasks, 5)
	for _, task := range tasks {
		require.NotNil(t, task.RelatedIssueID)
	}
}

func TestPersistUnknownRelatedIssueNil(t *testing.T) {
	st := newTestStore(t)
	mapID := seedMap(t, st)
	ctx := context.Background()

	e := NewEngine(nil, st)
	analysis := &types.Analysis{
		Tasks: []types.CandidateTask{
			{Name: "orphan task", RelatedIssue: "no_such_issue", PriorityScore: 0.7},
		},
	}

	_, err := e.Persist(ctx, mapID, analysis)
	require.NoError(t, err)

	tasks, err := st.PendingTasks(ctx, mapID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Nil(t, tasks[0].RelatedIssueID)
}
