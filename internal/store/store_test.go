package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"clearity/internal/types"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedSession(t *testing.T, s *LocalStore) *types.Session {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.EnsureUser(ctx, "user-1"))
	sess, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	return sess
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := seedSession(t, s)

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)
	require.Equal(t, "user-1", got.UserID)

	_, err = s.GetSession(ctx, "missing")
	require.Error(t, err)

	sessions, err := s.ListSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestRecentMessagesWindowAndOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := seedSession(t, s)

	for i := 0; i < 20; i++ {
		_, err := s.AddMessage(ctx, sess.ID, "user", fmt.Sprintf("message %d", i), "")
		require.NoError(t, err)
	}

	msgs, err := s.RecentMessages(ctx, sess.ID, 15)
	require.NoError(t, err)
	require.Len(t, msgs, 15)
	// Oldest-first within the newest-15 window.
	require.Equal(t, "message 5", msgs[0].Content)
	require.Equal(t, "message 19", msgs[14].Content)
}

func TestMindMapNameImmutable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := seedSession(t, s)

	m, err := s.CreateMindMap(ctx, sess.ID, "Startup vs Career", "initial theme")
	require.NoError(t, err)

	require.NoError(t, s.UpdateMindMapTheme(ctx, m.ID, "revised theme"))

	got, err := s.GetMindMap(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "Startup vs Career", got.MapName)
	require.Equal(t, "revised theme", got.CentralTheme)
}

func TestSessionMindMapNilWhenAbsent(t *testing.T) {
	s := newTestStore(t)
	sess := seedSession(t, s)

	m, err := s.SessionMindMap(context.Background(), sess.ID)
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestVisibleProjectsCapAndRank(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := seedSession(t, s)
	m, err := s.CreateMindMap(ctx, sess.ID, "Map", "theme")
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		_, err := s.AddProject(ctx, types.Project{
			MindMapID:       m.ID,
			Label:           fmt.Sprintf("project %d", i),
			ImportanceScore: float64(i) / 10,
			IsVisible:       true,
		})
		require.NoError(t, err)
	}

	projects, err := s.VisibleProjects(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, projects, 5)
	require.Equal(t, "project 7", projects[0].Label)
	require.Equal(t, "project 3", projects[4].Label)
}

func TestProjectNodesCapCoreFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := seedSession(t, s)
	m, err := s.CreateMindMap(ctx, sess.ID, "Map", "theme")
	require.NoError(t, err)

	parentID, err := s.AddProject(ctx, types.Project{MindMapID: m.ID, Label: "parent", IsVisible: true})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.AddProject(ctx, types.Project{
			MindMapID:       m.ID,
			ParentID:        &parentID,
			Label:           fmt.Sprintf("node %d", i),
			ImportanceScore: float64(i) / 10,
			IsCoreIssue:     i == 1,
			IsVisible:       true,
		})
		require.NoError(t, err)
	}

	nodes, err := s.ProjectNodes(ctx, parentID)
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	require.Equal(t, "node 1", nodes[0].Label)
	require.True(t, nodes[0].IsCoreIssue)
}

func TestConnectionsNewestCapped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := seedSession(t, s)
	m, err := s.CreateMindMap(ctx, sess.ID, "Map", "theme")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := s.AddConnection(ctx, types.Connection{
			MindMapID: m.ID,
			Type:      "dependency",
			FromID:    fmt.Sprintf("from-%d", i),
			ToID:      fmt.Sprintf("to-%d", i),
			Strength:  "strong",
		})
		require.NoError(t, err)
	}

	conns, err := s.Connections(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, conns, 7)
	require.Equal(t, "from-9", conns[0].FromID)
}

func TestPlansJoinIssueType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := seedSession(t, s)
	m, err := s.CreateMindMap(ctx, sess.ID, "Map", "theme")
	require.NoError(t, err)

	issueID, err := s.AddIssue(ctx, types.Issue{
		MindMapID:   m.ID,
		IssueType:   "focus_conflict",
		Description: "two projects competing for the same hours",
		Severity:    "high",
	})
	require.NoError(t, err)

	_, err = s.AddPlan(ctx, issueID, []string{"pick one", "timebox the other"})
	require.NoError(t, err)

	plans, err := s.Plans(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	require.Equal(t, "focus_conflict", plans[0].IssueType)
	require.Equal(t, []string{"pick one", "timebox the other"}, plans[0].Steps)
}

func TestPendingTasksOrderAndStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := seedSession(t, s)
	m, err := s.CreateMindMap(ctx, sess.ID, "Map", "theme")
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 7; i++ {
		id, err := s.AddTask(ctx, types.Task{
			MindMapID:     m.ID,
			Name:          fmt.Sprintf("task %d", i),
			PriorityScore: float64(i) / 10,
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	tasks, err := s.PendingTasks(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 5)
	require.Equal(t, "task 6", tasks[0].Name)

	require.NoError(t, s.CompleteTask(ctx, ids[6]))
	tasks, err = s.PendingTasks(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, "task 5", tasks[0].Name)

	require.Error(t, s.CompleteTask(ctx, "missing"))
}

func TestLatestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sess := seedSession(t, s)
	m, err := s.CreateMindMap(ctx, sess.ID, "Map", "theme")
	require.NoError(t, err)

	none, err := s.LatestSnapshot(ctx, sess.ID)
	require.NoError(t, err)
	require.Nil(t, none)

	notes := "making progress on the pivot decision"
	_, err = s.AddSnapshot(ctx, types.Snapshot{
		SessionID: sess.ID,
		MindMapID: m.ID,
		Data: types.SnapshotData{
			MapName:      "Map",
			CentralTheme: "theme",
			Projects:     []types.CandidateProject{{ID: "p1", Label: "startup"}},
		},
		ProgressNotes:    &notes,
		UnresolvedIssues: []string{"focus_conflict"},
	})
	require.NoError(t, err)

	snap, err := s.LatestSnapshot(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Equal(t, "Map", snap.MapName)
	require.Equal(t, "Map", snap.Data.MapName)
	require.Len(t, snap.Data.Projects, 1)
	require.Equal(t, []string{"focus_conflict"}, snap.UnresolvedIssues)
	require.NotNil(t, snap.ProgressNotes)
	require.Equal(t, notes, *snap.ProgressNotes)
}

func TestSnapshotCandidatesNewestPerMap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureUser(ctx, "user-1"))

	sessA, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	sessB, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)

	mapA, err := s.CreateMindMap(ctx, sessA.ID, "Map A", "")
	require.NoError(t, err)
	mapB, err := s.CreateMindMap(ctx, sessB.ID, "Map B", "")
	require.NoError(t, err)

	older := "first pass"
	newer := "second pass"
	_, err = s.AddSnapshot(ctx, types.Snapshot{SessionID: sessA.ID, MindMapID: mapA.ID, ProgressNotes: &older})
	require.NoError(t, err)
	_, err = s.AddSnapshot(ctx, types.Snapshot{SessionID: sessA.ID, MindMapID: mapA.ID, ProgressNotes: &newer})
	require.NoError(t, err)
	_, err = s.AddSnapshot(ctx, types.Snapshot{SessionID: sessB.ID, MindMapID: mapB.ID})
	require.NoError(t, err)

	candidates, err := s.SnapshotCandidates(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	byMap := make(map[string]types.SnapshotCandidate)
	for _, c := range candidates {
		byMap[c.MindMapID] = c
	}
	require.Equal(t, "second pass", byMap[mapA.ID].Summary)
	require.Equal(t, "Map B", byMap[mapB.ID].MapName)
}

func TestSnapshotCandidateSummaryFromCentralTheme(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureUser(ctx, "user-1"))
	sess, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	m, err := s.CreateMindMap(ctx, sess.ID, "Map", "choosing a direction")
	require.NoError(t, err)

	// Shaped like a pipeline turn: serialized data, no progress notes.
	_, err = s.AddSnapshot(ctx, types.Snapshot{
		SessionID: sess.ID,
		MindMapID: m.ID,
		Data: types.SnapshotData{
			MapName:      "Map",
			CentralTheme: "choosing a direction",
		},
		UnresolvedIssues: []string{"focus_conflict"},
	})
	require.NoError(t, err)

	candidates, err := s.SnapshotCandidates(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "choosing a direction", candidates[0].Summary)
}

func TestSnapshotCandidateSummaryPrefersTheme(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureUser(ctx, "user-1"))
	sess, err := s.CreateSession(ctx, "user-1")
	require.NoError(t, err)
	m, err := s.CreateMindMap(ctx, sess.ID, "Map", "theme")
	require.NoError(t, err)

	notes := "side notes"
	_, err = s.AddSnapshot(ctx, types.Snapshot{
		SessionID:     sess.ID,
		MindMapID:     m.ID,
		Data:          types.SnapshotData{MapName: "Map", CentralTheme: "the real theme"},
		ProgressNotes: &notes,
	})
	require.NoError(t, err)

	candidates, err := s.SnapshotCandidates(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "the real theme", candidates[0].Summary)
}
