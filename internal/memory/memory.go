// Package memory is the long-term recall layer: append-only snapshots of
// session state and the resumption candidates derived from them.
package memory

import (
	"context"

	"clearity/internal/logging"
	"clearity/internal/store"
	"clearity/internal/types"
)

// Memory wraps snapshot persistence and retrieval.
type Memory struct {
	store *store.LocalStore
}

// New creates a memory service over the given store.
func New(st *store.LocalStore) *Memory {
	return &Memory{store: st}
}

// StoreSnapshot appends the turn's state compression.
func (m *Memory) StoreSnapshot(ctx context.Context, snap types.Snapshot) (string, error) {
	return m.store.AddSnapshot(ctx, snap)
}

// Latest returns the session's newest snapshot, nil when none exists.
func (m *Memory) Latest(ctx context.Context, sessionID string) (*types.Snapshot, error) {
	snap, err := m.store.LatestSnapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		logging.MemoryDebug("No previous snapshot for session %s", sessionID)
	}
	return snap, nil
}

// Candidates returns the newest snapshot per mind map across the user's
// sessions, for the resumption prompt. limit caps the result; 0 means all.
func (m *Memory) Candidates(ctx context.Context, userID string, limit int) ([]types.SnapshotCandidate, error) {
	candidates, err := m.store.SnapshotCandidates(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	logging.Memory("Found %d snapshot candidates for user %s", len(candidates), userID)
	return candidates, nil
}
