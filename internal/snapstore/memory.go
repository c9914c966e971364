// File: internal/snapstore/memory.go
// Description: In-memory snapshot store. One shared version counter per
// store, advanced under a mutex; the store assumes a single active runtime
// per session.

package snapstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"domainlens/api/schemas"
)

// ErrSnapshotNotFound is returned when a stage has never been snapshotted.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// MemoryStore keeps snapshots in process memory. All snapshots are retained,
// Load returns the latest per stage.
type MemoryStore struct {
	mu      sync.Mutex
	version int64
	history map[string][]schemas.Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(map[string][]schemas.Snapshot)}
}

// Save persists a new snapshot for the named stage and returns its version.
func (m *MemoryStore) Save(_ context.Context, stage string, data, state json.RawMessage) (int64, error) {
	if stage == "" {
		return 0, fmt.Errorf("snapshot stage must not be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.version++
	snap := schemas.Snapshot{
		Stage:     stage,
		Version:   m.version,
		Data:      append(json.RawMessage(nil), data...),
		State:     append(json.RawMessage(nil), state...),
		CreatedAt: time.Now().UTC(),
	}
	m.history[stage] = append(m.history[stage], snap)
	return snap.Version, nil
}

// Load returns the latest snapshot for the named stage.
func (m *MemoryStore) Load(_ context.Context, stage string) (schemas.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps := m.history[stage]
	if len(snaps) == 0 {
		return schemas.Snapshot{}, fmt.Errorf("stage %q: %w", stage, ErrSnapshotNotFound)
	}
	return snaps[len(snaps)-1], nil
}
