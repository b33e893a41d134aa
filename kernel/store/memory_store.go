package store

import (
	"context"
	"sync"

	"github.com/openziti/modelctl/kernel/model"
)

// MemoryStore is an in-memory MetadataStore, used for tests and single-process runs.
type MemoryStore struct {
	mu    sync.RWMutex
	state *model.ClusterState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: model.NewClusterState()}
}

func (s *MemoryStore) Snapshot(_ context.Context) (*model.ClusterState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Return a copy to prevent concurrent modification
	return s.state.Clone(), nil
}

func (s *MemoryStore) CommitIfVersion(_ context.Context, expected uint64, next *model.ClusterState) (CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Version != expected {
		return CommitResult{CurrentVersion: s.state.Version}, nil
	}

	committed := next.Clone()
	committed.Version = expected + 1
	s.state = committed
	return CommitResult{Committed: true, CurrentVersion: committed.Version}, nil
}
