package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/pkg/errors"
)

// FileStore keeps the metadata document as a JSON file. Version checks happen under a process
// local lock, so a FileStore must not be shared between processes.
type FileStore struct {
	Path string
	mu   sync.RWMutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Snapshot(_ context.Context) (*model.ClusterState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readUnsafe()
}

func (s *FileStore) CommitIfVersion(_ context.Context, expected uint64, next *model.ClusterState) (CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.readUnsafe()
	if err != nil {
		return CommitResult{}, err
	}
	if current.Version != expected {
		return CommitResult{CurrentVersion: current.Version}, nil
	}

	committed := next.Clone()
	committed.Version = expected + 1
	if err := s.writeUnsafe(committed); err != nil {
		return CommitResult{}, err
	}
	return CommitResult{Committed: true, CurrentVersion: committed.Version}, nil
}

func (s *FileStore) readUnsafe() (*model.ClusterState, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return model.NewClusterState(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read metadata")
	}

	state := model.NewClusterState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, errors.Wrap(err, "failed to parse metadata")
	}
	return state.Clone(), nil
}

func (s *FileStore) writeUnsafe(state *model.ClusterState) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal metadata")
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write metadata")
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return errors.Wrap(err, "failed to replace metadata")
	}
	return nil
}
