package store

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"github.com/openziti/modelctl/kernel/model"
	"github.com/pkg/errors"
)

var clusterStateKey = []byte("metadata/cluster_state")

// BadgerStore keeps the metadata document in badger. The version check and the write happen in one
// read-write transaction, so a concurrent writer that slipped in between is caught either by the
// version check or by badger's own conflict detection at commit.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Snapshot(ctx context.Context) (*model.ClusterState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var state *model.ClusterState
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		state, err = readClusterState(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *BadgerStore) CommitIfVersion(ctx context.Context, expected uint64, next *model.ClusterState) (CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return CommitResult{}, err
	}

	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	current, err := readClusterState(txn)
	if err != nil {
		return CommitResult{}, err
	}
	if current.Version != expected {
		return CommitResult{CurrentVersion: current.Version}, nil
	}

	committed := next.Clone()
	committed.Version = expected + 1
	data, err := json.Marshal(committed)
	if err != nil {
		return CommitResult{}, errors.Wrap(err, "failed to marshal metadata")
	}
	if err := txn.Set(clusterStateKey, data); err != nil {
		return CommitResult{}, errors.Wrap(err, "failed to stage metadata")
	}

	if err := txn.Commit(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			latest, err := s.Snapshot(ctx)
			if err != nil {
				return CommitResult{}, err
			}
			return CommitResult{CurrentVersion: latest.Version}, nil
		}
		return CommitResult{}, errors.Wrap(err, "failed to commit metadata")
	}
	return CommitResult{Committed: true, CurrentVersion: committed.Version}, nil
}

func readClusterState(txn *badger.Txn) (*model.ClusterState, error) {
	item, err := txn.Get(clusterStateKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.NewClusterState(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read metadata")
	}

	state := model.NewClusterState()
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, state)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse metadata")
	}
	return state.Clone(), nil
}
