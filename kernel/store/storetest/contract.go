// Package storetest holds the behaviour every MetadataStore implementation must share.
package storetest

import (
	"context"
	"sync"
	"testing"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/openziti/modelctl/kernel/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) store.MetadataStore

func RunContract(t *testing.T, newStore Factory) {
	t.Run("EmptySnapshot", func(t *testing.T) { testEmptySnapshot(t, newStore(t)) })
	t.Run("CommitIncrementsVersion", func(t *testing.T) { testCommitIncrementsVersion(t, newStore(t)) })
	t.Run("StaleCommitRejected", func(t *testing.T) { testStaleCommitRejected(t, newStore(t)) })
	t.Run("SnapshotIsIsolated", func(t *testing.T) { testSnapshotIsIsolated(t, newStore(t)) })
	t.Run("ConcurrentUpdatesSerialize", func(t *testing.T) { testConcurrentUpdatesSerialize(t, newStore(t)) })
}

func testEmptySnapshot(t *testing.T, s store.MetadataStore) {
	state, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), state.Version)
	assert.Empty(t, state.Aliases)
	assert.Empty(t, state.Pipelines)
	assert.Empty(t, state.Allocations)
}

func testCommitIncrementsVersion(t *testing.T, s store.MetadataStore) {
	ctx := context.Background()
	state, err := s.Snapshot(ctx)
	require.NoError(t, err)

	state.Aliases["prod"] = model.AliasEntry{ModelId: "m1"}
	state.Pipelines["p1"] = model.PipelineConfig{Id: "p1", Config: map[string]interface{}{
		"processors": []interface{}{},
	}}
	state.Allocations["m1"] = &model.Allocation{ModelId: "m1", State: model.AllocationStarted, Nodes: []string{"n1"}}

	result, err := s.CommitIfVersion(ctx, state.Version, state)
	require.NoError(t, err)
	assert.True(t, result.Committed)
	assert.Equal(t, uint64(1), result.CurrentVersion)

	committed, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), committed.Version)
	assert.Equal(t, "m1", committed.Aliases["prod"].ModelId)
	assert.Contains(t, committed.Pipelines, "p1")
	assert.True(t, committed.Allocations.IsAllocated("m1"))
}

func testStaleCommitRejected(t *testing.T, s store.MetadataStore) {
	ctx := context.Background()
	stale, err := s.Snapshot(ctx)
	require.NoError(t, err)

	winner := stale.Clone()
	winner.Aliases["winner"] = model.AliasEntry{ModelId: "m1"}
	result, err := s.CommitIfVersion(ctx, stale.Version, winner)
	require.NoError(t, err)
	require.True(t, result.Committed)

	stale.Aliases["loser"] = model.AliasEntry{ModelId: "m2"}
	result, err = s.CommitIfVersion(ctx, stale.Version, stale)
	require.NoError(t, err)
	assert.False(t, result.Committed)
	assert.Equal(t, uint64(1), result.CurrentVersion)

	current, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Contains(t, current.Aliases, "winner")
	assert.NotContains(t, current.Aliases, "loser", "a stale commit must never be merged")
}

func testSnapshotIsIsolated(t *testing.T, s store.MetadataStore) {
	ctx := context.Background()
	state, err := s.Snapshot(ctx)
	require.NoError(t, err)
	state.Aliases["prod"] = model.AliasEntry{ModelId: "m1"}
	_, err = s.CommitIfVersion(ctx, state.Version, state)
	require.NoError(t, err)

	snapshot, err := s.Snapshot(ctx)
	require.NoError(t, err)
	delete(snapshot.Aliases, "prod")

	again, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Contains(t, again.Aliases, "prod", "modifying a snapshot must not modify the store")
}

func testConcurrentUpdatesSerialize(t *testing.T, s store.MetadataStore) {
	ctx := context.Background()
	const writers = 8

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		name := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Update(ctx, s, "test", func(current *model.ClusterState) (*model.ClusterState, error) {
				current.Aliases[name] = model.AliasEntry{ModelId: "m1"}
				return current.Clone(), nil
			}, store.WithMaxAttempts(writers*4))
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	state, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, state.Aliases, writers, "every writer's alias must survive")
	assert.Equal(t, uint64(writers), state.Version)
}
