package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/openziti/modelctl/kernel/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAliasStore(t *testing.T, aliases model.AliasMetadata) *recordingStore {
	t.Helper()
	mem := store.NewMemoryStore()
	require.NoError(t, store.Update(context.Background(), mem, "seed", func(current *model.ClusterState) (*model.ClusterState, error) {
		next := current.Clone()
		for name, entry := range aliases {
			next.Aliases[name] = entry
		}
		return next, nil
	}))
	return &recordingStore{MetadataStore: mem, events: &events{}}
}

func aliasMutator(s store.MetadataStore) *AliasMutator {
	logger, _ := test.NewNullLogger()
	return NewAliasMutator(s, logger)
}

func currentState(t *testing.T, s store.MetadataStore) *model.ClusterState {
	t.Helper()
	state, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	return state
}

func TestRemoveAliases_EmptyDocument(t *testing.T) {
	s := newAliasStore(t, nil)
	before := currentState(t, s).Version

	require.NoError(t, aliasMutator(s).RemoveAliases(context.Background(), "m1", []string{"prod"}))

	assert.Zero(t, s.commits)
	assert.Equal(t, before, currentState(t, s).Version)
}

func TestRemoveAliases_ClearedAfterSnapshot(t *testing.T) {
	s := newAliasStore(t, model.AliasMetadata{"prod": {ModelId: "m1"}})
	names := currentState(t, s).Aliases.AliasesFor("m1")
	require.Equal(t, []string{"prod"}, names)

	require.NoError(t, store.Update(context.Background(), s.MetadataStore, "other-writer", func(current *model.ClusterState) (*model.ClusterState, error) {
		next := current.Clone()
		next.Aliases = model.AliasMetadata{}
		return next, nil
	}))
	before := currentState(t, s).Version

	require.NoError(t, aliasMutator(s).RemoveAliases(context.Background(), "m1", names))

	assert.Zero(t, s.commits)
	assert.Equal(t, before, currentState(t, s).Version)
}

func TestRemoveAliases_RepointedAliasLeftAlone(t *testing.T) {
	s := newAliasStore(t, model.AliasMetadata{"prod": {ModelId: "m2"}})
	before := currentState(t, s).Version

	require.NoError(t, aliasMutator(s).RemoveAliases(context.Background(), "m1", []string{"prod"}))

	assert.Zero(t, s.commits)
	after := currentState(t, s)
	assert.Equal(t, before, after.Version)
	assert.Equal(t, model.AliasMetadata{"prod": {ModelId: "m2"}}, after.Aliases)
}

func TestRemoveAliases_OnlyMatchingAliasesRemoved(t *testing.T) {
	s := newAliasStore(t, model.AliasMetadata{
		"prod":   {ModelId: "m1"},
		"canary": {ModelId: "m2"},
		"keep":   {ModelId: "m3"},
	})

	require.NoError(t, aliasMutator(s).RemoveAliases(context.Background(), "m1", []string{"prod", "canary"}))

	assert.Equal(t, 1, s.commits)
	assert.Equal(t, model.AliasMetadata{
		"canary": {ModelId: "m2"},
		"keep":   {ModelId: "m3"},
	}, currentState(t, s).Aliases)
}

func TestRemoveAliases_NoNames(t *testing.T) {
	s := newAliasStore(t, model.AliasMetadata{"prod": {ModelId: "m1"}})

	require.NoError(t, aliasMutator(s).RemoveAliases(context.Background(), "m1", nil))

	assert.Zero(t, s.commits)
	assert.Equal(t, model.AliasMetadata{"prod": {ModelId: "m1"}}, currentState(t, s).Aliases)
}

// staleStore serves a saved document to the first Snapshot call, standing in for a deletion that
// scanned before another writer changed the aliases.
type staleStore struct {
	*recordingStore
	once  sync.Once
	stale *model.ClusterState
}

func (s *staleStore) Snapshot(ctx context.Context) (*model.ClusterState, error) {
	var stale *model.ClusterState
	s.once.Do(func() { stale = s.stale })
	if stale != nil {
		return stale, nil
	}
	return s.recordingStore.Snapshot(ctx)
}

func TestDelete_AliasClearedBetweenScanAndUpdate(t *testing.T) {
	inner := newAliasStore(t, model.AliasMetadata{"prod": {ModelId: "m1"}})
	s := &staleStore{recordingStore: inner, stale: currentState(t, inner)}
	require.NoError(t, store.Update(context.Background(), inner.MetadataStore, "other-writer", func(current *model.ClusterState) (*model.ClusterState, error) {
		next := current.Clone()
		next.Aliases = model.AliasMetadata{}
		return next, nil
	}))
	before := currentState(t, inner).Version

	f := newFixture(t, nil, "m1")
	f.deleter.Store = s
	f.deleter.Aliases = aliasMutator(s)

	resp, err := f.deleter.Delete(context.Background(), DeleteRequest{ModelId: "m1"})
	require.NoError(t, err)
	assert.True(t, resp.Acknowledged)

	assert.Zero(t, inner.commits)
	assert.Equal(t, before, currentState(t, inner).Version)
	assert.Equal(t, []string{"delete:m1", "notify:m1:trained model deleted"}, f.events.list())
}
