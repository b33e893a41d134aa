package store_test

import (
	"path/filepath"
	"testing"

	"github.com/openziti/modelctl/kernel/store"
	"github.com/openziti/modelctl/kernel/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) store.MetadataStore {
		return store.NewMemoryStore()
	})
}

func TestFileStore(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) store.MetadataStore {
		return store.NewFileStore(filepath.Join(t.TempDir(), "state", "cluster.json"))
	})
}

func TestBadgerStore(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) store.MetadataStore {
		db, err := store.OpenBadger(store.InMemoryBadgerConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		return store.NewBadgerStore(db)
	})
}

func TestBadgerStore_Persistent(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) store.MetadataStore {
		db, err := store.OpenBadger(store.DefaultBadgerConfig(t.TempDir()))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		return store.NewBadgerStore(db)
	})
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	_, err := store.OpenBadger(store.BadgerConfig{})
	require.Error(t, err)
}
