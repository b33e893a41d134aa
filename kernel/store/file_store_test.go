package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/openziti/modelctl/kernel/model"
)

func TestFileStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.json")
	ctx := context.Background()

	s := NewFileStore(path)
	state, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	state.Aliases["prod"] = model.AliasEntry{ModelId: "m1"}
	if _, err := s.CommitIfVersion(ctx, 0, state); err != nil {
		t.Fatalf("CommitIfVersion failed: %v", err)
	}

	reopened := NewFileStore(path)
	state, err = reopened.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if state.Version != 1 {
		t.Errorf("expected version 1, got %d", state.Version)
	}
	if state.Aliases["prod"].ModelId != "m1" {
		t.Errorf("expected alias prod -> m1, got %+v", state.Aliases)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should have been renamed away")
	}
}

func TestFileStore_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	s := NewFileStore(path)
	if _, err := s.Snapshot(context.Background()); err == nil {
		t.Fatal("expected error for corrupt document")
	}
	if _, err := s.CommitIfVersion(context.Background(), 0, model.NewClusterState()); err == nil {
		t.Fatal("expected commit to fail for corrupt document")
	}
}
