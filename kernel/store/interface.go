package store

import (
	"context"

	"github.com/openziti/modelctl/kernel/model"
)

// MetadataStore holds the versioned cluster metadata document. Writers never overwrite it
// directly: every write is a conditional commit against the version the writer computed from.
type MetadataStore interface {
	// Snapshot returns a consistent copy of the current document.
	Snapshot(ctx context.Context) (*model.ClusterState, error)

	// CommitIfVersion stores next as version expected+1 if the current version is still expected.
	// Otherwise nothing is written and the result carries the current version.
	CommitIfVersion(ctx context.Context, expected uint64, next *model.ClusterState) (CommitResult, error)
}

type CommitResult struct {
	Committed      bool
	CurrentVersion uint64
}
