package catalog

import (
	"context"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/pkg/errors"
)

var (
	// ErrNotFound indicates that the requested model does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a model with the same id already exists.
	ErrAlreadyExists = errors.New("already exists")
)

// Catalog persists trained model records.
type Catalog interface {
	Put(ctx context.Context, m model.TrainedModel) error
	Get(ctx context.Context, id string) (model.TrainedModel, error)
	List(ctx context.Context) ([]model.TrainedModel, error)
	Delete(ctx context.Context, id string) error
}

func notFound(id string) error {
	return errors.Wrapf(ErrNotFound, "could not find trained model [%s]", id)
}
