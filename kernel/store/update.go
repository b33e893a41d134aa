package store

import (
	"context"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var ErrTooManyConflicts = errors.New("too many conflicting metadata updates")

const DefaultMaxAttempts = 5

// UpdateFunc computes the next document from current. current is a private clone the function
// may modify. Returning current unchanged (the same pointer) means there is nothing to write.
type UpdateFunc func(current *model.ClusterState) (*model.ClusterState, error)

type updateOptions struct {
	maxAttempts int
	log         logrus.FieldLogger
}

type UpdateOption func(*updateOptions)

func WithMaxAttempts(n int) UpdateOption {
	return func(o *updateOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

func WithLogger(log logrus.FieldLogger) UpdateOption {
	return func(o *updateOptions) {
		if log != nil {
			o.log = log
		}
	}
}

// Update runs the conditional commit loop: read the current document, compute the next one,
// commit it if the version is unchanged, and otherwise recompute against the newer version.
// It returns once the change is committed, when fn reports no change, or when fn fails.
func Update(ctx context.Context, s MetadataStore, source string, fn UpdateFunc, opts ...UpdateOption) error {
	options := &updateOptions{maxAttempts: DefaultMaxAttempts, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(options)
	}
	log := options.log.WithField("source", source)

	for attempt := 1; attempt <= options.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "[%s] update abandoned", source)
		}

		current, err := s.Snapshot(ctx)
		if err != nil {
			return errors.Wrapf(err, "[%s] unable to read metadata", source)
		}
		version := current.Version

		next, err := fn(current)
		if err != nil {
			return err
		}
		if next == current {
			log.Debugf("no change at version %d", version)
			return nil
		}

		result, err := s.CommitIfVersion(ctx, version, next)
		if err != nil {
			return errors.Wrapf(err, "[%s] unable to commit metadata", source)
		}
		if result.Committed {
			log.Debugf("committed version %d", version+1)
			return nil
		}
		log.Debugf("version conflict on attempt %d: expected %d, found %d", attempt, version, result.CurrentVersion)
	}

	return errors.Wrapf(ErrTooManyConflicts, "[%s] gave up after %d attempts", source, options.maxAttempts)
}
