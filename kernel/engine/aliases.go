package engine

import (
	"context"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/openziti/modelctl/kernel/store"
	"github.com/sirupsen/logrus"
)

// AliasMutator removes model aliases from the cluster metadata.
type AliasMutator struct {
	Store       store.MetadataStore
	Log         logrus.FieldLogger
	MaxAttempts int
}

func NewAliasMutator(s store.MetadataStore, log logrus.FieldLogger) *AliasMutator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AliasMutator{Store: s, Log: log, MaxAttempts: store.DefaultMaxAttempts}
}

// RemoveAliases removes the named aliases of modelId in one conditional commit. An empty set of
// names never reaches the store. An alias that no longer points at modelId by the time the update
// runs is left alone, and when nothing is left to remove no write is issued.
func (m *AliasMutator) RemoveAliases(ctx context.Context, modelId string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	log := m.Log.WithField("modelId", modelId)
	return store.Update(ctx, m.Store, "delete-trained-model-alias", func(current *model.ClusterState) (*model.ClusterState, error) {
		if len(current.Aliases) == 0 {
			return current, nil
		}

		var remove []string
		for _, name := range names {
			if target, ok := current.Aliases.Resolve(name); ok && target == modelId {
				remove = append(remove, name)
			}
		}
		if len(remove) == 0 {
			return current, nil
		}

		log.Infof("delete model model_aliases %v", remove)
		next := current.Clone()
		next.Aliases = current.Aliases.Without(remove...)
		return next, nil
	}, store.WithMaxAttempts(m.MaxAttempts), store.WithLogger(m.Log))
}
