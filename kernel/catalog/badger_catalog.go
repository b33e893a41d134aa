package catalog

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"github.com/openziti/modelctl/kernel/model"
	"github.com/pkg/errors"
)

var modelPrefix = []byte("model/")

// BadgerCatalog stores one JSON record per model under model/<id>.
type BadgerCatalog struct {
	db *badger.DB
}

func NewBadgerCatalog(db *badger.DB) *BadgerCatalog {
	return &BadgerCatalog{db: db}
}

func modelKey(id string) []byte {
	return append(append([]byte(nil), modelPrefix...), id...)
}

func (c *BadgerCatalog) Put(ctx context.Context, m model.TrainedModel) error {
	if m.Id == "" {
		return errors.New("trained model id is required")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal trained model [%s]", m.Id)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(modelKey(m.Id))
		if err == nil {
			return errors.Wrapf(ErrAlreadyExists, "trained model [%s]", m.Id)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(modelKey(m.Id), data)
	})
}

func (c *BadgerCatalog) Get(_ context.Context, id string) (model.TrainedModel, error) {
	var m model.TrainedModel
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(modelKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound(id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	return m, err
}

func (c *BadgerCatalog) List(_ context.Context) ([]model.TrainedModel, error) {
	result := make([]model.TrainedModel, 0)
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = modelPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var m model.TrainedModel
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return errors.Wrapf(err, "failed to parse [%s]", it.Item().Key())
			}
			result = append(result, m)
		}
		return nil
	})
	return result, err
}

func (c *BadgerCatalog) Delete(_ context.Context, id string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(modelKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return notFound(id)
			}
			return err
		}
		return txn.Delete(modelKey(id))
	})
}
