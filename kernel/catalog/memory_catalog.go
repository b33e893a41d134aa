package catalog

import (
	"context"
	"sort"

	"github.com/openziti/modelctl/kernel/model"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
)

type MemoryCatalog struct {
	models cmap.ConcurrentMap[string, model.TrainedModel]
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{models: cmap.New[model.TrainedModel]()}
}

func (c *MemoryCatalog) Put(_ context.Context, m model.TrainedModel) error {
	if m.Id == "" {
		return errors.New("trained model id is required")
	}
	if !c.models.SetIfAbsent(m.Id, m) {
		return errors.Wrapf(ErrAlreadyExists, "trained model [%s]", m.Id)
	}
	return nil
}

func (c *MemoryCatalog) Get(_ context.Context, id string) (model.TrainedModel, error) {
	m, ok := c.models.Get(id)
	if !ok {
		return model.TrainedModel{}, notFound(id)
	}
	return m, nil
}

func (c *MemoryCatalog) List(_ context.Context) ([]model.TrainedModel, error) {
	result := make([]model.TrainedModel, 0, c.models.Count())
	for _, m := range c.models.Items() {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	return result, nil
}

func (c *MemoryCatalog) Delete(_ context.Context, id string) error {
	if _, ok := c.models.Pop(id); !ok {
		return notFound(id)
	}
	return nil
}
