package engine

import (
	"context"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/pkg/errors"
)

// ModelUsage describes what currently holds on to a model.
type ModelUsage struct {
	ModelId        string              `json:"model_id"`
	Description    string              `json:"description,omitempty"`
	Aliases        []string            `json:"aliases"`
	Pipelines      []string            `json:"pipelines"`
	AliasPipelines map[string][]string `json:"alias_pipelines,omitempty"`
	Allocation     *model.Allocation   `json:"allocation,omitempty"`
	Deletable      bool                `json:"deletable"`
}

// Usage reports pipeline, alias and deployment usage for each model, evaluated against one
// snapshot. Deletable is true when a delete without force would be accepted.
func (d *Deleter) Usage(ctx context.Context, models []model.TrainedModel) ([]ModelUsage, error) {
	snapshot, err := d.Store.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read cluster metadata")
	}
	refs := d.Scanner.Scan(snapshot.Pipelines)

	result := make([]ModelUsage, 0, len(models))
	for _, m := range models {
		usage := ModelUsage{
			ModelId:     m.Id,
			Description: m.Description,
			Aliases:     snapshot.Aliases.AliasesFor(m.Id),
			Pipelines:   refs.Pipelines(m.Id),
		}
		if usage.Pipelines == nil {
			usage.Pipelines = []string{}
		}
		for _, alias := range usage.Aliases {
			if pipelines := refs.Pipelines(alias); len(pipelines) > 0 {
				if usage.AliasPipelines == nil {
					usage.AliasPipelines = make(map[string][]string)
				}
				usage.AliasPipelines[alias] = pipelines
			}
		}
		allocated := snapshot.Allocations.IsAllocated(m.Id)
		if allocated {
			usage.Allocation = snapshot.Allocations[m.Id]
		}
		usage.Deletable = len(usage.Pipelines) == 0 && len(usage.AliasPipelines) == 0 && !allocated
		result = append(result, usage)
	}
	return result, nil
}
