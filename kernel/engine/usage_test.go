package engine

import (
	"context"
	"testing"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsage(t *testing.T) {
	state := model.NewClusterState()
	state.Pipelines["p1"] = inference("p1", "m1")
	state.Pipelines["p2"] = inference("p2", "prod")
	state.Aliases["prod"] = model.AliasEntry{ModelId: "m2"}
	state.Aliases["idle"] = model.AliasEntry{ModelId: "m3"}
	state.Allocations["m3"] = started("m3", "n1")
	f := newFixture(t, state)

	usage, err := f.deleter.Usage(context.Background(), []model.TrainedModel{
		{Id: "m1"}, {Id: "m2"}, {Id: "m3"}, {Id: "m4", Description: "unused"},
	})
	require.NoError(t, err)
	require.Len(t, usage, 4)

	assert.Equal(t, []string{"p1"}, usage[0].Pipelines)
	assert.False(t, usage[0].Deletable)

	assert.Equal(t, []string{"prod"}, usage[1].Aliases)
	assert.Equal(t, map[string][]string{"prod": {"p2"}}, usage[1].AliasPipelines)
	assert.False(t, usage[1].Deletable)

	require.NotNil(t, usage[2].Allocation)
	assert.Equal(t, []string{"n1"}, usage[2].Allocation.Nodes)
	assert.False(t, usage[2].Deletable)

	assert.Equal(t, "unused", usage[3].Description)
	assert.Empty(t, usage[3].Pipelines)
	assert.True(t, usage[3].Deletable)

	assert.Empty(t, f.events.list())
}
