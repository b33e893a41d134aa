package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/openziti/modelctl/kernel/catalog"
	"github.com/openziti/modelctl/kernel/deployment"
	"github.com/openziti/modelctl/kernel/engine"
	"github.com/openziti/modelctl/kernel/model"
	"github.com/openziti/modelctl/kernel/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server  *ModelServer
	store   store.MetadataStore
	catalog *catalog.MemoryCatalog
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	s := store.NewMemoryStore()
	require.NoError(t, store.Update(ctx, s, "seed", func(current *model.ClusterState) (*model.ClusterState, error) {
		next := current.Clone()
		next.Pipelines["p1"] = model.PipelineConfig{Id: "p1", Config: map[string]interface{}{
			"processors": []interface{}{
				map[string]interface{}{"inference": map[string]interface{}{"model_id": "prod"}},
			},
		}}
		next.Aliases["prod"] = model.AliasEntry{ModelId: "m1"}
		next.Aliases["spare"] = model.AliasEntry{ModelId: "m2"}
		return next, nil
	}))

	c := catalog.NewMemoryCatalog()
	require.NoError(t, c.Put(ctx, model.TrainedModel{Id: "m1", Description: "in use"}))
	require.NoError(t, c.Put(ctx, model.TrainedModel{Id: "m2"}))

	deployments := deployment.NewManager(s, logger)
	deleter := engine.NewDeleter(s, deployments, c, nil, logger)

	return &testEnv{
		server:  NewModelServer(s, c, deleter, logger),
		store:   s,
		catalog: c,
	}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestNewModelServer(t *testing.T) {
	env := newTestServer(t)
	assert.NotNil(t, env.server.server)
	assert.NotNil(t, env.server.deleter)
}

func TestDeleteHandler(t *testing.T) {
	env := newTestServer(t)

	result, err := env.server.deleteHandler(context.Background(), callRequest(map[string]any{"model_id": "m2"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, true, response["acknowledged"])

	_, err = env.catalog.Get(context.Background(), "m2")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	state, err := env.store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, state.Aliases, "spare")
}

func TestDeleteHandler_Conflict(t *testing.T) {
	env := newTestServer(t)

	result, err := env.server.deleteHandler(context.Background(), callRequest(map[string]any{"model_id": "m1"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "model_alias [prod]")
}

func TestDeleteHandler_Force(t *testing.T) {
	env := newTestServer(t)

	result, err := env.server.deleteHandler(context.Background(), callRequest(map[string]any{"model_id": "m1", "force": true}))
	require.NoError(t, err)
	assert.False(t, result.IsError, resultText(t, result))
}

func TestDeleteHandler_MissingArgument(t *testing.T) {
	env := newTestServer(t)

	result, err := env.server.deleteHandler(context.Background(), callRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestListHandler(t *testing.T) {
	env := newTestServer(t)

	result, err := env.server.listHandler(context.Background(), callRequest(nil))
	require.NoError(t, err)

	var response struct {
		Count  int                 `json:"count"`
		Models []engine.ModelUsage `json:"models"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &response))
	assert.Equal(t, 2, response.Count)
	require.Len(t, response.Models, 2)
	assert.Equal(t, "m1", response.Models[0].ModelId)
	assert.False(t, response.Models[0].Deletable)
	assert.True(t, response.Models[1].Deletable)
}

func TestReferencesHandler(t *testing.T) {
	env := newTestServer(t)

	result, err := env.server.referencesHandler(context.Background(), callRequest(map[string]any{"model_id": "m1"}))
	require.NoError(t, err)

	var usage engine.ModelUsage
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &usage))
	assert.Equal(t, []string{"prod"}, usage.Aliases)
	assert.Equal(t, map[string][]string{"prod": {"p1"}}, usage.AliasPipelines)
}

func TestReferencesHandler_NotFound(t *testing.T) {
	env := newTestServer(t)

	result, err := env.server.referencesHandler(context.Background(), callRequest(map[string]any{"model_id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAliasesHandler(t *testing.T) {
	env := newTestServer(t)

	contents, err := env.server.aliasesHandler(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, AliasesURI, text.URI)

	var aliases model.AliasMetadata
	require.NoError(t, json.Unmarshal([]byte(text.Text), &aliases))
	assert.Equal(t, "m1", aliases["prod"].ModelId)
	assert.Equal(t, "m2", aliases["spare"].ModelId)
}
