package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/openziti/modelctl/kernel/catalog"
	"github.com/openziti/modelctl/kernel/engine"
	"github.com/openziti/modelctl/kernel/model"
	"github.com/openziti/modelctl/kernel/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const AliasesURI = "modelctl://aliases"

type ModelServer struct {
	server  *server.MCPServer
	store   store.MetadataStore
	catalog catalog.Catalog
	deleter *engine.Deleter
	log     logrus.FieldLogger
}

func NewModelServer(s store.MetadataStore, c catalog.Catalog, deleter *engine.Deleter, log logrus.FieldLogger) *ModelServer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	srv := server.NewMCPServer(
		"modelctl",
		"v1.0.0",
		server.WithResourceCapabilities(true, true),
		server.WithToolCapabilities(true),
	)

	ms := &ModelServer{
		server:  srv,
		store:   s,
		catalog: c,
		deleter: deleter,
		log:     log,
	}

	ms.registerTools()
	ms.registerResources()

	return ms
}

func (ms *ModelServer) ServeStdio() error {
	return server.ServeStdio(ms.server)
}

func (ms *ModelServer) registerTools() {
	deleteTool := mcp.NewTool("delete_trained_model",
		mcp.WithDescription("Delete a trained model once no pipeline, alias reference or deployment uses it"),
		mcp.WithString("model_id",
			mcp.Description("Id of the trained model"),
			mcp.Required(),
		),
		mcp.WithBoolean("force",
			mcp.Description("Delete even if the model is referenced or deployed; deployments are force stopped"),
		),
	)
	ms.server.AddTool(deleteTool, ms.deleteHandler)

	listTool := mcp.NewTool("list_trained_models",
		mcp.WithDescription("List trained models with their aliases, referencing pipelines and deployments"),
	)
	ms.server.AddTool(listTool, ms.listHandler)

	refsTool := mcp.NewTool("get_model_references",
		mcp.WithDescription("Show what references a trained model"),
		mcp.WithString("model_id",
			mcp.Description("Id of the trained model"),
			mcp.Required(),
		),
	)
	ms.server.AddTool(refsTool, ms.referencesHandler)
}

func (ms *ModelServer) registerResources() {
	resource := mcp.NewResource(AliasesURI, "Model aliases",
		mcp.WithResourceDescription("Current alias to model mapping"),
		mcp.WithMIMEType("application/json"),
	)
	ms.server.AddResource(resource, ms.aliasesHandler)
}

func (ms *ModelServer) deleteHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modelId, err := request.RequireString("model_id")
	if err != nil {
		return mcp.NewToolResultError("model_id argument is required"), nil
	}
	force := request.GetBool("force", false)

	response, err := ms.deleter.Delete(ctx, engine.DeleteRequest{ModelId: modelId, Force: force})
	if err != nil {
		ms.log.WithField("modelId", modelId).WithError(err).Debug("delete_trained_model failed")
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(response)
}

func (ms *ModelServer) listHandler(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	models, err := ms.catalog.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list models")
	}
	usage, err := ms.deleter.Usage(ctx, models)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]interface{}{
		"count":  len(usage),
		"models": usage,
	})
}

func (ms *ModelServer) referencesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modelId, err := request.RequireString("model_id")
	if err != nil {
		return mcp.NewToolResultError("model_id argument is required"), nil
	}
	m, err := ms.catalog.Get(ctx, modelId)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	usage, err := ms.deleter.Usage(ctx, []model.TrainedModel{m})
	if err != nil {
		return nil, err
	}
	return jsonResult(usage[0])
}

func (ms *ModelServer) aliasesHandler(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	state, err := ms.store.Snapshot(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read aliases")
	}
	data, err := json.Marshal(state.Aliases)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      AliasesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
