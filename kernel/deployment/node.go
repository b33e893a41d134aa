package deployment

import (
	"context"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
)

// NodeAgent loads and unloads models on one serving node.
type NodeAgent interface {
	NodeId() string
	StartModel(ctx context.Context, modelId string) error
	// StopModel unloads the model. Without force a node refuses while requests are in flight;
	// with force in-flight requests are preempted.
	StopModel(ctx context.Context, modelId string, force bool) error
}

// LocalNode is an in-process NodeAgent.
type LocalNode struct {
	id     string
	models cmap.ConcurrentMap[string, *loadedModel]
}

type loadedModel struct {
	inflight atomic.Int64
}

func NewLocalNode(id string) *LocalNode {
	return &LocalNode{id: id, models: cmap.New[*loadedModel]()}
}

func (n *LocalNode) NodeId() string {
	return n.id
}

func (n *LocalNode) StartModel(_ context.Context, modelId string) error {
	n.models.SetIfAbsent(modelId, &loadedModel{})
	return nil
}

func (n *LocalNode) StopModel(_ context.Context, modelId string, force bool) error {
	m, ok := n.models.Get(modelId)
	if !ok {
		return nil
	}
	if inflight := m.inflight.Load(); !force && inflight > 0 {
		return errors.Errorf("model [%s] on node [%s] has %d in-flight requests", modelId, n.id, inflight)
	}
	n.models.Remove(modelId)
	return nil
}

// Loaded reports whether the model is currently loaded on this node.
func (n *LocalNode) Loaded(modelId string) bool {
	return n.models.Has(modelId)
}

// Acquire marks a request in flight against the model until release is called.
func (n *LocalNode) Acquire(modelId string) (release func(), err error) {
	m, ok := n.models.Get(modelId)
	if !ok {
		return nil, errors.Errorf("model [%s] is not loaded on node [%s]", modelId, n.id)
	}
	m.inflight.Add(1)
	return func() { m.inflight.Add(-1) }, nil
}
