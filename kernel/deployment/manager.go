package deployment

import (
	"context"
	"sort"

	"github.com/openziti/modelctl/kernel/model"
	"github.com/openziti/modelctl/kernel/store"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Manager tracks model allocations in the cluster metadata and drives the node agents serving
// them.
type Manager struct {
	Store       store.MetadataStore
	Log         logrus.FieldLogger
	MaxAttempts int
	nodes       cmap.ConcurrentMap[string, NodeAgent]
}

func NewManager(s store.MetadataStore, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		Store:       s,
		Log:         log,
		MaxAttempts: store.DefaultMaxAttempts,
		nodes:       cmap.New[NodeAgent](),
	}
}

func (m *Manager) RegisterNode(agent NodeAgent) {
	m.nodes.Set(agent.NodeId(), agent)
}

func (m *Manager) Nodes() []string {
	ids := m.nodes.Keys()
	sort.Strings(ids)
	return ids
}

// Start loads the model on the given nodes and records the allocation as started.
func (m *Manager) Start(ctx context.Context, modelId string, nodeIds []string) error {
	if len(nodeIds) == 0 {
		return errors.Errorf("cannot start deployment of [%s] without nodes", modelId)
	}
	agents := make([]NodeAgent, 0, len(nodeIds))
	for _, id := range nodeIds {
		agent, ok := m.nodes.Get(id)
		if !ok {
			return errors.Errorf("node [%s] is not registered", id)
		}
		agents = append(agents, agent)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, agent := range agents {
		g.Go(func() error {
			return errors.Wrapf(agent.StartModel(gctx, modelId), "node [%s]", agent.NodeId())
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrapf(err, "failed to start deployment of [%s]", modelId)
	}

	return store.Update(ctx, m.Store, "start-trained-model-deployment", func(current *model.ClusterState) (*model.ClusterState, error) {
		if existing, ok := current.Allocations[modelId]; ok && existing.State == model.AllocationStopping {
			return nil, errors.Errorf("deployment of [%s] is stopping", modelId)
		}
		current.Allocations[modelId] = &model.Allocation{
			ModelId: modelId,
			State:   model.AllocationStarted,
			Nodes:   append([]string(nil), nodeIds...),
		}
		return current.Clone(), nil
	}, m.updateOptions()...)
}

// ForceStop preempts the model on every node serving it and removes its allocation. If any node
// fails to stop, the allocation is left in the stopping state and the error is returned.
func (m *Manager) ForceStop(ctx context.Context, modelId string) error {
	log := m.Log.WithField("modelId", modelId)

	var found bool
	var nodeIds []string
	err := store.Update(ctx, m.Store, "stop-trained-model-deployment", func(current *model.ClusterState) (*model.ClusterState, error) {
		allocation, ok := current.Allocations[modelId]
		found = ok
		if !ok {
			return current, nil
		}
		nodeIds = append([]string(nil), allocation.Nodes...)
		if allocation.State == model.AllocationStopping {
			return current, nil
		}
		allocation.State = model.AllocationStopping
		return current.Clone(), nil
	}, m.updateOptions()...)
	if err != nil {
		return errors.Wrapf(err, "failed to mark deployment of [%s] as stopping", modelId)
	}
	if !found {
		log.Debug("no deployment to stop")
		return nil
	}

	log.Infof("force stopping deployment on %d node(s)", len(nodeIds))
	g, gctx := errgroup.WithContext(ctx)
	for _, nodeId := range nodeIds {
		agent, ok := m.nodes.Get(nodeId)
		if !ok {
			log.WithField("nodeId", nodeId).Warn("node is not registered, treating model as unloaded")
			continue
		}
		g.Go(func() error {
			return errors.Wrapf(agent.StopModel(gctx, modelId, true), "node [%s]", nodeId)
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrapf(err, "failed to stop deployment of [%s]", modelId)
	}

	err = store.Update(ctx, m.Store, "remove-trained-model-allocation", func(current *model.ClusterState) (*model.ClusterState, error) {
		if _, ok := current.Allocations[modelId]; !ok {
			return current, nil
		}
		delete(current.Allocations, modelId)
		return current.Clone(), nil
	}, m.updateOptions()...)
	if err != nil {
		return errors.Wrapf(err, "failed to remove allocation of [%s]", modelId)
	}
	log.Info("deployment stopped")
	return nil
}

func (m *Manager) updateOptions() []store.UpdateOption {
	return []store.UpdateOption{store.WithMaxAttempts(m.MaxAttempts), store.WithLogger(m.Log)}
}
