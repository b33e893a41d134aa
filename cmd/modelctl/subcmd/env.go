/*
	(c) Copyright NetFoundry Inc. Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package subcmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"github.com/openziti/modelctl/kernel/audit"
	"github.com/openziti/modelctl/kernel/catalog"
	"github.com/openziti/modelctl/kernel/deployment"
	"github.com/openziti/modelctl/kernel/engine"
	"github.com/openziti/modelctl/kernel/model"
	"github.com/openziti/modelctl/kernel/store"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	clusterStateFile = "cluster_state.json"
	catalogDir       = "catalog"
)

// environment is the set of components a command works against, built from the config.
type environment struct {
	cfg         *model.Config
	store       store.MetadataStore
	catalog     catalog.Catalog
	deployments *deployment.Manager
	deleter     *engine.Deleter
	closers     []func()
}

func newEnvironment(cfg *model.Config, registry prometheus.Registerer) (*environment, error) {
	log := logrus.StandardLogger()
	env := &environment{cfg: cfg}

	switch cfg.Store.Backend {
	case model.StoreBackendMemory:
		env.store = store.NewMemoryStore()
		env.catalog = catalog.NewMemoryCatalog()

	case model.StoreBackendFile:
		if err := os.MkdirAll(cfg.Store.Path, 0755); err != nil {
			return nil, errors.Wrapf(err, "unable to create store directory [%s]", cfg.Store.Path)
		}
		env.store = store.NewFileStore(filepath.Join(cfg.Store.Path, clusterStateFile))
		db, err := env.openBadger(store.DefaultBadgerConfig(filepath.Join(cfg.Store.Path, catalogDir)))
		if err != nil {
			return nil, err
		}
		env.catalog = catalog.NewBadgerCatalog(db)

	case model.StoreBackendBadger:
		db, err := env.openBadger(store.DefaultBadgerConfig(cfg.Store.Path))
		if err != nil {
			return nil, err
		}
		env.store = store.NewBadgerStore(db)
		env.catalog = catalog.NewBadgerCatalog(db)

	default:
		return nil, errors.Errorf("unknown store backend '%s'", cfg.Store.Backend)
	}

	env.deployments = deployment.NewManager(env.store, log)
	env.deployments.MaxAttempts = cfg.Update.MaxAttempts
	if err := env.registerNodes(context.Background()); err != nil {
		env.Close()
		return nil, err
	}

	var notifier audit.Notifier = audit.NewLogNotifier(log)
	if cfg.Influx.Enabled() {
		influx := audit.NewInfluxNotifier(cfg.Influx, log)
		env.closers = append(env.closers, influx.Close)
		notifier = audit.Multi{notifier, influx}
	}

	env.deleter = engine.NewDeleter(env.store, env.deployments, env.catalog, notifier, log)
	env.deleter.Aliases.MaxAttempts = cfg.Update.MaxAttempts
	if registry != nil {
		env.deleter.Metrics = engine.NewMetrics(registry)
	}

	return env, nil
}

func (env *environment) openBadger(cfg store.BadgerConfig) (*badger.DB, error) {
	db, err := store.OpenBadger(cfg)
	if err != nil {
		return nil, err
	}
	env.closers = append(env.closers, func() {
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("error closing badger")
		}
	})
	return db, nil
}

// registerNodes starts an in-process agent for every node named by an allocation.
func (env *environment) registerNodes(ctx context.Context) error {
	state, err := env.store.Snapshot(ctx)
	if err != nil {
		return err
	}
	for _, allocation := range state.Allocations {
		for _, nodeId := range allocation.Nodes {
			env.registerNode(nodeId)
		}
	}
	return nil
}

func (env *environment) registerNode(nodeId string) {
	for _, known := range env.deployments.Nodes() {
		if known == nodeId {
			return
		}
	}
	env.deployments.RegisterNode(deployment.NewLocalNode(nodeId))
}

func (env *environment) Close() {
	for i := len(env.closers) - 1; i >= 0; i-- {
		env.closers[i]()
	}
	env.closers = nil
}
