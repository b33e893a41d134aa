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
	"net/http"
	"time"

	"github.com/openziti/modelctl/kernel/loader"
	"github.com/openziti/modelctl/kernel/mcp"
	"github.com/openziti/modelctl/kernel/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewServeCommand())
}

func NewServeCommand() *cobra.Command {
	serveCmd := &ServeCommand{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the modelctl MCP server on stdio",
		Long: `Start an MCP (Model Context Protocol) server exposing trained model management.

The server provides tools for:
  - delete_trained_model: safely delete a trained model (optionally forced)
  - list_trained_models: list models with their aliases, pipelines and deployments
  - get_model_references: show what references a model

And resources:
  - modelctl://aliases: the current alias to model mapping`,
		Args: cobra.NoArgs,
		RunE: serveCmd.run,
	}

	cmd.Flags().BoolVar(&serveCmd.UseMemoryStore, "memory", false, "use in-memory store (for testing)")
	cmd.Flags().StringVar(&serveCmd.MetricsAddress, "metrics-address", "", "serve prometheus metrics on this address")
	cmd.Flags().StringVar(&serveCmd.LoadPath, "load", "", "load a YAML cluster description before serving")

	return cmd
}

type ServeCommand struct {
	UseMemoryStore bool
	MetricsAddress string
	LoadPath       string
}

func (s *ServeCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if s.UseMemoryStore {
		logrus.Info("using in-memory store")
		cfg.Store = model.StoreConfig{Backend: model.StoreBackendMemory}
	}
	if s.MetricsAddress != "" {
		cfg.Metrics.Address = s.MetricsAddress
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	env, err := newEnvironment(cfg, registry)
	if err != nil {
		return err
	}
	defer env.Close()

	if s.LoadPath != "" {
		cluster, err := loader.LoadClusterState(s.LoadPath)
		if err != nil {
			return err
		}
		if err := loadCluster(context.Background(), env, cluster); err != nil {
			return err
		}
	}

	if cfg.Metrics.Address != "" {
		metrics := serveMetrics(cfg.Metrics.Address, registry)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metrics.Shutdown(ctx)
		}()
	}

	logrus.Info("starting MCP server on stdio...")
	server := mcp.NewModelServer(env.store, env.catalog, env.deleter, logrus.StandardLogger())
	return server.ServeStdio()
}

func serveMetrics(address string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logrus.Infof("serving metrics on %s", address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("metrics server failed")
		}
	}()
	return srv
}
