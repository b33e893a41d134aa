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

	"github.com/openziti/modelctl/kernel/ingest"
	"github.com/openziti/modelctl/kernel/loader"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewLoadCommand())
}

func NewLoadCommand() *cobra.Command {
	loadCmd := &LoadCommand{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load models, pipelines, aliases and deployments from a YAML cluster description",
		Args:  cobra.NoArgs,
		RunE:  loadCmd.load,
	}

	cmd.Flags().StringVarP(&loadCmd.Path, "file", "f", "", "path to YAML cluster description")
	cmd.Flags().BoolVar(&loadCmd.DryRun, "dry-run", false, "validate the description without loading it")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

type LoadCommand struct {
	Path   string
	DryRun bool
}

func (l *LoadCommand) load(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to read [%s]", l.Path)
	}

	result, err := loader.ValidateClusterBytes(data, ingest.DefaultRegistry)
	if err != nil {
		return errors.Wrap(err, "failed to parse cluster description")
	}
	for _, warning := range result.Warnings {
		logrus.Warnf("%s", warning)
	}
	if !result.IsValid() {
		for _, issue := range result.Errors {
			logrus.Errorf("%s", issue)
		}
		return errors.Errorf("cluster description has %d error(s)", len(result.Errors))
	}

	cluster, err := loader.ParseClusterState(data)
	if err != nil {
		return err
	}

	if l.DryRun {
		logrus.Infof("dry-run: %d model(s), %d pipeline(s), %d alias(es), %d deployment(s)",
			len(cluster.Models), len(cluster.Pipelines), len(cluster.Aliases), len(cluster.Deployments))
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := newEnvironment(cfg, nil)
	if err != nil {
		return err
	}
	defer env.Close()

	return loadCluster(cmd.Context(), env, cluster)
}

func loadCluster(ctx context.Context, env *environment, cluster *loader.Cluster) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, nodeId := range cluster.Nodes() {
		env.registerNode(nodeId)
	}
	return loader.Apply(ctx, cluster, env.store, env.catalog, env.deployments, logrus.StandardLogger())
}
