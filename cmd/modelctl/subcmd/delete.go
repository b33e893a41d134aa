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
	"fmt"

	"github.com/openziti/modelctl/kernel/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewDeleteCommand())
}

func NewDeleteCommand() *cobra.Command {
	deleteCmd := &DeleteCommand{}

	cmd := &cobra.Command{
		Use:   "delete <model-id>",
		Short: "Delete a trained model that is no longer referenced or deployed",
		Long: `Delete a trained model.

The model is refused deletion while an ingest pipeline references it, directly or
through one of its aliases, or while it is deployed. With --force the references
are ignored, deployments are force stopped and the model's aliases are removed.`,
		Args: cobra.ExactArgs(1),
		RunE: deleteCmd.run,
	}

	cmd.Flags().BoolVar(&deleteCmd.Force, "force", false, "delete even if referenced or deployed")

	return cmd
}

type DeleteCommand struct {
	Force bool
}

func (d *DeleteCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := newEnvironment(cfg, nil)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	response, err := env.deleter.Delete(ctx, engine.DeleteRequest{ModelId: args[0], Force: d.Force})
	if err != nil {
		if conflict, ok := engine.AsConflict(err); ok {
			logrus.WithField("reason", conflict.Reason).Debug("deletion refused")
		}
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "acknowledged: %t\n", response.Acknowledged)
	return nil
}
