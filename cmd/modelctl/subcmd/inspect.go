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
	"io"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/openziti/modelctl/kernel/engine"
	"github.com/openziti/modelctl/kernel/model"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func init() {
	RootCmd.AddCommand(NewInspectCommand())
}

func NewInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [<model-id>]",
		Short: "Show models with their aliases, referencing pipelines and deployments",
		Args:  cobra.MaximumNArgs(1),
		RunE:  inspect,
	}
}

func inspect(cmd *cobra.Command, args []string) error {
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

	var models []model.TrainedModel
	if len(args) == 1 {
		m, err := env.catalog.Get(ctx, args[0])
		if err != nil {
			return err
		}
		models = []model.TrainedModel{m}
	} else if models, err = env.catalog.List(ctx); err != nil {
		return err
	}

	usage, err := env.deleter.Usage(ctx, models)
	if err != nil {
		return err
	}
	renderUsage(cmd.OutOrStdout(), usage, isTerminal(cmd.OutOrStdout()))
	return nil
}

func renderUsage(out io.Writer, usage []engine.ModelUsage, styled bool) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	if styled {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
		t.Style().Options = table.OptionsNoBordersAndSeparators
	}
	t.AppendHeader(table.Row{"Model", "Aliases", "Pipelines", "Deployment", "Deletable"})
	for _, u := range usage {
		t.AppendRow(table.Row{
			u.ModelId,
			strings.Join(u.Aliases, ","),
			strings.Join(pipelineColumn(u), ","),
			deploymentColumn(u.Allocation),
			u.Deletable,
		})
	}
	t.Render()
}

func pipelineColumn(u engine.ModelUsage) []string {
	result := append([]string(nil), u.Pipelines...)
	aliases := make([]string, 0, len(u.AliasPipelines))
	for alias := range u.AliasPipelines {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		for _, pipeline := range u.AliasPipelines[alias] {
			result = append(result, fmt.Sprintf("%s (via %s)", pipeline, alias))
		}
	}
	return result
}

func deploymentColumn(allocation *model.Allocation) string {
	if allocation == nil {
		return "-"
	}
	return fmt.Sprintf("%s [%s]", allocation.State, strings.Join(allocation.Nodes, ","))
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
