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
	"os"
	"path/filepath"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/modelctl/kernel/model"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	pfxlog.GlobalInit(logrus.InfoLevel, pfxlog.DefaultOptions().SetTrimPrefix("github.com/openziti/"))
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.modelctl/config.yml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

var RootCmd = &cobra.Command{
	Use:   "modelctl",
	Short: "Manage trained models and their safe deletion",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
	SilenceUsage: true,
}

var (
	configPath string
	verbose    bool
)

func Execute() error {
	return RootCmd.Execute()
}

// loadConfig reads --config, or ~/.modelctl/config.yml when it exists. Without either, state is
// kept in a file store under ~/.modelctl so that separate invocations share it.
func loadConfig() (*model.Config, error) {
	if configPath != "" {
		return model.LoadConfig(configPath)
	}
	cfgDir, err := model.ConfigDir()
	if err != nil {
		logrus.WithError(err).Warn("no home directory, using in-memory store")
		return model.DefaultConfig(), nil
	}
	configFile := filepath.Join(cfgDir, model.ConfigFileName)
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return model.LocalConfig(cfgDir), nil
	}
	return model.LoadConfig(configFile)
}
