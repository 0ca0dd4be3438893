// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"ml-toolkit/pkg/deploy"
	"ml-toolkit/pkg/logging"
)

var (
	invokeDeployment string
	requestFile      string
)

func init() {
	rootCmd.AddCommand(invokeCmd)

	invokeCmd.Flags().StringVarP(&invokeDeployment, "deployment", "d", "", "Deployment to score against (default from config, \"blue\").")
	invokeCmd.Flags().StringVarP(&requestFile, "request-file", "r", "", "JSON file with a {\"data\": [[...], ...]} request. Defaults to the configured sample rows.")
}

var invokeCmd = &cobra.Command{
	Use:          "invoke ENDPOINT",
	Short:        "Sends a prediction request to a deployed model.",
	Args:         cobra.ExactArgs(1),
	Run:          runInvokeCmd,
	SilenceUsage: true,
}

func runInvokeCmd(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	dep := cfg.Deployment.DeploymentName
	if invokeDeployment != "" {
		dep = invokeDeployment
	}

	req := deploy.PredictionRequest{Data: cfg.Deployment.SampleData}
	if requestFile != "" {
		data, err := afero.ReadFile(fs, requestFile)
		if err != nil {
			logging.Fatal("Failed to read request file %s: %v", requestFile, err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			logging.Fatal("Failed to parse request file %s: %v", requestFile, err)
		}
	}
	if len(req.Data) == 0 {
		req.Data = deploy.IrisSamples
	}

	client := mustClient(cmd.Context(), cfg)
	resp, err := deploy.Invoke(cmd.Context(), client, args[0], dep, req)
	if err != nil {
		logging.Fatal("%v", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n", resp)
}
