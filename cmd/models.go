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
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/logging"
)

var listName string

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsListCmd)

	modelsListCmd.Flags().StringVarP(&listName, "name", "n", "", "Only list versions of this model.")
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspects registered models.",
}

var modelsListCmd = &cobra.Command{
	Use:          "list",
	Short:        "Lists registered models and their versions.",
	Args:         cobra.NoArgs,
	Run:          runModelsListCmd,
	SilenceUsage: true,
}

func runModelsListCmd(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	client := mustClient(cmd.Context(), cfg)

	models, err := client.ListModels(cmd.Context(), listName)
	if err != nil {
		logging.Fatal("Failed to list models: %v", err)
	}
	printModels(cmd.OutOrStdout(), models)
}

// printModels writes one "name:version" line per model, oldest first.
func printModels(w io.Writer, models []cloudml.ModelRecord) {
	fmt.Fprintln(w, "Registered models:")
	if len(models) == 0 {
		fmt.Fprintln(w, "  No models found")
		return
	}
	sorted := slices.Clone(models)
	slices.SortStableFunc(sorted, func(a, b cloudml.ModelRecord) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	for _, m := range sorted {
		version := m.Version
		if version == "" {
			version = "None"
		}
		fmt.Fprintf(w, "  - %s:%s\n", m.Name, version)
	}
}
