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

// Package cmd implements the mltk command line.
package cmd

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/cloudml/vertex"
	"ml-toolkit/pkg/config"
	"ml-toolkit/pkg/logging"
)

var (
	configPath   string
	logLevel     string
	projectID    string
	locationFlag string

	// newClient builds the control plane client; tests replace it.
	newClient = func(ctx context.Context, cfg *config.Config) (cloudml.Client, error) {
		return vertex.NewClient(ctx, vertex.Options{
			Project:      cfg.Project,
			Location:     cfg.Location,
			PollInterval: cfg.Training.PollInterval,
		})
	}
	fs = afero.NewOsFs()
)

var rootCmd = &cobra.Command{
	Use:   "mltk",
	Short: "Train and deploy models on a managed ML platform.",
	Long: `mltk drives Vertex AI from the command line.

'mltk train' makes sure the training cluster exists, submits the training job
and waits for it to finish. 'mltk deploy' creates an online endpoint, deploys
the newest registered model version on the first instance type with capacity,
routes all traffic to it and sends a test request.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.SetLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to an mltk YAML configuration file.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error.")
	rootCmd.PersistentFlags().StringVarP(&projectID, "project", "p", "", "Google Cloud project ID. Overrides MLTK_PROJECT and the config file.")
	rootCmd.PersistentFlags().StringVarP(&locationFlag, "location", "l", "", "Region of the Vertex AI resources, e.g. europe-west2.")
}

// ExecuteContext runs the root command.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the configuration and applies the global flags. Any
// problem is fatal.
func loadConfig() *config.Config {
	cfg, err := config.Load(fs, configPath)
	if err != nil {
		logging.Fatal("%v", err)
	}
	if projectID != "" {
		cfg.Project = projectID
	}
	if locationFlag != "" {
		cfg.Location = locationFlag
		cfg.Compute.Location = locationFlag
	}
	return cfg
}

func validConfig(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logging.Fatal("Invalid configuration: %v", err)
	}
}

func mustClient(ctx context.Context, cfg *config.Config) cloudml.Client {
	if cfg.Project == "" {
		logging.Fatal("No Google Cloud project set. Use --project, MLTK_PROJECT or GOOGLE_CLOUD_PROJECT.")
	}
	client, err := newClient(ctx, cfg)
	if err != nil {
		logging.Fatal("Failed to create Vertex AI client: %v", err)
	}
	return client
}
