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
	"context"
	"errors"

	"github.com/spf13/cobra"

	"ml-toolkit/pkg/cloudml"
	"ml-toolkit/pkg/config"
	"ml-toolkit/pkg/deploy"
	"ml-toolkit/pkg/logging"
	"ml-toolkit/pkg/orchestrator"
	"ml-toolkit/pkg/orchestrator/pipeline"
)

var (
	modelName      string
	endpointName   string
	deploymentName string
	instanceTypes  []string
	skipInvoke     bool
)

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().StringVarP(&modelName, "model", "m", "", "Registered model to deploy; its newest version is used.")
	deployCmd.Flags().StringVarP(&endpointName, "endpoint", "e", "", "Existing endpoint to deploy to instead of creating a new one.")
	deployCmd.Flags().StringVarP(&deploymentName, "deployment", "d", "", "Name of the deployment (default from config, \"blue\").")
	deployCmd.Flags().StringSliceVar(&instanceTypes, "instance-types", nil, "Machine types to try in order, e.g. n1-standard-4,n2-highmem-4.")
	deployCmd.Flags().BoolVar(&skipInvoke, "skip-invoke", false, "Do not send the test request after deploying.")
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploys the newest version of a registered model to an online endpoint.",
	Long: `The 'deploy' command creates an endpoint with a generated name (or reuses
--endpoint), deploys the newest registered version of the model on the first
instance type that has quota and is supported, routes 100% of the endpoint's
traffic to the deployment and sends a test prediction request.`,
	Args:         cobra.NoArgs,
	Run:          runDeployCmd,
	SilenceUsage: true,
}

func runDeployCmd(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	applyDeployFlags(cfg)
	validConfig(cfg)

	ctx := cmd.Context()
	client := mustClient(ctx, cfg)
	res, err := pipeline.New(client).Deploy(ctx, deploymentDefinition(cfg))
	if err != nil {
		switch {
		case cloudml.IsNotFound(err) && res != nil && res.Model.Name == "":
			logging.Fatal("%v%s", err, modelHint(ctx, client, cfg.Deployment.ModelName))
		case errors.Is(err, deploy.ErrCandidatesExhausted):
			logging.Fatal("%v. Request quota or add instance types with --instance-types.", err)
		default:
			logging.Fatal("mltk deploy failed: %v", err)
		}
	}
}

func applyDeployFlags(cfg *config.Config) {
	d := &cfg.Deployment
	if modelName != "" {
		d.ModelName = modelName
	}
	if deploymentName != "" {
		d.DeploymentName = deploymentName
	}
	if len(instanceTypes) > 0 {
		d.InstanceTypes = instanceTypes
	}
}

func deploymentDefinition(cfg *config.Config) orchestrator.DeploymentDefinition {
	d := cfg.Deployment
	return orchestrator.DeploymentDefinition{
		Endpoint: cloudml.EndpointSpec{
			Name:        deploy.GenerateEndpointName(d.EndpointPrefix),
			Description: d.Description,
			AuthMode:    d.AuthMode,
			Tags:        d.Tags,
			Location:    cfg.Location,
		},
		ExistingEndpoint: endpointName,
		ModelName:        d.ModelName,
		DeploymentName:   d.DeploymentName,
		InstanceCount:    d.InstanceCount,
		InstanceTypes:    d.InstanceTypes,
		SkipInvoke:       skipInvoke,
		Samples:          d.SampleData,
	}
}

// modelHint suggests a registered model with a similar name.
func modelHint(ctx context.Context, client cloudml.Client, name string) string {
	models, err := client.ListModels(ctx, "")
	if err != nil {
		logging.Debug("Could not list models for a suggestion: %v", err)
		return ""
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	if s, ok := deploy.SuggestModelName(name, names); ok {
		return ". Did you mean \"" + s + "\"?"
	}
	return ""
}
